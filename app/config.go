package main

import "io"

// DatabaseConfig holds tunables for a DatabaseRaw instance. The core is
// single-threaded and synchronous (§5); these options only affect how
// pages are read and validated, never concurrency.
type DatabaseConfig struct {
	PageCacheSize  int
	ValidationMode ValidationLevel
	UseMmap        bool
}

// ValidationLevel controls how strictly the header/page decoders check
// invariants before returning.
type ValidationLevel int

const (
	ValidationNone ValidationLevel = iota
	ValidationBasic
	ValidationStrict
)

// DatabaseOption is a functional option for configuring a DatabaseRaw.
type DatabaseOption func(*DatabaseConfig)

// WithPageCacheSize sets an advisory page-cache hint. The spec prescribes
// no cache (§5); a caller opting into one is still invisible to readers
// since the file is read-only.
func WithPageCacheSize(size int) DatabaseOption {
	return func(cfg *DatabaseConfig) { cfg.PageCacheSize = size }
}

// WithValidation sets header/page validation strictness.
func WithValidation(level ValidationLevel) DatabaseOption {
	return func(cfg *DatabaseConfig) { cfg.ValidationMode = level }
}

// WithMmap opens the database file with mmap instead of ReadAt (§5: "for
// files that fit in RAM, mmap'ing the file ... is acceptable").
func WithMmap(enabled bool) DatabaseOption {
	return func(cfg *DatabaseConfig) { cfg.UseMmap = enabled }
}

// DefaultDatabaseConfig returns the default configuration: no cache hint,
// basic validation, and the plain ReadAt-based file reader.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		PageCacheSize:  0,
		ValidationMode: ValidationBasic,
		UseMmap:        false,
	}
}

// ResourceManager closes a set of resources in reverse order of
// registration (LIFO), so the file handle opened first is closed last.
type ResourceManager struct {
	resources []io.Closer
	cleaners  []func() error
}

func NewResourceManager() *ResourceManager {
	return &ResourceManager{}
}

func (rm *ResourceManager) Add(resource io.Closer) {
	rm.resources = append(rm.resources, resource)
}

func (rm *ResourceManager) AddCleaner(cleaner func() error) {
	rm.cleaners = append(rm.cleaners, cleaner)
}

func (rm *ResourceManager) Close() error {
	var lastErr error

	for i := len(rm.cleaners) - 1; i >= 0; i-- {
		if err := rm.cleaners[i](); err != nil {
			lastErr = err
		}
	}
	for i := len(rm.resources) - 1; i >= 0; i-- {
		if err := rm.resources[i].Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

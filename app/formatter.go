package main

import (
	"fmt"
	"io"
	"strings"
)

// OutputFormatter renders a QueryResult the way the CLI prints it (§6.4).
type OutputFormatter interface {
	FormatValue(value Value) string
	FormatRow(row Row) string
	FormatResult(result *QueryResult) string
}

// ConsoleFormatter is the CLI's only output format: pipe-separated
// columns, one row per line, matching sqlite3's own `-separator '|'` mode.
type ConsoleFormatter struct {
	io.Writer
}

func NewConsoleFormatter(writer io.Writer) *ConsoleFormatter {
	return &ConsoleFormatter{Writer: writer}
}

func (cf *ConsoleFormatter) FormatValue(value Value) string {
	if value == nil || value.IsNull() {
		return "NULL"
	}
	return value.String()
}

func (cf *ConsoleFormatter) FormatRow(row Row) string {
	parts := make([]string, len(row.Values))
	for i, value := range row.Values {
		parts[i] = cf.FormatValue(value)
	}
	return strings.Join(parts, "|")
}

// FormatResult renders a count as a bare integer, and a row set as one
// pipe-separated line per row with no header (§6.4).
func (cf *ConsoleFormatter) FormatResult(result *QueryResult) string {
	if result.IsCount {
		return fmt.Sprintf("%d", result.Count)
	}
	lines := make([]string, len(result.Rows))
	for i, row := range result.Rows {
		lines[i] = cf.FormatRow(row)
	}
	return strings.Join(lines, "\n")
}

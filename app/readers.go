package main

import (
	"encoding/binary"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// FileSource is the minimal surface C1 needs over the database file:
// positional reads, sizing, and closing. Both the plain os.File and the
// mmap-backed reader below satisfy it.
type FileSource interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// osFileSource wraps *os.File as a FileSource.
type osFileSource struct {
	f    *os.File
	size int64
}

func newOSFileSource(f *os.File) (*osFileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &osFileSource{f: f, size: info.Size()}, nil
}

func (s *osFileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s *osFileSource) Close() error                            { return s.f.Close() }
func (s *osFileSource) Size() int64                             { return s.size }

// mmapFileSource reads the database through a memory mapping (§5: "for
// files that fit in RAM, mmap'ing the file and slicing pages is
// acceptable"). Enabled via WithMmap(true).
type mmapFileSource struct {
	f    *os.File
	data []byte
}

func newMmapFileSource(f *os.File) (*mmapFileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, NewDatabaseError(KindIO, "mmap_open", ErrInsufficientData, nil)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, NewDatabaseError(KindIO, "mmap", err, nil)
	}
	return &mmapFileSource{f: f, data: data}, nil
}

func (s *mmapFileSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *mmapFileSource) Close() error {
	if err := unix.Munmap(s.data); err != nil {
		return err
	}
	return s.f.Close()
}

func (s *mmapFileSource) Size() int64 { return int64(len(s.data)) }

// ByteReader (C1) is SQLite's fixed-width and varint decoder over a
// positional byte source, with an independent read cursor of its own.
type ByteReader struct {
	src    FileSource
	cursor int64
}

func NewByteReader(src FileSource) *ByteReader {
	return &ByteReader{src: src}
}

// Seek moves the reader's cursor to an absolute file offset.
func (r *ByteReader) Seek(offset int64) { r.cursor = offset }

// Skip advances the cursor by n bytes without reading them.
func (r *ByteReader) Skip(n int64) { r.cursor += n }

func (r *ByteReader) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := r.src.ReadAt(buf, r.cursor)
	r.cursor += int64(read)
	if err != nil && !(err == io.EOF && read == n) {
		return nil, err
	}
	if read != n {
		return nil, io.ErrUnexpectedEOF
	}
	return buf, nil
}

// ReadBytes reads n raw bytes from the cursor.
func (r *ByteReader) ReadBytes(n int) ([]byte, error) { return r.readN(n) }

func (r *ByteReader) ReadUint8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *ByteReader) ReadUint16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *ByteReader) ReadUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *ByteReader) ReadUint64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *ByteReader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *ByteReader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadInt24 reads a big-endian sign-extended 3-byte integer (serial type 3).
func (r *ByteReader) ReadInt24() (int32, error) {
	b, err := r.readN(3)
	if err != nil {
		return 0, err
	}
	return signExtend24(b), nil
}

func (r *ByteReader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt48 reads a big-endian sign-extended 6-byte integer (serial type 5).
func (r *ByteReader) ReadInt48() (int64, error) {
	b, err := r.readN(6)
	if err != nil {
		return 0, err
	}
	return signExtend48(b), nil
}

func (r *ByteReader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func signExtend24(b []byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if v&0x800000 != 0 {
		v |= ^int32(0xFFFFFF)
	}
	return v
}

func signExtend48(b []byte) int64 {
	v := int64(b[0])<<40 | int64(b[1])<<32 | int64(b[2])<<24 | int64(b[3])<<16 | int64(b[4])<<8 | int64(b[5])
	if v&0x800000000000 != 0 {
		v |= ^int64(0xFFFFFFFFFFFF)
	}
	return v
}

// ReadVarint decodes a SQLite varint at the cursor and advances past it
// (the full 9-byte rule; §4.1 requires this for row ids/sizes >= 2^56).
func (r *ByteReader) ReadVarint() (uint64, error) {
	var result uint64
	for i := 0; i < 9; i++ {
		b, err := r.ReadUint8()
		if err != nil {
			return 0, err
		}
		if i == 8 {
			result = (result << 8) | uint64(b)
			return result, nil
		}
		result = (result << 7) | uint64(b&0x7F)
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, ErrInvalidVarint
}

// Package source provides seek+read access to one catalog file.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrClosed = errors.New("source: file is closed")

// File is a single open file handle positioned by Seek and advanced by Read.
type File struct {
	path string
	f    *os.File
	size uint64
}

// Open opens path for reading and records its size at open time.
func Open(path string) (*File, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, fmt.Errorf("source: missing path")
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("source: stat %s: %w", p, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("source: %s is not a regular file", p)
	}
	return &File{path: p, f: f, size: uint64(info.Size())}, nil
}

func (s *File) Path() string {
	return s.path
}

// Size is the byte length observed when the file was opened.
func (s *File) Size() uint64 {
	return s.size
}

func (s *File) Seek(offset uint64) error {
	if s.f == nil {
		return ErrClosed
	}
	if offset > uint64(1<<63-1) {
		return fmt.Errorf("source: seek %s: offset %d out of range", s.path, offset)
	}
	if _, err := s.f.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("source: seek %s: %w", s.path, err)
	}
	return nil
}

// Read returns up to length bytes from the current position. Fewer bytes
// are returned only when end-of-file is reached first.
func (s *File) Read(length uint64) ([]byte, error) {
	if s.f == nil {
		return nil, ErrClosed
	}
	if remaining := s.remaining(); length > remaining {
		length = remaining
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(s.f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("source: read %s: %w", s.path, err)
	}
	return buf[:n], nil
}

// remaining bounds allocations by what the file can still produce.
func (s *File) remaining() uint64 {
	pos, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil || pos < 0 {
		return s.size
	}
	info, err := s.f.Stat()
	if err != nil {
		return s.size
	}
	size := uint64(info.Size())
	if uint64(pos) >= size {
		return 0
	}
	return size - uint64(pos)
}

// Close is idempotent.
func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Copyright 2021 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package ondisk provides views of fixed-size record arrays stored at a
// known offset inside a file.
package ondisk

import (
	"fmt"
	"io"

	"github.com/C-rispy/zvfs/internal/zero"
)

// File is usually an *os.File, but specified as an interface for easier testing.
type File interface {
	io.ReaderAt
	io.WriterAt
}

// Slots is an array of len records, each size bytes long, starting at
// byte offset off of f.
type Slots struct {
	f    File
	len  int   // length in number of records
	size int   // size of a record in bytes
	off  int64 // offset in bytes of the start of record 0
}

func NewSlots(f File, len, size int, off int64) *Slots {
	return &Slots{
		f:    f,
		len:  len,
		size: size,
		off:  off,
	}
}

func (s *Slots) Len() int {
	return s.len
}

// Offset returns the byte offset of record i within the file.
func (s *Slots) Offset(i int) int64 {
	return s.off + int64(s.size*i)
}

func (s *Slots) Get(i int, buf []byte) error {
	if i < 0 || i >= s.len {
		return fmt.Errorf("offset (%d) out of range (len %d)", i, s.len)
	}
	if len(buf) < s.size {
		return fmt.Errorf("buf too short: %d < %d", len(buf), s.size)
	}
	n, err := s.f.ReadAt(buf[:s.size], s.Offset(i))
	if n == s.size {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("ReadAt(%d, len: %d): %w", s.Offset(i), s.size, err)
}

func (s *Slots) Set(i int, record []byte) error {
	if i < 0 || i >= s.len {
		return fmt.Errorf("offset (%d) out of range (len %d)", i, s.len)
	}
	if len(record) != s.size {
		return fmt.Errorf("record is %d bytes, wanted %d", len(record), s.size)
	}
	if _, err := s.f.WriteAt(record, s.Offset(i)); err != nil {
		return fmt.Errorf("WriteAt(%d, len: %d): %w", s.Offset(i), s.size, err)
	}
	return nil
}

// ReadAll returns the whole array in one read.
func (s *Slots) ReadAll() ([]byte, error) {
	buf := make([]byte, s.len*s.size)
	n, err := s.f.ReadAt(buf, s.off)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("ReadAt(%d, len: %d): %w", s.off, len(buf), err)
}

// Clear zeroes every record.
func (s *Slots) Clear() error {
	return zero.WriteAt(s.f, s.off, int64(s.len*s.size))
}

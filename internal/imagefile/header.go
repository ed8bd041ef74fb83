// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package imagefile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderSize      = 64
	EntrySize       = 64
	MaxEntries      = 32
	FormatVersion   = 1
	DirectoryOffset = HeaderSize
	DirectorySize   = MaxEntries * EntrySize
	DataRegionStart = DirectoryOffset + DirectorySize

	// FreeHintKnown and FreeHintNone are the values of the free hint flag.
	FreeHintKnown = 0
	FreeHintNone  = 1
)

// Magic identifies a zvfs container.
var Magic = [8]byte{'Z', 'V', 'F', 'S', 'D', 'S', 'K', '1'}

var (
	// ErrCorruptFormat is returned when a fixed-size region is malformed or
	// the cached counters disagree with the directory contents.
	ErrCorruptFormat = errors.New("corrupt container format")

	// ErrSizeLimitExceeded is returned when a placement would grow the data
	// region past the 4 GiB ceiling.
	ErrSizeLimitExceeded = errors.New("container size limit exceeded")

	// ErrInvalidName is returned for names that can't be stored in an entry.
	ErrInvalidName = errors.New("invalid entry name")
)

// Header is the in-memory form of the 64-byte superblock.  Reserved
// fields are carried verbatim so that decode followed by encode is
// lossless.
type Header struct {
	Magic           [8]byte
	Version         uint8
	FreeHintFlag    uint8
	Reserved0       uint16
	LiveCount       uint16
	Capacity        uint16
	EntrySize       uint16
	Reserved1       uint16
	DirectoryOffset uint32
	DataRegionStart uint32
	NextFreeOffset  uint32
	FreeHintOffset  uint32
	DeletedCount    uint16
	Reserved2       [26]byte
}

// NewHeader returns the superblock of a freshly created, empty container.
// The free hint flag says "known" but the offset is left zero.
func NewHeader() *Header {
	return &Header{
		Magic:           Magic,
		Version:         FormatVersion,
		FreeHintFlag:    FreeHintKnown,
		Capacity:        MaxEntries,
		EntrySize:       EntrySize,
		DirectoryOffset: DirectoryOffset,
		DataRegionStart: DataRegionStart,
		NextFreeOffset:  DataRegionStart,
	}
}

func (h *Header) MarshalTo(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("buf too short: %d < %d", len(buf), HeaderSize)
	}
	buf = buf[:HeaderSize]
	// bounds check elimination
	_ = buf[HeaderSize-1]

	copy(buf[0:8], h.Magic[:])
	buf[8] = h.Version
	buf[9] = h.FreeHintFlag
	binary.LittleEndian.PutUint16(buf[10:12], h.Reserved0)
	binary.LittleEndian.PutUint16(buf[12:14], h.LiveCount)
	binary.LittleEndian.PutUint16(buf[14:16], h.Capacity)
	binary.LittleEndian.PutUint16(buf[16:18], h.EntrySize)
	binary.LittleEndian.PutUint16(buf[18:20], h.Reserved1)
	binary.LittleEndian.PutUint32(buf[20:24], h.DirectoryOffset)
	binary.LittleEndian.PutUint32(buf[24:28], h.DataRegionStart)
	binary.LittleEndian.PutUint32(buf[28:32], h.NextFreeOffset)
	binary.LittleEndian.PutUint32(buf[32:36], h.FreeHintOffset)
	binary.LittleEndian.PutUint16(buf[36:38], h.DeletedCount)
	copy(buf[38:64], h.Reserved2[:])

	return nil
}

func (h *Header) WriteTo(w io.Writer) (n int64, err error) {
	var headerBuf [HeaderSize]byte
	if err = h.MarshalTo(headerBuf[:]); err != nil {
		return 0, err
	}
	if _, err = w.Write(headerBuf[:]); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return int64(HeaderSize), nil
}

// UnmarshalBytes decodes a superblock.  Only the length is checked; use
// Validate for the strict structural checks.
func (h *Header) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < HeaderSize {
		return fmt.Errorf("header too short: %d < %d: %w", len(headerBytes), HeaderSize, ErrCorruptFormat)
	}
	b := headerBytes[:HeaderSize]
	_ = b[HeaderSize-1]

	copy(h.Magic[:], b[0:8])
	h.Version = b[8]
	h.FreeHintFlag = b[9]
	h.Reserved0 = binary.LittleEndian.Uint16(b[10:12])
	h.LiveCount = binary.LittleEndian.Uint16(b[12:14])
	h.Capacity = binary.LittleEndian.Uint16(b[14:16])
	h.EntrySize = binary.LittleEndian.Uint16(b[16:18])
	h.Reserved1 = binary.LittleEndian.Uint16(b[18:20])
	h.DirectoryOffset = binary.LittleEndian.Uint32(b[20:24])
	h.DataRegionStart = binary.LittleEndian.Uint32(b[24:28])
	h.NextFreeOffset = binary.LittleEndian.Uint32(b[28:32])
	h.FreeHintOffset = binary.LittleEndian.Uint32(b[32:36])
	h.DeletedCount = binary.LittleEndian.Uint16(b[36:38])
	copy(h.Reserved2[:], b[38:64])

	return nil
}

// Validate performs the strict checks: magic, version and the fixed
// geometry, plus the allocator invariants that can be judged from the
// superblock alone.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("bad magic %q -- not a zvfs container or corrupted: %w", h.Magic[:], ErrCorruptFormat)
	}
	if h.Version != FormatVersion {
		return fmt.Errorf("can only read v%d containers; found v%d: %w", FormatVersion, h.Version, ErrCorruptFormat)
	}
	switch {
	case h.Capacity != MaxEntries:
		return fmt.Errorf("capacity %d != %d: %w", h.Capacity, MaxEntries, ErrCorruptFormat)
	case h.EntrySize != EntrySize:
		return fmt.Errorf("entry size %d != %d: %w", h.EntrySize, EntrySize, ErrCorruptFormat)
	case h.DirectoryOffset != DirectoryOffset:
		return fmt.Errorf("directory offset %d != %d: %w", h.DirectoryOffset, DirectoryOffset, ErrCorruptFormat)
	case h.DataRegionStart != DataRegionStart:
		return fmt.Errorf("data region start %d != %d: %w", h.DataRegionStart, DataRegionStart, ErrCorruptFormat)
	case h.NextFreeOffset < h.DataRegionStart:
		return fmt.Errorf("next free offset %d below data region start %d: %w", h.NextFreeOffset, h.DataRegionStart, ErrCorruptFormat)
	case h.NextFreeOffset%Alignment != 0:
		return fmt.Errorf("next free offset %d not %d-byte aligned: %w", h.NextFreeOffset, Alignment, ErrCorruptFormat)
	case int(h.LiveCount)+int(h.DeletedCount) > MaxEntries:
		return fmt.Errorf("live %d + deleted %d exceeds capacity %d: %w", h.LiveCount, h.DeletedCount, MaxEntries, ErrCorruptFormat)
	}
	return nil
}

// SlotOffset returns the byte offset of directory slot i.
func (h *Header) SlotOffset(i int) uint32 {
	return h.DirectoryOffset + uint32(i)*EntrySize
}

// SetFreeHint records slot i as a known free slot.
func (h *Header) SetFreeHint(i int) {
	h.FreeHintFlag = FreeHintKnown
	h.FreeHintOffset = h.SlotOffset(i)
}

// ClearFreeHint records that no free slot is known.
func (h *Header) ClearFreeHint() {
	h.FreeHintFlag = FreeHintNone
	h.FreeHintOffset = 0
}

// EmptyCount is the number of empty slots implied by the cached counters.
func (h *Header) EmptyCount() int {
	return MaxEntries - int(h.LiveCount) - int(h.DeletedCount)
}

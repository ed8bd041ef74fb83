// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package imagefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	NameSize = 32
	// MaxNameLen is the number of significant bytes in a name; the last
	// byte of the name field is always NUL.
	MaxNameLen = NameSize - 1

	FlagActive  = 0
	FlagDeleted = 1
)

// SlotState is the state of one directory slot.
type SlotState uint8

const (
	SlotEmpty SlotState = iota
	SlotActive
	SlotDeleted
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotActive:
		return "active"
	case SlotDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("SlotState(%d)", uint8(s))
	}
}

// Entry is the in-memory form of a 64-byte directory entry.
type Entry struct {
	Name       [NameSize]byte
	DataStart  uint32
	DataLength uint32
	TypeTag    uint8
	Flag       uint8
	Reserved0  uint16
	CreatedAt  uint64
	Reserved1  [12]byte
}

func (e *Entry) MarshalTo(buf []byte) error {
	if len(buf) < EntrySize {
		return fmt.Errorf("buf too short: %d < %d", len(buf), EntrySize)
	}
	buf = buf[:EntrySize]
	_ = buf[EntrySize-1]

	copy(buf[0:32], e.Name[:])
	binary.LittleEndian.PutUint32(buf[32:36], e.DataStart)
	binary.LittleEndian.PutUint32(buf[36:40], e.DataLength)
	buf[40] = e.TypeTag
	buf[41] = e.Flag
	binary.LittleEndian.PutUint16(buf[42:44], e.Reserved0)
	binary.LittleEndian.PutUint64(buf[44:52], e.CreatedAt)
	copy(buf[52:64], e.Reserved1[:])

	return nil
}

// Bytes encodes the entry into a fresh 64-byte slice.
func (e *Entry) Bytes() []byte {
	buf := make([]byte, EntrySize)
	_ = e.MarshalTo(buf)
	return buf
}

func (e *Entry) UnmarshalBytes(entryBytes []byte) error {
	if len(entryBytes) < EntrySize {
		return fmt.Errorf("entry too short: %d < %d: %w", len(entryBytes), EntrySize, ErrCorruptFormat)
	}
	b := entryBytes[:EntrySize]
	_ = b[EntrySize-1]

	copy(e.Name[:], b[0:32])
	e.DataStart = binary.LittleEndian.Uint32(b[32:36])
	e.DataLength = binary.LittleEndian.Uint32(b[36:40])
	e.TypeTag = b[40]
	e.Flag = b[41]
	e.Reserved0 = binary.LittleEndian.Uint16(b[42:44])
	e.CreatedAt = binary.LittleEndian.Uint64(b[44:52])
	copy(e.Reserved1[:], b[52:64])

	return nil
}

// IsEmpty reports whether every byte of name is zero.
func IsEmpty(name []byte) bool {
	for _, b := range name {
		if b != 0 {
			return false
		}
	}
	return true
}

func (e *Entry) State() SlotState {
	if IsEmpty(e.Name[:]) {
		return SlotEmpty
	}
	if e.Flag == FlagActive {
		return SlotActive
	}
	return SlotDeleted
}

// NameString returns the stored name with trailing NUL padding removed.
func (e *Entry) NameString() string {
	return string(bytes.TrimRight(e.Name[:], "\x00"))
}

// End is the first byte past the entry's blob.
func (e *Entry) End() uint64 {
	return uint64(e.DataStart) + uint64(e.DataLength)
}

// Copyright 2021 The zvfs Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import "math/bits"

// Bitset is a fixed-length bitmap, conceptually similar to []bool.
type Bitset struct {
	bits   []uint64
	length int
}

func getOffsets(off int) (sliceOff int, bitOff uint) {
	sliceOff = off / 64
	bitOff = uint(off) % 64
	return
}

// New returns a bitset of length bits, all clear.
func New(length int) *Bitset {
	sliceLen := (length + 63) / 64
	return &Bitset{
		bits:   make([]uint64, sliceLen),
		length: length,
	}
}

func (b *Bitset) Len() int {
	return b.length
}

// Set sets the bit at position `off` to 1.
func (b *Bitset) Set(off int) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	b.bits[sliceOff] |= 1 << bitOff
}

// Clear sets the bit at position `off` to 0.
func (b *Bitset) Clear(off int) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	b.bits[sliceOff] &^= 1 << bitOff
}

// IsSet returns true if the bit at position `off` is 1.
func (b *Bitset) IsSet(off int) bool {
	if off < 0 || off >= b.length {
		return false
	}
	sliceOff, bitOff := getOffsets(off)
	return b.bits[sliceOff]&(1<<bitOff) != 0
}

// Next returns the position of the first set bit at or after `from`, or
// -1 if there is none.
func (b *Bitset) Next(from int) int {
	if from < 0 {
		from = 0
	}
	for from < b.length {
		sliceOff, bitOff := getOffsets(from)
		word := b.bits[sliceOff] >> bitOff
		if word != 0 {
			off := from + bits.TrailingZeros64(word)
			if off >= b.length {
				return -1
			}
			return off
		}
		from = (sliceOff + 1) * 64
	}
	return -1
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package imagefile

import (
	"fmt"
	"math"
)

const (
	Alignment = 64

	// SizeLimit is the hard ceiling on the end of any blob.
	SizeLimit = 4 * 1024 * 1024 * 1024
)

// Align rounds off up to the next multiple of Alignment.
func Align(off uint64) uint64 {
	if rem := off % Alignment; rem != 0 {
		return off + (Alignment - rem)
	}
	return off
}

// Place computes where a blob of the given length goes when the data
// region's high-water mark is nextFree.  It returns the aligned start of
// the blob and the new high-water mark.  Nothing is written, so a failed
// placement leaves the container untouched.
func Place(nextFree uint64, length uint64) (start, newNextFree uint32, err error) {
	aligned := Align(nextFree)
	end := aligned + length
	if end > SizeLimit || end < aligned {
		return 0, 0, fmt.Errorf("blob of %d bytes at offset %d would end past %d: %w", length, aligned, uint64(SizeLimit), ErrSizeLimitExceeded)
	}
	next := Align(end)
	// the high-water mark has to fit in its 32-bit superblock field
	if next > math.MaxUint32 {
		return 0, 0, fmt.Errorf("next free offset %d overflows the superblock: %w", next, ErrSizeLimitExceeded)
	}
	return uint32(aligned), uint32(next), nil
}

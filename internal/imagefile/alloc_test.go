// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package imagefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	for in, want := range map[uint64]uint64{
		0:    0,
		1:    64,
		63:   64,
		64:   64,
		65:   128,
		2112: 2112,
		2114: 2176,
	} {
		assert.Equal(t, want, Align(in), "Align(%d)", in)
	}
}

func TestPlace(t *testing.T) {
	start, next, err := Place(DataRegionStart, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2112), start)
	assert.Equal(t, uint32(2176), next)

	// an unaligned high-water mark is rounded up first
	start, next, err = Place(2113, 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(2176), start)
	assert.Equal(t, uint32(2240), next)

	// zero-length blobs don't advance the mark
	start, next, err = Place(2176, 0)
	require.NoError(t, err)
	assert.Equal(t, start, next)

	for i := uint64(0); i < 1000; i += 7 {
		start, next, err := Place(DataRegionStart+i, i)
		require.NoError(t, err)
		assert.Zero(t, start%Alignment)
		assert.Zero(t, next%Alignment)
		assert.GreaterOrEqual(t, uint64(next), uint64(start)+i)
	}
}

func TestPlace_SizeLimit(t *testing.T) {
	_, _, err := Place(SizeLimit-128, 128)
	// the end fits, but the aligned mark of exactly 4 GiB doesn't fit 32 bits
	assert.ErrorIs(t, err, ErrSizeLimitExceeded)

	_, next, err := Place(SizeLimit-128, 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(SizeLimit-64), next)

	_, _, err = Place(SizeLimit-64, 65)
	assert.ErrorIs(t, err, ErrSizeLimitExceeded)

	_, _, err = Place(DataRegionStart, SizeLimit)
	assert.ErrorIs(t, err, ErrSizeLimitExceeded)
}

// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/C-rispy/zvfs/internal/imagefile"
)

func TestAdd_HelloScenario(t *testing.T) {
	c, path := newTestContainer(t)

	src := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0644))

	e, err := c.AddFile(src)
	require.NoError(t, err)
	assert.Equal(t, Entry{
		Name:       "hello.txt",
		Slot:       0,
		DataStart:  2112,
		DataLength: 2,
		CreatedAt:  testTime,
	}, e)

	data, err := c.Get("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)

	h := readTestHeader(t, path)
	assert.Equal(t, uint16(1), h.LiveCount)
	assert.Equal(t, uint32(2176), h.NextFreeOffset)
	assert.Equal(t, uint8(imagefile.FreeHintKnown), h.FreeHintFlag)
	assert.Equal(t, uint32(slotOffset(1)), h.FreeHintOffset)

	raw := readRaw(t, path)
	assert.Equal(t, []byte("hi"), raw[2112:2114])
	assert.Equal(t, []byte("hello.txt\x00"), raw[slotOffset(0):slotOffset(0)+10])
}

func TestAdd_RoundTrip(t *testing.T) {
	c, _ := newTestContainer(t)

	blobs := map[string][]byte{
		"empty":   {},
		"one":     {1},
		"aligned": bytes.Repeat([]byte{0xab}, 64),
		"odd":     bytes.Repeat([]byte("xyz"), 333),
		"big":     bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6}, 10000),
	}
	for name, data := range blobs {
		_, err := c.Add(name, data)
		require.NoError(t, err, name)
	}
	for name, data := range blobs {
		got, err := c.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, len(data), len(got), name)
		assert.True(t, bytes.Equal(data, got), name)
	}

	it := c.List()
	n := 0
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		assert.Zero(t, e.DataStart%imagefile.Alignment, e.Name)
		n++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, len(blobs), n)
}

func TestAdd_ZeroPadsGap(t *testing.T) {
	c, path := newTestContainer(t)
	// leave an unaligned high-water mark with garbage after it
	patchFile(t, path, 2112, bytes.Repeat([]byte{0xee}, 200))
	patchTestHeader(t, path, func(h *imagefile.Header) {
		h.NextFreeOffset = 2112 + 10
	})

	e, err := c.Add("a", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, uint32(2176), e.DataStart)

	raw := readRaw(t, path)
	assert.Equal(t, bytes.Repeat([]byte{0xee}, 10), raw[2112:2122])
	assert.Equal(t, make([]byte, 2176-2122), raw[2122:2176])
	assert.Equal(t, []byte("data"), raw[2176:2180])
}

func TestAdd_Duplicate(t *testing.T) {
	c, path := newTestContainer(t)
	_, err := c.Add("a", []byte("first"))
	require.NoError(t, err)

	before := readRaw(t, path)
	_, err = c.Add("a", []byte("second"))
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, before, readRaw(t, path))

	data, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
}

func TestAdd_InvalidName(t *testing.T) {
	c, _ := newTestContainer(t)
	_, err := c.Add("", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = c.Add("a\x00b", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = c.AddFile(filepath.Join(t.TempDir(), "doesnt-exist"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdd_LongName(t *testing.T) {
	c, _ := newTestContainer(t)
	long := strings.Repeat("n", 40)

	e, err := c.Add(long, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, long[:31], e.Name)

	// lookups truncate the same way
	data, err := c.Get(long)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	_, err = c.Add(long[:35], []byte("y"))
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestAdd_SplitMultibyteName(t *testing.T) {
	c, path := newTestContainer(t)
	// "é" is two bytes; the 31-byte cut keeps only the first of the last one
	name := strings.Repeat("a", 30) + "éé"

	e, err := c.Add(name, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, name[:31], e.Name)

	raw := readRaw(t, path)
	assert.Equal(t, []byte(name[:31]), raw[slotOffset(0):slotOffset(0)+31])
	assert.Equal(t, byte(0), raw[slotOffset(0)+31])

	data, err := c.Get(name)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	_, err = c.Remove(name)
	require.NoError(t, err)
}

func TestAdd_Capacity(t *testing.T) {
	c, path := newTestContainer(t)
	for i := 0; i < imagefile.MaxEntries; i++ {
		e, err := c.Add(fmt.Sprintf("file-%02d", i), []byte{byte(i)})
		require.NoError(t, err)
		require.Equal(t, i, e.Slot)
	}

	h := readTestHeader(t, path)
	assert.Equal(t, uint16(32), h.LiveCount)
	assert.Equal(t, uint8(imagefile.FreeHintNone), h.FreeHintFlag)

	before := readRaw(t, path)
	_, err := c.Add("one-too-many", []byte("x"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, before, readRaw(t, path))
}

func TestAdd_SizeLimit(t *testing.T) {
	c, path := newTestContainer(t)
	patchTestHeader(t, path, func(h *imagefile.Header) {
		h.NextFreeOffset = imagefile.SizeLimit - 64
	})

	before := readRaw(t, path)
	_, err := c.Add("big", make([]byte, 128))
	assert.ErrorIs(t, err, ErrSizeLimitExceeded)
	// nothing was written, not even padding
	assert.Equal(t, before, readRaw(t, path))

	_, err = c.Find("big")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	c, path := newTestContainer(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := c.Add(name, []byte("contents of "+name))
		require.NoError(t, err)
	}
	before, err := c.Stats()
	require.NoError(t, err)

	e, err := c.Remove("b")
	require.NoError(t, err)
	assert.True(t, e.Deleted)
	assert.Equal(t, 1, e.Slot)

	_, err = c.Find("b")
	assert.ErrorIs(t, err, ErrDeleted)
	_, err = c.Get("b")
	assert.ErrorIs(t, err, ErrDeleted)
	_, err = c.Find("zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, before.Deleted+1, after.Deleted)
	assert.Equal(t, before.Active-1, after.Active)

	var names []string
	it := c.List()
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		names = append(names, e.Name)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"a", "c"}, names)

	h := readTestHeader(t, path)
	assert.Equal(t, uint8(imagefile.FreeHintKnown), h.FreeHintFlag)
	assert.Equal(t, uint32(slotOffset(1)), h.FreeHintOffset)

	// the bytes are still physically present
	raw := readRaw(t, path)
	assert.Equal(t, []byte("contents of b"), raw[e.DataStart:e.DataStart+e.DataLength])

	_, err = c.Remove("b")
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
	_, err = c.Remove("zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove_SlotReuse(t *testing.T) {
	c, path := newTestContainer(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := c.Add(name, []byte(name))
		require.NoError(t, err)
	}
	removed, err := c.Remove("b")
	require.NoError(t, err)
	deletedBefore := readTestHeader(t, path).DeletedCount

	e, err := c.Add("b", []byte("new b"))
	require.NoError(t, err)
	assert.LessOrEqual(t, e.Slot, removed.Slot)
	// the data is bump-allocated, never placed in the old hole
	assert.Greater(t, e.DataStart, removed.DataStart)

	h := readTestHeader(t, path)
	assert.Equal(t, deletedBefore-1, h.DeletedCount)
	assert.Equal(t, uint16(3), h.LiveCount)

	data, err := c.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []byte("new b"), data)
}

func TestFind_ActiveWinsOverTombstone(t *testing.T) {
	c, _ := newTestContainer(t)
	for _, name := range []string{"x", "a", "y"} {
		_, err := c.Add(name, []byte(name))
		require.NoError(t, err)
	}
	_, err := c.Remove("a")
	require.NoError(t, err)
	_, err = c.Remove("x")
	require.NoError(t, err)

	// slot 0 is the first free slot, so the new "a" lands before its tombstone
	e, err := c.Add("a", []byte("again"))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Slot)

	found, err := c.Find("a")
	require.NoError(t, err)
	assert.Equal(t, 0, found.Slot)
}

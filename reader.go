// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"fmt"

	"github.com/dgryski/go-farm"

	"github.com/C-rispy/zvfs/internal/imagefile"
	"github.com/C-rispy/zvfs/internal/ondisk"
)

// Find returns the active entry called name.  It fails with ErrDeleted
// if the name only matches tombstones, and ErrNotFound otherwise.
func (c *Container) Find(name string) (Entry, error) {
	if err := c.checkOpen(); err != nil {
		return Entry{}, err
	}
	key, err := imagefile.NormalizeName(name)
	if err != nil {
		return Entry{}, err
	}
	h, err := c.readHeader()
	if err != nil {
		return Entry{}, err
	}
	d, err := c.loadDirectory(h)
	if err != nil {
		return Entry{}, err
	}

	slot, state := d.lookup(key)
	switch state {
	case imagefile.SlotActive:
		return entryFrom(slot, &d.entries[slot]), nil
	case imagefile.SlotDeleted:
		return Entry{}, fmt.Errorf("%s: %w", key, ErrDeleted)
	default:
		return Entry{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
}

// Extract reads exactly e.DataLength bytes starting at e.DataStart.
func (c *Container) Extract(e Entry) ([]byte, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.readBlob(e.DataStart, e.DataLength)
}

// Get returns the contents of the active entry called name.
func (c *Container) Get(name string) ([]byte, error) {
	e, err := c.Find(name)
	if err != nil {
		return nil, err
	}
	return c.Extract(e)
}

// Checksum returns a 64-bit fingerprint of the entry's contents.
func (c *Container) Checksum(e Entry) (uint64, error) {
	data, err := c.Extract(e)
	if err != nil {
		return 0, err
	}
	return farm.Fingerprint64(data), nil
}

// List returns an iterator over the active entries in slot order.
func (c *Container) List() *Iter {
	return &Iter{c: c}
}

// Iter walks the directory one slot at a time, reading each entry from
// the file as it goes.  It can't be restarted; call List again.
type Iter struct {
	c     *Container
	slots *ondisk.Slots
	next  int
	done  bool
	err   error
	buf   [imagefile.EntrySize]byte
}

// Next returns the next active entry, or false once the directory is
// exhausted or an error occurred (see Err).
func (it *Iter) Next() (Entry, bool) {
	if it.done {
		return Entry{}, false
	}
	if it.slots == nil {
		if err := it.c.checkOpen(); err != nil {
			return it.fail(err)
		}
		h, err := it.c.readHeader()
		if err != nil {
			return it.fail(err)
		}
		it.slots = it.c.directorySlots(h)
	}

	for it.next < it.slots.Len() {
		i := it.next
		it.next++
		if err := it.slots.Get(i, it.buf[:]); err != nil {
			return it.fail(readError(fmt.Sprintf("read slot %d", i), err))
		}
		var e imagefile.Entry
		if err := e.UnmarshalBytes(it.buf[:]); err != nil {
			return it.fail(err)
		}
		if e.State() == imagefile.SlotActive {
			return entryFrom(i, &e), true
		}
	}
	it.done = true
	return Entry{}, false
}

func (it *Iter) fail(err error) (Entry, bool) {
	it.err = err
	it.done = true
	return Entry{}, false
}

// Err returns the error that stopped iteration, if any.
func (it *Iter) Err() error {
	return it.err
}

// Stats holds slot counts from a full directory scan and the container's
// file size.
type Stats struct {
	Active  int
	Empty   int
	Deleted int
	Size    int64
}

// Stats scans every slot and reconciles the result with the superblock's
// cached counters; a mismatch is reported as ErrCorruptFormat, along with
// the counts that were found.
func (c *Container) Stats() (Stats, error) {
	var s Stats
	if err := c.checkOpen(); err != nil {
		return s, err
	}
	h, err := c.readHeader()
	if err != nil {
		return s, err
	}
	d, err := c.loadDirectory(h)
	if err != nil {
		return s, err
	}
	for i := range d.entries {
		switch d.entries[i].State() {
		case imagefile.SlotEmpty:
			s.Empty++
		case imagefile.SlotActive:
			s.Active++
		case imagefile.SlotDeleted:
			s.Deleted++
		}
	}
	if s.Size, err = c.Size(); err != nil {
		return s, err
	}

	if s.Active != int(h.LiveCount) || s.Deleted != int(h.DeletedCount) || s.Empty != h.EmptyCount() {
		return s, fmt.Errorf("superblock counts %d active, %d deleted, %d empty but directory holds %d, %d, %d: %w",
			h.LiveCount, h.DeletedCount, h.EmptyCount(), s.Active, s.Deleted, s.Empty, ErrCorruptFormat)
	}
	return s, nil
}

// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/C-rispy/zvfs/internal/imagefile"
	"github.com/C-rispy/zvfs/internal/zero"
)

// AddFile stores the contents of the file at src under its base name.
func (c *Container) AddFile(src string) (Entry, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, fmt.Errorf("source %s: %w", src, ErrNotFound)
		}
		return Entry{}, ioError("read "+src, err)
	}
	return c.Add(filepath.Base(src), data)
}

// Add stores data under name in the first empty or deleted slot.  Names
// longer than 31 bytes are truncated.
//
// The blob is written before its directory entry and the superblock goes
// last, so a failure part way through can leave an orphaned blob past
// the old high-water mark but never a directory entry pointing at
// unwritten data; Defragment drops such orphans.
func (c *Container) Add(name string, data []byte) (Entry, error) {
	if err := c.checkWritable(); err != nil {
		return Entry{}, err
	}
	field, err := imagefile.MakeName(name)
	if err != nil {
		return Entry{}, err
	}
	key := string(bytes.TrimRight(field[:], "\x00"))

	h, err := c.readHeader()
	if err != nil {
		return Entry{}, err
	}
	if int(h.LiveCount) >= imagefile.MaxEntries {
		return Entry{}, fmt.Errorf("add %s: %d entries: %w", key, h.LiveCount, ErrCapacityExceeded)
	}
	d, err := c.loadDirectory(h)
	if err != nil {
		return Entry{}, err
	}
	if _, state := d.lookup(key); state == imagefile.SlotActive {
		return Entry{}, fmt.Errorf("add %s: %w", key, ErrDuplicateName)
	}

	slot := d.free.Next(0)
	if slot < 0 {
		return Entry{}, fmt.Errorf("add %s: superblock counts %d live entries but no slot is free: %w", key, h.LiveCount, ErrCorruptFormat)
	}
	reused := d.entries[slot].State() == imagefile.SlotDeleted
	if reused && h.DeletedCount == 0 {
		return Entry{}, fmt.Errorf("add %s: slot %d is a tombstone but superblock counts none: %w", key, slot, ErrCorruptFormat)
	}

	start, next, err := imagefile.Place(uint64(h.NextFreeOffset), uint64(len(data)))
	if err != nil {
		return Entry{}, fmt.Errorf("add %s: %w", key, err)
	}

	if gap := int64(start) - int64(h.NextFreeOffset); gap > 0 {
		if err := zero.WriteAt(c.f, int64(h.NextFreeOffset), gap); err != nil {
			return Entry{}, ioError("zero padding", err)
		}
	}
	if err := c.writeBlob(start, data); err != nil {
		return Entry{}, err
	}

	e := imagefile.Entry{
		Name:       field,
		DataStart:  start,
		DataLength: uint32(len(data)),
		TypeTag:    0,
		Flag:       imagefile.FlagActive,
		CreatedAt:  c.timestamp(),
	}
	if err := d.put(slot, e); err != nil {
		return Entry{}, err
	}

	h.LiveCount++
	if reused {
		h.DeletedCount--
	}
	h.NextFreeOffset = next
	if hint := d.free.Next(slot + 1); hint >= 0 {
		h.SetFreeHint(hint)
	} else {
		h.ClearFreeHint()
	}
	if err := c.commit(h); err != nil {
		return Entry{}, err
	}

	c.logger.Debug("added entry", "name", key, "slot", slot, "start", start, "length", len(data), "reused", reused)
	return entryFrom(slot, &e), nil
}

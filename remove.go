// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"fmt"

	"github.com/C-rispy/zvfs/internal/imagefile"
)

// Remove tombstones the active entry called name.  Its bytes stay where
// they are until Defragment; only the flag changes.
func (c *Container) Remove(name string) (Entry, error) {
	if err := c.checkWritable(); err != nil {
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
	case imagefile.SlotDeleted:
		return Entry{}, fmt.Errorf("remove %s: %w", key, ErrAlreadyDeleted)
	case imagefile.SlotEmpty:
		return Entry{}, fmt.Errorf("remove %s: %w", key, ErrNotFound)
	}
	if h.LiveCount == 0 {
		return Entry{}, fmt.Errorf("remove %s: slot %d is active but superblock counts none: %w", key, slot, ErrCorruptFormat)
	}

	e := d.entries[slot]
	e.Flag = imagefile.FlagDeleted
	if err := d.put(slot, e); err != nil {
		return Entry{}, err
	}

	h.LiveCount--
	h.DeletedCount++
	h.SetFreeHint(slot)
	if err := c.commit(h); err != nil {
		return Entry{}, err
	}

	c.logger.Debug("removed entry", "name", key, "slot", slot, "start", e.DataStart, "length", e.DataLength)
	return entryFrom(slot, &e), nil
}

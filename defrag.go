// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"fmt"

	"github.com/dgryski/go-farm"

	"github.com/C-rispy/zvfs/internal/imagefile"
	"github.com/C-rispy/zvfs/internal/zero"
)

// DefragResult summarizes a Defragment pass.
type DefragResult struct {
	// Removed is the number of tombstones dropped.
	Removed int

	// FreedBytes is how far the data region's high-water mark moved back.
	FreedBytes int64

	// Live is the number of entries kept.
	Live int
}

type liveRecord struct {
	key       string
	name      [imagefile.NameSize]byte
	data      []byte
	createdAt uint64
	sum       uint64
}

// Defragment rewrites the directory and data region: tombstones are
// dropped, active entries move to slots 0..n-1 in their current slot
// order, and their blobs are packed from the start of the data region.
// Names, contents and creation times are preserved.  The file is not
// truncated; bytes past the new high-water mark are simply unreachable.
func (c *Container) Defragment() (DefragResult, error) {
	var res DefragResult
	if err := c.checkWritable(); err != nil {
		return res, err
	}
	h, err := c.readHeader()
	if err != nil {
		return res, err
	}
	d, err := c.loadDirectory(h)
	if err != nil {
		return res, err
	}

	// every live blob is read before anything is written, since packing
	// can move a blob over the old location of one later in the scan
	var live []liveRecord
	for i := range d.entries {
		e := &d.entries[i]
		switch e.State() {
		case imagefile.SlotDeleted:
			res.Removed++
		case imagefile.SlotActive:
			data, err := c.readBlob(e.DataStart, e.DataLength)
			if err != nil {
				return res, fmt.Errorf("slot %d: %w", i, err)
			}
			live = append(live, liveRecord{
				key:       e.NameString(),
				name:      e.Name,
				data:      data,
				createdAt: e.CreatedAt,
				sum:       farm.Fingerprint64(data),
			})
		}
	}

	if err := d.slots.Clear(); err != nil {
		return res, ioError("clear directory", err)
	}

	off := uint64(h.DataRegionStart)
	starts := make([]uint32, len(live))
	for i, r := range live {
		start, next, err := imagefile.Place(off, uint64(len(r.data)))
		if err != nil {
			return res, fmt.Errorf("relocate %s: %w", r.key, err)
		}
		if gap := int64(start) - int64(off); gap > 0 {
			if err := zero.WriteAt(c.f, int64(off), gap); err != nil {
				return res, ioError("zero padding", err)
			}
		}
		if err := c.writeBlob(start, r.data); err != nil {
			return res, err
		}
		e := imagefile.Entry{
			Name:       r.name,
			DataStart:  start,
			DataLength: uint32(len(r.data)),
			Flag:       imagefile.FlagActive,
			CreatedAt:  r.createdAt,
		}
		if err := d.put(i, e); err != nil {
			return res, err
		}
		starts[i] = start
		off = uint64(next)
	}

	// read the relocated blobs back before the superblock makes the new
	// layout official
	for i, r := range live {
		data, err := c.readBlob(starts[i], uint32(len(r.data)))
		if err != nil {
			return res, err
		}
		if farm.Fingerprint64(data) != r.sum {
			return res, fmt.Errorf("%s (slot %d) changed while relocating: %w", r.key, i, ErrCorruptFormat)
		}
	}

	oldNext := h.NextFreeOffset
	h.NextFreeOffset = uint32(off)
	h.LiveCount = uint16(len(live))
	h.DeletedCount = 0
	if len(live) < imagefile.MaxEntries {
		h.SetFreeHint(len(live))
	} else {
		h.ClearFreeHint()
	}
	if err := c.commit(h); err != nil {
		return res, err
	}

	res.FreedBytes = int64(oldNext) - int64(h.NextFreeOffset)
	res.Live = len(live)
	c.logger.Debug("defragmented", "removed", res.Removed, "freed", res.FreedBytes, "live", res.Live, "next", h.NextFreeOffset)
	return res, nil
}

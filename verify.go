// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"fmt"

	"github.com/C-rispy/zvfs/internal/imagefile"
)

// Report lists the problems found by Verify.
type Report struct {
	Problems []string
}

func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify checks the container's structural invariants without modifying
// it.  The report is always returned; the error wraps ErrCorruptFormat
// when the report has problems.
func (c *Container) Verify() (*Report, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	h, err := c.readHeader()
	if err != nil {
		return nil, err
	}
	d, err := c.loadDirectory(h)
	if err != nil {
		return nil, err
	}
	size, err := c.Size()
	if err != nil {
		return nil, err
	}

	r := &Report{}
	if h.NextFreeOffset < h.DataRegionStart {
		r.addf("next free offset %d is below the data region start %d", h.NextFreeOffset, h.DataRegionStart)
	}
	if h.NextFreeOffset%imagefile.Alignment != 0 {
		r.addf("next free offset %d is not %d-byte aligned", h.NextFreeOffset, imagefile.Alignment)
	}

	var active, deleted int
	names := make(stringSet)
	for i := range d.entries {
		e := &d.entries[i]
		state := e.State()
		if state == imagefile.SlotEmpty {
			continue
		}
		name := e.NameString()
		if e.Flag > imagefile.FlagDeleted {
			r.addf("slot %d (%q): unknown flag %d", i, name, e.Flag)
		}
		if e.DataStart%imagefile.Alignment != 0 {
			r.addf("slot %d (%q): data start %d is not %d-byte aligned", i, name, e.DataStart, imagefile.Alignment)
		}
		if e.DataStart < h.DataRegionStart {
			r.addf("slot %d (%q): data start %d is before the data region", i, name, e.DataStart)
		}
		if state == imagefile.SlotDeleted {
			deleted++
			continue
		}

		active++
		if e.End() > uint64(h.NextFreeOffset) {
			r.addf("slot %d (%q): data ends at %d, past the next free offset %d", i, name, e.End(), h.NextFreeOffset)
		}
		// an empty blob may sit at a high-water mark past the last byte written
		if e.DataLength > 0 && e.End() > uint64(size) {
			r.addf("slot %d (%q): data ends at %d, past the end of the file (%d)", i, name, e.End(), size)
		}
		if names.Contains(name) {
			r.addf("slot %d (%q): duplicate active name", i, name)
		}
		names.Add(name)
	}

	if active != int(h.LiveCount) {
		r.addf("superblock counts %d live entries, directory holds %d", h.LiveCount, active)
	}
	if deleted != int(h.DeletedCount) {
		r.addf("superblock counts %d deleted entries, directory holds %d", h.DeletedCount, deleted)
	}

	if !r.OK() {
		return r, fmt.Errorf("%s: %d problems: %w", c.path, len(r.Problems), ErrCorruptFormat)
	}
	return r, nil
}

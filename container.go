// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/C-rispy/zvfs/internal/bitset"
	"github.com/C-rispy/zvfs/internal/flock"
	"github.com/C-rispy/zvfs/internal/imagefile"
	"github.com/C-rispy/zvfs/internal/ondisk"
)

// Entry describes one directory slot holding a blob.
type Entry struct {
	Name       string
	Slot       int
	DataStart  uint32
	DataLength uint32
	CreatedAt  time.Time
	Deleted    bool
}

func entryFrom(slot int, e *imagefile.Entry) Entry {
	return Entry{
		Name:       e.NameString(),
		Slot:       slot,
		DataStart:  e.DataStart,
		DataLength: e.DataLength,
		CreatedAt:  time.Unix(int64(e.CreatedAt), 0),
		Deleted:    e.State() == imagefile.SlotDeleted,
	}
}

// Container is an open container image.  Every operation loads the
// superblock and directory from the file when it starts and, if it
// mutates anything, writes the superblock back as its last step; nothing
// is cached between operations.  A Container is not safe for concurrent
// use; across processes the advisory lock taken by Open serializes
// writers.
type Container struct {
	path     string
	f        *os.File
	opts     options
	logger   *slog.Logger
	isClosed atomic.Bool
}

// Create initializes a new, empty container at path.  It fails with
// ErrAlreadyExists if anything exists at path.
func Create(path string, opts ...Option) (err error) {
	o := newOptions(opts)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create %s: %w", path, ErrAlreadyExists)
		}
		return ioError("create "+path, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	w := bufio.NewWriterSize(f, imagefile.DataRegionStart)
	if _, err = imagefile.NewHeader().WriteTo(w); err != nil {
		return ioError("write superblock", err)
	}
	if _, err = w.Write(make([]byte, imagefile.DirectorySize)); err != nil {
		return ioError("write directory", err)
	}
	if err = w.Flush(); err != nil {
		return ioError("bufio.Flush", err)
	}
	if err = f.Sync(); err != nil {
		return ioError("f.Sync", err)
	}
	if err = f.Close(); err != nil {
		return ioError("f.Close", err)
	}

	o.logger.Debug("created container", "path", path, "size", imagefile.DataRegionStart)
	return nil
}

// Open opens an existing container and takes an advisory lock on it
// (exclusive, or shared WithReadOnly) that is held until Close.
func Open(path string, opts ...Option) (*Container, error) {
	o := newOptions(opts)

	flag := os.O_RDWR
	if o.readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, ioError("open "+path, err)
	}
	if err := flock.Lock(f, !o.readOnly); err != nil {
		_ = f.Close()
		return nil, ioError("lock "+path, err)
	}

	c := &Container{
		path:   path,
		f:      f,
		opts:   o,
		logger: o.logger.With("container", path),
	}
	if _, err := c.readHeader(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return c, nil
}

// Path returns the path the container was opened with.
func (c *Container) Path() string {
	return c.path
}

// Close releases the lock and the file.  It is safe to call more than once.
func (c *Container) Close() error {
	if c.isClosed.Swap(true) {
		return nil
	}
	_ = flock.Unlock(c.f)
	if err := c.f.Close(); err != nil {
		return ioError("f.Close", err)
	}
	return nil
}

// Size is the current length of the container file.
func (c *Container) Size() (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	fi, err := c.f.Stat()
	if err != nil {
		return 0, ioError("f.Stat", err)
	}
	return fi.Size(), nil
}

func (c *Container) checkOpen() error {
	if c.isClosed.Load() {
		return fmt.Errorf("%s: %w", c.path, os.ErrClosed)
	}
	return nil
}

func (c *Container) checkWritable() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.opts.readOnly {
		return fmt.Errorf("%s: %w", c.path, ErrReadOnly)
	}
	return nil
}

func (c *Container) readHeader() (*imagefile.Header, error) {
	var buf [imagefile.HeaderSize]byte
	n, err := c.f.ReadAt(buf[:], 0)
	if n < len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, readError("read superblock", err)
	}

	var h imagefile.Header
	if err := h.UnmarshalBytes(buf[:]); err != nil {
		return nil, err
	}
	if c.opts.strict {
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}
	return &h, nil
}

// commit persists the superblock; it is the last write of every mutating
// operation.
func (c *Container) commit(h *imagefile.Header) error {
	var buf [imagefile.HeaderSize]byte
	if err := h.MarshalTo(buf[:]); err != nil {
		return err
	}
	if _, err := c.f.WriteAt(buf[:], 0); err != nil {
		return ioError("write superblock", err)
	}
	if err := c.f.Sync(); err != nil {
		return ioError("f.Sync", err)
	}
	return nil
}

func (c *Container) directorySlots(h *imagefile.Header) *ondisk.Slots {
	return ondisk.NewSlots(c.f, imagefile.MaxEntries, imagefile.EntrySize, int64(h.DirectoryOffset))
}

func (c *Container) readBlob(start, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	n, err := c.f.ReadAt(buf, int64(start))
	if n == len(buf) {
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, readError(fmt.Sprintf("read blob at %d (len %d)", start, length), err)
}

func (c *Container) writeBlob(start uint32, data []byte) error {
	if _, err := c.f.WriteAt(data, int64(start)); err != nil {
		return ioError(fmt.Sprintf("write blob at %d (len %d)", start, len(data)), err)
	}
	return nil
}

func (c *Container) timestamp() uint64 {
	t := c.opts.now().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

// directory is one scan of the slot array.  free has a bit set for every
// slot that can take a new entry (empty or deleted).
type directory struct {
	slots   *ondisk.Slots
	entries [imagefile.MaxEntries]imagefile.Entry
	free    *bitset.Bitset
}

func (c *Container) loadDirectory(h *imagefile.Header) (*directory, error) {
	slots := c.directorySlots(h)
	raw, err := slots.ReadAll()
	if err != nil {
		return nil, readError("read directory", err)
	}

	d := &directory{
		slots: slots,
		free:  bitset.New(imagefile.MaxEntries),
	}
	for i := range d.entries {
		if err := d.entries[i].UnmarshalBytes(raw[i*imagefile.EntrySize:]); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		if d.entries[i].State() != imagefile.SlotActive {
			d.free.Set(i)
		}
	}
	return d, nil
}

// lookup returns the slot of the active entry called name.  If only
// tombstones carry the name, the first of them is returned with
// SlotDeleted; with no match at all the slot is -1.
func (d *directory) lookup(name string) (int, imagefile.SlotState) {
	deleted := -1
	for i := range d.entries {
		e := &d.entries[i]
		state := e.State()
		if state == imagefile.SlotEmpty || e.NameString() != name {
			continue
		}
		if state == imagefile.SlotActive {
			return i, imagefile.SlotActive
		}
		if deleted < 0 {
			deleted = i
		}
	}
	if deleted >= 0 {
		return deleted, imagefile.SlotDeleted
	}
	return -1, imagefile.SlotEmpty
}

func (d *directory) put(i int, e imagefile.Entry) error {
	d.entries[i] = e
	if e.State() == imagefile.SlotActive {
		d.free.Clear(i)
	} else {
		d.free.Set(i)
	}
	if err := d.slots.Set(i, e.Bytes()); err != nil {
		return ioError(fmt.Sprintf("write slot %d", i), err)
	}
	return nil
}

// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"errors"
	"fmt"
	"io"

	"github.com/C-rispy/zvfs/internal/imagefile"
)

var (
	// ErrNotFound is returned when a container, source file or entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by Create when the path is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrCapacityExceeded is returned when every directory slot holds an active entry.
	ErrCapacityExceeded = errors.New("directory is full")

	// ErrDuplicateName is returned when adding a name that is already active.
	ErrDuplicateName = errors.New("an active entry with this name already exists")

	// ErrDeleted is returned by lookups that only match a tombstoned entry.
	ErrDeleted = errors.New("entry is deleted")

	// ErrAlreadyDeleted is returned when removing a tombstoned entry.
	ErrAlreadyDeleted = errors.New("entry is already deleted")

	// ErrIO wraps failures of the underlying file.
	ErrIO = errors.New("i/o failure")

	// ErrReadOnly is returned by mutating operations on a container opened WithReadOnly.
	ErrReadOnly = errors.New("container is open read-only")
)

// Errors re-exported from the image format.
var (
	// ErrCorruptFormat is returned when the container is structurally inconsistent.
	ErrCorruptFormat = imagefile.ErrCorruptFormat

	// ErrSizeLimitExceeded is returned when an add would grow the data region past 4 GiB.
	ErrSizeLimitExceeded = imagefile.ErrSizeLimitExceeded

	// ErrInvalidName is returned for empty names and names containing NUL.
	ErrInvalidName = imagefile.ErrInvalidName
)

func ioError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// readError classifies a failed read of a fixed region: running off the
// end of the file means the container is truncated, anything else is I/O.
func readError(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: truncated container: %w", op, ErrCorruptFormat)
	}
	return ioError(op, err)
}

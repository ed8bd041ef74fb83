// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build unix

// Package flock holds advisory whole-file locks on open containers.
package flock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock blocks until it holds an exclusive (or, if exclusive is false, a
// shared) advisory lock on f.  The lock is released by Unlock or when f
// is closed.
func Lock(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	for {
		err := unix.Flock(int(f.Fd()), how)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("flock(%s): %w", f.Name(), err)
		}
		return nil
	}
}

func Unlock(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("flock(%s, LOCK_UN): %w", f.Name(), err)
	}
	return nil
}

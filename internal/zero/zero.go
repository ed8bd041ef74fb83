// Copyright 2021 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package zero provides functions to zero file regions.
package zero

import (
	"fmt"
	"io"
)

const chunkSize = 64 * 1024

// shared source of zeroes; never written to
var zeroes [chunkSize]byte

// WriteAt writes n zero bytes to w starting at off.
func WriteAt(w io.WriterAt, off, n int64) error {
	if off < 0 || n < 0 {
		return fmt.Errorf("invalid zero range (off %d, len %d)", off, n)
	}
	for n > 0 {
		chunk := int64(len(zeroes))
		if n < chunk {
			chunk = n
		}
		written, err := w.WriteAt(zeroes[:chunk], off)
		if err != nil {
			return fmt.Errorf("WriteAt(%d, len: %d): %w", off, chunk, err)
		} else if int64(written) != chunk {
			return fmt.Errorf("short write of %d (wanted %d) at %d", written, chunk, off)
		}
		off += chunk
		n -= chunk
	}
	return nil
}

// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !unix

package flock

import "os"

// Lock is a no-op on platforms without flock(2); callers must serialize
// access themselves.
func Lock(*os.File, bool) error {
	return nil
}

func Unlock(*os.File) error {
	return nil
}

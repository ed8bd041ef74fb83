// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package zvfs reads and writes zvfs containers: single files holding up
// to 32 named blobs behind a fixed 64-byte superblock and a 32-slot
// directory.
//
// Blobs are bump-allocated at 64-byte aligned offsets.  Removing an entry
// only tombstones its directory slot; the space comes back when
// Defragment repacks the live entries.
//
//	if err := zvfs.Create("img"); err != nil {
//		return err
//	}
//	c, err := zvfs.Open("img")
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	if _, err := c.Add("hello.txt", []byte("hi")); err != nil {
//		return err
//	}
//	data, err := c.Get("hello.txt")
//
// A container is meant for one actor at a time.  Open takes an advisory
// flock(2) on the file for as long as the Container stays open.
package zvfs

// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package imagefile contains the on-disk structures of a zvfs container
// image: the superblock, directory entries, and the bump allocator that
// places blob data.
//
// A container looks like:
//
//	┌───────────────────┐ 0
//	│ superblock        │
//	├───────────────────┤ 64
//	│ directory         │
//	│ 32 x 64-byte      │
//	│ entries           │
//	├───────────────────┤ 2112
//	│ data region       │
//	│ (64-byte aligned  │
//	│  blobs, gaps are  │
//	│  zero-filled)     │
//	│                   │
//	└───────────────────┘
//
// The superblock is 64 bytes, all integers little-endian:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic "ZVFSDSK1"                      |
//	+----+----+----+----+----+----+----+----+
//	|ver |hint| rsv0    | live    | cap     |
//	+----+----+----+----+----+----+----+----+
//	| entsize | rsv1    | directory offset  |
//	+----+----+----+----+----+----+----+----+
//	| data region start | next free offset  |
//	+----+----+----+----+----+----+----+----+
//	| free hint offset  | deleted | rsv2... |
//	+----+----+----+----+----+----+----+----+
//
// and each directory entry is 64 bytes:
//
//	 0                               32   36   40   41   42   44        52   64
//	+--------------------------------+----+----+----+----+----+---------+----+
//	| name (NUL padded)              |strt|len |type|flag|rsv |created  |rsv |
//	+--------------------------------+----+----+----+----+----+---------+----+
//
// An entry whose name is all zero bytes is empty. Otherwise flag 0 marks
// it active and flag 1 marks it deleted (a tombstone).
package imagefile

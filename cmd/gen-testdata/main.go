// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command gen-testdata fills a zvfs container with pseudo-random blobs.
package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/C-rispy/zvfs"
)

const (
	prefix    = "blob_"
	suffixLen = 16
)

var (
	nBlobs  = flag.Int("n", 8, "number of blobs to add")
	seed    = flag.Int64("seed", 0, "random seed (0 picks one)")
	maxSize = flag.Int("size", 4096, "maximum blob size in bytes")
	verbose = flag.Bool("v", false, "debug logging")
)

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		var seedBytes [8]byte
		if _, err := crand.Read(seedBytes[:]); err != nil {
			panic(err)
		}
		seed = int64(binary.LittleEndian.Uint64(seedBytes[:]))
	}
	return rand.New(rand.NewSource(seed))
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] CONTAINER\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 || *nBlobs < 0 || *maxSize < 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := generate(flag.Arg(0), newRand(*seed), *nBlobs, *maxSize, logger); err != nil {
		fmt.Fprintf(os.Stderr, "gen-testdata: %s\n", err)
		os.Exit(1)
	}
}

func generate(path string, rng *rand.Rand, n, maxSize int, logger *slog.Logger) (err error) {
	if err := zvfs.Create(path, zvfs.WithLogger(logger)); err != nil && !errors.Is(err, zvfs.ErrAlreadyExists) {
		return err
	}
	c, err := zvfs.Open(path, zvfs.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}()

	for i := 0; i < n; i++ {
		var buf [suffixLen / 2]byte
		if _, err := rng.Read(buf[:]); err != nil {
			return err
		}
		name := fmt.Sprintf("%s%x", prefix, buf)

		data := make([]byte, rng.Intn(maxSize+1))
		if _, err := rng.Read(data); err != nil {
			return err
		}
		e, err := c.Add(name, data)
		if err != nil {
			return fmt.Errorf("blob %d of %d: %w", i+1, n, err)
		}
		logger.Debug("added blob", "name", e.Name, "slot", e.Slot, "start", e.DataStart, "len", e.DataLength)
	}
	return nil
}

// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package zvfs

import (
	"io"
	"log/slog"
	"time"
)

// Option configures Create and Open.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	strict   bool
	readOnly bool
	now      func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets an optional logger for debug output.
// If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStrict makes Open reject superblocks with a wrong magic, version or
// geometry instead of trusting them.
func WithStrict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithReadOnly opens the container read-only under a shared lock.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithClock overrides the source of entry creation times.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package imagefile

import (
	"fmt"
	"strings"
)

// NormalizeName returns the form of name that is stored in (and compared
// against) a directory entry: its first MaxNameLen bytes.  The cut is by
// byte, so it can split a multi-byte character; lookups cut the same way.
func NormalizeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty name: %w", ErrInvalidName)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return "", fmt.Errorf("name %q contains NUL: %w", name, ErrInvalidName)
	}
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	return name, nil
}

// MakeName returns the NUL-padded name field for name.
func MakeName(name string) (field [NameSize]byte, err error) {
	name, err = NormalizeName(name)
	if err != nil {
		return field, err
	}
	copy(field[:], name)
	return field, nil
}

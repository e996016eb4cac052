// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !windows && !darwin

package memstat

import (
	"errors"
	"runtime"
)

func selfQuery() Query {
	return func() (Counters, error) {
		return Counters{}, errors.New("memstat: unsupported on " + runtime.GOOS)
	}
}

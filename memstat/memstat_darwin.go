// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memstat

import "golang.org/x/sys/unix"

// On Darwin only the peak resident size is available without task
// ports; the other counters stay zero.
func selfQuery() Query {
	return func() (Counters, error) {
		var ru unix.Rusage
		if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
			return Counters{}, err
		}
		// ru_maxrss is in bytes on Darwin.
		return Counters{PeakWorkingSet: uint64(ru.Maxrss)}, nil
	}
}

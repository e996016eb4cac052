// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memstat

import "github.com/prometheus/procfs"

func selfQuery() Query {
	return ProcQuery(procfs.DefaultMountPoint, 0)
}

// ProcQuery returns a Query that reads /proc/<pid>/status under the
// procfs mount point mount. If pid is 0, it reads the current
// process.
//
// The status file is read in one go, so all four counters come from
// the same instant:
//
//	working set      VmRSS
//	private usage    RssAnon + VmSwap
//	pagefile usage   VmSwap
//	peak working set VmHWM
func ProcQuery(mount string, pid int) Query {
	return func() (Counters, error) {
		fs, err := procfs.NewFS(mount)
		if err != nil {
			return Counters{}, err
		}
		var p procfs.Proc
		if pid == 0 {
			p, err = fs.Self()
		} else {
			p, err = fs.Proc(pid)
		}
		if err != nil {
			return Counters{}, err
		}
		st, err := p.NewStatus()
		if err != nil {
			return Counters{}, err
		}
		return Counters{
			WorkingSet:     st.VmRSS,
			PrivateUsage:   st.RssAnon + st.VmSwap,
			PagefileUsage:  st.VmSwap,
			PeakWorkingSet: st.VmHWM,
		}, nil
	}
}

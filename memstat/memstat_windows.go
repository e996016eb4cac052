// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memstat

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var procGetProcessMemoryInfo = windows.NewLazySystemDLL("kernel32.dll").NewProc("K32GetProcessMemoryInfo")

// processMemoryCountersEx mirrors PROCESS_MEMORY_COUNTERS_EX.
type processMemoryCountersEx struct {
	cb                         uint32
	pageFaultCount             uint32
	peakWorkingSetSize         uintptr
	workingSetSize             uintptr
	quotaPeakPagedPoolUsage    uintptr
	quotaPagedPoolUsage        uintptr
	quotaPeakNonPagedPoolUsage uintptr
	quotaNonPagedPoolUsage     uintptr
	pagefileUsage              uintptr
	peakPagefileUsage          uintptr
	privateUsage               uintptr
}

func selfQuery() Query {
	return func() (Counters, error) {
		if err := procGetProcessMemoryInfo.Find(); err != nil {
			return Counters{}, err
		}
		var c processMemoryCountersEx
		c.cb = uint32(unsafe.Sizeof(c))
		r, _, err := procGetProcessMemoryInfo.Call(
			uintptr(windows.CurrentProcess()),
			uintptr(unsafe.Pointer(&c)),
			uintptr(c.cb),
		)
		if r == 0 {
			return Counters{}, err
		}
		return Counters{
			WorkingSet:     uint64(c.workingSetSize),
			PrivateUsage:   uint64(c.privateUsage),
			PagefileUsage:  uint64(c.pagefileUsage),
			PeakWorkingSet: uint64(c.peakWorkingSetSize),
		}, nil
	}
}

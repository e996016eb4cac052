// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memstat

import (
	"errors"
	"testing"
)

func TestCountersSnapshot(t *testing.T) {
	check := func(c Counters, want Snapshot) {
		t.Helper()
		if got := c.Snapshot(); got != want {
			t.Errorf("%+v.Snapshot() = %+v, want %+v", c, got, want)
		}
	}
	check(Counters{}, Snapshot{})
	check(Counters{WorkingSet: mb - 1}, Snapshot{})
	check(Counters{WorkingSet: mb, PrivateUsage: 2*mb + 1, PagefileUsage: 3 * mb, PeakWorkingSet: 10*mb - 1},
		Snapshot{WorkingSetMB: 1, PrivateUsageMB: 2, PagefileUsageMB: 3, PeakWorkingSetMB: 9})
}

func TestSampleFailureIsZero(t *testing.T) {
	calls := 0
	p := New(func() (Counters, error) {
		calls++
		return Counters{WorkingSet: 5 * mb}, errors.New("access denied")
	})
	if s := p.Sample(); !s.IsZero() {
		t.Errorf("Sample() = %+v after failed query, want zero", s)
	}
	if q := p.Quick(); q != (QuickSnapshot{}) {
		t.Errorf("Quick() = %+v after failed query, want zero", q)
	}
	if calls != 2 {
		t.Errorf("query called %d times, want 2", calls)
	}
}

func TestSamplePanicIsZero(t *testing.T) {
	p := New(func() (Counters, error) { panic("boom") })
	if s := p.Sample(); !s.IsZero() {
		t.Errorf("Sample() = %+v after panicking query, want zero", s)
	}
}

func TestNilQuery(t *testing.T) {
	var p *Process
	if s := p.Sample(); !s.IsZero() {
		t.Errorf("nil Process Sample() = %+v, want zero", s)
	}
	if s := New(nil).Sample(); !s.IsZero() {
		t.Errorf("nil Query Sample() = %+v, want zero", s)
	}
}

func TestQuickSharesOneQuery(t *testing.T) {
	calls := 0
	p := New(func() (Counters, error) {
		calls++
		return Counters{WorkingSet: uint64(calls) * mb, PrivateUsage: uint64(calls) * 2 * mb}, nil
	})
	q := p.Quick()
	if calls != 1 {
		t.Fatalf("Quick() ran %d queries, want 1", calls)
	}
	// Both counters must come from the same query.
	if q.PrivateUsageMB != 2*q.WorkingSetMB {
		t.Errorf("Quick() = %+v mixes counters from different queries", q)
	}
	s := p.Sample()
	if calls != 2 {
		t.Fatalf("Sample() ran %d queries, want 1", calls-1)
	}
	if s.Quick() != (QuickSnapshot{WorkingSetMB: 2, PrivateUsageMB: 4}) {
		t.Errorf("Sample().Quick() = %+v", s.Quick())
	}
}

func TestDisabled(t *testing.T) {
	for i := 0; i < 3; i++ {
		if s := Disabled.Sample(); !s.IsZero() {
			t.Fatalf("Disabled.Sample() = %+v", s)
		}
	}
}

func TestSelfNeverFails(t *testing.T) {
	// Whatever the platform supports, sampling the current process
	// must not panic and must produce a well-formed snapshot.
	s := Self().Sample()
	if s.WorkingSetMB > s.PeakWorkingSetMB && s.PeakWorkingSetMB != 0 {
		t.Errorf("working set %d MB exceeds peak %d MB", s.WorkingSetMB, s.PeakWorkingSetMB)
	}
}

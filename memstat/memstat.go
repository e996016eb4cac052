// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memstat samples process-level memory counters.
//
// A sample is a point-in-time read of the four counters the operating
// system keeps for the current process: working set, private usage,
// pagefile usage and peak working set. Sampling never fails outwardly.
// If the underlying query fails, the sample is the zero Snapshot,
// which callers should read as "telemetry unavailable".
//
// Every sample is derived from exactly one OS query, so the counters
// in a Snapshot were all read at the same instant.
package memstat

import (
	"fmt"
	"log/slog"
)

// A Snapshot is the memory state of a process at one instant, in
// mebibytes. The zero Snapshot means the sample was unavailable.
type Snapshot struct {
	WorkingSetMB     uint64 // physical memory currently mapped
	PrivateUsageMB   uint64 // memory allocated exclusively to the process
	PagefileUsageMB  uint64 // memory backed by the pagefile or swap
	PeakWorkingSetMB uint64 // largest working set so far
}

// IsZero reports whether s carries no telemetry.
func (s Snapshot) IsZero() bool {
	return s == Snapshot{}
}

// Quick returns the two-counter view of s.
func (s Snapshot) Quick() QuickSnapshot {
	return QuickSnapshot{WorkingSetMB: s.WorkingSetMB, PrivateUsageMB: s.PrivateUsageMB}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("working set %d MB, private %d MB, pagefile %d MB, peak working set %d MB",
		s.WorkingSetMB, s.PrivateUsageMB, s.PagefileUsageMB, s.PeakWorkingSetMB)
}

// LogValue implements slog.LogValuer.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("working_set_mb", s.WorkingSetMB),
		slog.Uint64("private_mb", s.PrivateUsageMB),
		slog.Uint64("pagefile_mb", s.PagefileUsageMB),
		slog.Uint64("peak_working_set_mb", s.PeakWorkingSetMB),
	)
}

// A QuickSnapshot is the reduced view of a Snapshot: working set and
// private usage only.
type QuickSnapshot struct {
	WorkingSetMB   uint64
	PrivateUsageMB uint64
}

func (s QuickSnapshot) String() string {
	return fmt.Sprintf("RAM = %d MB (working set), private = %d MB", s.WorkingSetMB, s.PrivateUsageMB)
}

// Counters is the raw result of one OS memory query, in bytes.
type Counters struct {
	WorkingSet     uint64
	PrivateUsage   uint64
	PagefileUsage  uint64
	PeakWorkingSet uint64
}

const mb = 1024 * 1024

// Snapshot converts c to mebibytes, rounding down.
func (c Counters) Snapshot() Snapshot {
	return Snapshot{
		WorkingSetMB:     c.WorkingSet / mb,
		PrivateUsageMB:   c.PrivateUsage / mb,
		PagefileUsageMB:  c.PagefileUsage / mb,
		PeakWorkingSetMB: c.PeakWorkingSet / mb,
	}
}

// A Query reads all memory counters of a process in a single call. It
// either succeeds or fails as a whole.
type Query func() (Counters, error)

// A Provider samples process memory.
type Provider interface {
	// Sample returns the current memory state. It has no side
	// effects and may be called any number of times.
	Sample() Snapshot
}

// A QuickProvider additionally offers the two-counter view.
type QuickProvider interface {
	Provider
	Quick() QuickSnapshot
}

// Process is a Provider backed by a Query.
type Process struct {
	query  Query
	logger *slog.Logger
}

var _ QuickProvider = (*Process)(nil)

// New returns a Provider that runs q once per sample.
func New(q Query) *Process {
	return &Process{query: q}
}

// WithLogger returns a copy of p that reports query failures to l at
// debug level.
func (p *Process) WithLogger(l *slog.Logger) *Process {
	p2 := *p
	p2.logger = l
	return &p2
}

// Self returns a Provider for the current process.
func Self() *Process {
	return New(selfQuery())
}

// Sample implements Provider.
func (p *Process) Sample() Snapshot {
	c, ok := p.read()
	if !ok {
		return Snapshot{}
	}
	return c.Snapshot()
}

// Quick implements QuickProvider.
func (p *Process) Quick() QuickSnapshot {
	return p.Sample().Quick()
}

func (p *Process) read() (c Counters, ok bool) {
	if p == nil || p.query == nil {
		return Counters{}, false
	}
	defer func() {
		// A query is diagnostic; it must not take the caller down.
		if r := recover(); r != nil {
			p.debug("memory query panicked", fmt.Errorf("%v", r))
			c, ok = Counters{}, false
		}
	}()
	c, err := p.query()
	if err != nil {
		p.debug("memory query failed", err)
		return Counters{}, false
	}
	return c, true
}

func (p *Process) debug(msg string, err error) {
	l := p.logger
	if l == nil {
		l = slog.Default()
	}
	l.Debug(msg, "err", err)
}

// Disabled is a Provider that always reports the zero Snapshot.
var Disabled Provider = disabled{}

type disabled struct{}

func (disabled) Sample() Snapshot     { return Snapshot{} }
func (disabled) Quick() QuickSnapshot { return QuickSnapshot{} }

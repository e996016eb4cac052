// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/pipebench/pipebench/memstat"
	"github.com/pipebench/pipebench/pipeline"
	"golang.org/x/perf/benchfmt"
)

// Memory units, in bytes. Snapshots are in mebibytes; a "MB" unit
// would be tidied by benchfmt readers as 10^6 bytes. Each counter is
// sampled once per stage, so every trial of a stage reports the same
// value.
var memUnits = []struct {
	unit string
	get  func(memstat.Snapshot) uint64
}{
	{"working-set-B", func(s memstat.Snapshot) uint64 { return s.WorkingSetMB }},
	{"private-B", func(s memstat.Snapshot) uint64 { return s.PrivateUsageMB }},
	{"pagefile-B", func(s memstat.Snapshot) uint64 { return s.PagefileUsageMB }},
	{"peak-working-set-B", func(s memstat.Snapshot) uint64 { return s.PeakWorkingSetMB }},
}

// BenchmarkName returns the benchmark name of a forced stage, or of
// lazy mode if stage is empty, without the "Benchmark" prefix.
func BenchmarkName(stage string) string {
	if stage == "" {
		return "Pipeline/mode=lazy"
	}
	return "Pipeline/mode=forced/stage=" + stage
}

// WriteBenchfmt writes r in the Go benchmark format, one result line
// per trial.
func WriteBenchfmt(w io.Writer, r *pipeline.Report) error {
	bw := benchfmt.NewWriter(w)
	for _, u := range memUnits {
		if err := bw.Write(&benchfmt.UnitMetadata{
			UnitMetadataKey: benchfmt.UnitMetadataKey{Unit: u.unit, Key: "assume"},
			OrigUnit:        u.unit,
			Value:           "exact",
		}); err != nil {
			return err
		}
	}

	rows := 0
	if len(r.Forced) > 0 {
		rows = r.Forced[0].Rows
	}
	res := &benchfmt.Result{
		Config: []benchfmt.Config{
			{Key: "goos", Value: []byte(runtime.GOOS), File: true},
			{Key: "goarch", Value: []byte(runtime.GOARCH), File: true},
			{Key: "source", Value: []byte(r.Source), File: true},
			{Key: "rows", Value: []byte(strconv.Itoa(rows)), File: true},
			{Key: "runid", Value: []byte(r.RunID.String()), File: true},
		},
		Iters: 1,
	}
	write := func(name string, durations []time.Duration, mem memstat.Snapshot) error {
		res.Name = benchfmt.Name(name)
		for _, d := range durations {
			res.Values = append(res.Values[:0], benchfmt.Value{Value: float64(d.Nanoseconds()), Unit: "ns/op"})
			for _, u := range memUnits {
				res.Values = append(res.Values, benchfmt.Value{Value: float64(u.get(mem) << 20), Unit: u.unit})
			}
			if err := bw.Write(res); err != nil {
				return err
			}
		}
		return nil
	}
	for _, sr := range r.Forced {
		if err := write(BenchmarkName(sr.Stage), sr.Durations, sr.MemoryAfter); err != nil {
			return err
		}
	}
	return write(BenchmarkName(""), r.Lazy.Durations, r.Lazy.Memory)
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/pipebench/pipebench/memstat"
	"github.com/pipebench/pipebench/pipeline"
	"golang.org/x/perf/benchmath"
)

// stageTable returns the forced stages and the lazy plan as one
// table, one row per stage. The Δ columns are relative to the
// baseline snapshot taken before the first stage.
func stageTable(r *pipeline.Report, confidence float64) *table.Table {
	n := len(r.Forced) + 1
	var (
		names  = make([]string, 0, n)
		trials = make([]int, 0, n)
		avgs   = make([]string, 0, n)
		cis    = make([]string, 0, n)
		rows   = make([]int, 0, n)
		mems   = make([]memstat.Snapshot, 0, n)
	)
	add := func(name string, avg, ci string, t, nrows int, mem memstat.Snapshot) {
		names = append(names, name)
		avgs = append(avgs, avg)
		cis = append(cis, ci)
		trials = append(trials, t)
		rows = append(rows, nrows)
		mems = append(mems, mem)
	}
	for _, sr := range r.Forced {
		add("forced/"+sr.Stage, formatDuration(sr.Average), spread(sr.Durations, confidence), sr.Trials, sr.Rows, sr.MemoryAfter)
	}
	add("lazy", formatDuration(r.Lazy.Average), spread(r.Lazy.Durations, confidence), r.Lazy.Trials, r.Lazy.Rows, r.Lazy.Memory)

	ws := make([]uint64, n)
	wsDelta := make([]string, n)
	priv := make([]uint64, n)
	privDelta := make([]string, n)
	page := make([]uint64, n)
	peak := make([]uint64, n)
	for i, m := range mems {
		ws[i], priv[i], page[i], peak[i] = m.WorkingSetMB, m.PrivateUsageMB, m.PagefileUsageMB, m.PeakWorkingSetMB
		wsDelta[i] = memDelta(m.WorkingSetMB, r.Baseline.WorkingSetMB)
		privDelta[i] = memDelta(m.PrivateUsageMB, r.Baseline.PrivateUsageMB)
	}

	return new(table.Builder).
		Add("stage", names).
		Add("trials", trials).
		Add("avg", avgs).
		Add("±", cis).
		Add("rows", rows).
		Add("ws-MB", ws).
		Add("Δws-MB", wsDelta).
		Add("private-MB", priv).
		Add("Δprivate-MB", privDelta).
		Add("pagefile-MB", page).
		Add("peak-MB", peak).
		Done()
}

// memDelta formats the change of a counter from its baseline value,
// such as "+12" or "-3".
func memDelta(mb, baseline uint64) string {
	return fmt.Sprintf("%+d", int64(mb)-int64(baseline))
}

// WriteText writes r for a person to read.
func WriteText(w io.Writer, r *pipeline.Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "run: %s\n", r.RunID)
	if r.Source != "" {
		fmt.Fprintf(bw, "source: %s\n", r.Source)
	}
	fmt.Fprintf(bw, "baseline memory: %s\n\n", r.Baseline)

	if err := table.Fprint(bw, stageTable(r, DefaultConfidence)); err != nil {
		return err
	}
	fmt.Fprintf(bw, "\nforced total: %s\n", formatDuration(r.Forced.Total()))

	c := Compare(r, DefaultConfidence)
	fmt.Fprintf(bw, "forced vs lazy: %s → %s  %s  (%s)\n",
		formatSeconds(c.Forced.Center), formatSeconds(c.Lazy.Center), c.Delta, c.Test)
	eq := r.Equivalence
	fmt.Fprintf(bw, "equivalent: %d rows, %d groups, max relative difference %.3g (tolerance %g)\n",
		eq.Rows, eq.Keys, eq.MaxRelDiff, eq.Tolerance)

	fmt.Fprintf(bw, "\noptimized plan:\n")
	for _, line := range strings.Split(strings.TrimRight(r.Lazy.Plan, "\n"), "\n") {
		fmt.Fprintf(bw, "  %s\n", line)
	}
	if r.Lazy.Result != nil {
		fmt.Fprintf(bw, "\nresult (%d rows):\n", r.Lazy.Result.Height())
		if err := r.Lazy.Result.Fprint(bw); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// spread returns the half-width of the confidence interval of the
// mean of ds as a percentage of the mean, such as "3%".
func spread(ds []time.Duration, confidence float64) string {
	if len(ds) < 2 {
		return "-"
	}
	s := benchmath.NewSample(seconds(ds), &benchmath.DefaultThresholds)
	return benchmath.AssumeNormal.Summary(s, confidence).PctRangeString()
}

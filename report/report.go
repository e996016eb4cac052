// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders a pipeline benchmark report.
//
// The text form is meant for people and may change. The benchmark
// format written by WriteBenchfmt is the Go benchmark format and can
// be fed to benchstat; each trial is one result line, so benchstat
// sees the full distribution of every stage.
package report

import (
	"time"

	"github.com/pipebench/pipebench/pipeline"
	"golang.org/x/perf/benchmath"
	"golang.org/x/perf/benchunit"
)

// DefaultConfidence is the confidence level of reported intervals.
const DefaultConfidence = 0.95

// A Comparison compares the total time of forced mode with the time
// of lazy mode.
type Comparison struct {
	// Forced summarizes, in seconds, the per-trial sums of the
	// forced stages: trial i of forced mode is the sum of trial i
	// of every stage.
	Forced benchmath.Summary

	// Lazy summarizes the lazy trials, in seconds.
	Lazy benchmath.Summary

	// Test is the significance test of the two samples.
	Test benchmath.Comparison

	// Delta is the change from forced to lazy as a percentage,
	// or "~" if the difference is not significant.
	Delta string
}

// Compare compares forced and lazy mode of r. It makes no assumption
// about the distribution of the timings, like benchstat.
func Compare(r *pipeline.Report, confidence float64) Comparison {
	fs := benchmath.NewSample(forcedTotals(r.Forced), &benchmath.DefaultThresholds)
	ls := benchmath.NewSample(seconds(r.Lazy.Durations), &benchmath.DefaultThresholds)
	var c Comparison
	c.Forced = benchmath.AssumeNothing.Summary(fs, confidence)
	c.Lazy = benchmath.AssumeNothing.Summary(ls, confidence)
	c.Test = benchmath.AssumeNothing.Compare(fs, ls)
	c.Delta = c.Test.FormatDelta(c.Forced.Center, c.Lazy.Center)
	return c
}

// forcedTotals returns the per-trial sums of the forced stages in
// seconds.
func forcedTotals(f pipeline.Forced) []float64 {
	n := -1
	for _, sr := range f {
		if n < 0 || len(sr.Durations) < n {
			n = len(sr.Durations)
		}
	}
	totals := make([]float64, max(n, 0))
	for _, sr := range f {
		for i := range totals {
			totals[i] += sr.Durations[i].Seconds()
		}
	}
	return totals
}

func seconds(ds []time.Duration) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.Seconds()
	}
	return out
}

// formatDuration formats d with three significant digits and an SI
// prefix, such as "12.30ms".
func formatDuration(d time.Duration) string {
	return benchunit.Scale(d.Seconds(), benchunit.Decimal) + "s"
}

func formatSeconds(s float64) string {
	return benchunit.Scale(s, benchunit.Decimal) + "s"
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trial runs an operation a fixed number of times and reports
// its average wall-clock duration.
//
// Trials run one after another on the calling goroutine. The first
// failing trial aborts the run; a mean over a mix of successful and
// failed runs is not a latency, so no average is reported in that
// case.
//
// Run assumes the operation is idempotent: it keeps only the value
// returned by the last trial.
package trial

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/perf/benchmath"
)

// ErrConfig is wrapped by every error caused by an invalid benchmark
// configuration, such as a trial count below one. Such errors are
// reported before any operation runs.
var ErrConfig = errors.New("invalid benchmark configuration")

// A TrialError reports that one trial of an operation failed.
// It unwraps to the operation's own error.
type TrialError struct {
	Label  string
	Trial  int // 1-based
	Trials int
	Err    error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("%s: trial %d of %d: %v", e.Label, e.Trial, e.Trials, e.Err)
}

func (e *TrialError) Unwrap() error {
	return e.Err
}

// A Runner carries the clock and logger used by Run. The zero Runner
// uses time.Now and slog.Default.
type Runner struct {
	// Now returns the current time. Tests may replace it with a
	// fake clock.
	Now func() time.Time

	// Logger receives a debug record per trial and an info record
	// per completed run.
	Logger *slog.Logger
}

func (r *Runner) now() time.Time {
	if r == nil || r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) logger() *slog.Logger {
	if r == nil || r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// A Result is the outcome of a successful Run.
type Result[T any] struct {
	Label string

	// Value is the value returned by the last trial.
	Value T

	// Durations holds the duration of each trial, in order.
	Durations []time.Duration

	// Average is the arithmetic mean of Durations, rounded down.
	Average time.Duration
}

// Trials returns the number of trials in r.
func (r Result[T]) Trials() int {
	return len(r.Durations)
}

// Sample returns the trial durations in seconds as a benchmath
// Sample.
func (r Result[T]) Sample() *benchmath.Sample {
	vals := make([]float64, len(r.Durations))
	for i, d := range r.Durations {
		vals[i] = d.Seconds()
	}
	return benchmath.NewSample(vals, &benchmath.DefaultThresholds)
}

// Summary summarizes the trial durations, in seconds, as a mean with
// a confidence interval at the given confidence level.
func (r Result[T]) Summary(confidence float64) benchmath.Summary {
	return benchmath.AssumeNormal.Summary(r.Sample(), confidence)
}

// Run invokes op exactly trials times, sequentially, timing each call,
// and returns the value of the last call with the mean duration.
//
// If trials is less than one, Run returns an error wrapping ErrConfig
// without calling op. If any call fails, Run stops immediately and
// returns a *TrialError; no further trials run and no average is
// computed.
func Run[T any](r *Runner, label string, trials int, op func() (T, error)) (Result[T], error) {
	if trials < 1 {
		return Result[T]{}, fmt.Errorf("%w: %s: trial count %d, want at least 1", ErrConfig, label, trials)
	}
	if op == nil {
		return Result[T]{}, fmt.Errorf("%w: %s: nil operation", ErrConfig, label)
	}
	log := r.logger()

	res := Result[T]{
		Label:     label,
		Durations: make([]time.Duration, 0, trials),
	}
	var total time.Duration
	for i := 1; i <= trials; i++ {
		start := r.now()
		v, err := op()
		d := r.now().Sub(start)
		if err != nil {
			return Result[T]{}, &TrialError{Label: label, Trial: i, Trials: trials, Err: err}
		}
		if d < 0 {
			d = 0
		}
		log.Debug("trial finished", "label", label, "trial", i, "trials", trials, "duration", d)
		res.Value = v
		res.Durations = append(res.Durations, d)
		total += d
	}
	res.Average = total / time.Duration(trials)

	log.Info("trials complete", "label", label, "trials", trials, "avg", res.Average)
	return res, nil
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline benchmarks a multi-stage query two ways.
//
// In forced mode, every stage runs to completion and is materialized
// before the next one starts. Each stage gets its own trial-averaged
// timing and a memory snapshot taken right after materialization.
//
// In lazy mode, all stages are composed into one plan, which the
// engine optimizes and executes as a unit. The whole plan is timed
// and memory is sampled once, at the end.
//
// Run performs both and checks that they computed the same result.
// Everything runs sequentially on the calling goroutine. Any failure
// aborts the run: there is no partial report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pipebench/pipebench/frame"
	"github.com/pipebench/pipebench/memstat"
	"github.com/pipebench/pipebench/trial"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultForcedTrials = 3
	DefaultLazyTrials   = 5
	DefaultTolerance    = 1e-9
)

// Options configures an Orchestrator. The zero value of every field
// selects its default.
type Options struct {
	// ForcedTrials is the number of trials per forced stage.
	ForcedTrials int

	// LazyTrials is the number of trials of the lazy plan.
	LazyTrials int

	// Memory samples process memory. Default memstat.Self().
	Memory memstat.Provider

	// Runner runs trials. Default uses time.Now and Logger.
	Runner *trial.Runner

	// Logger receives one record per stage. Default slog.Default().
	Logger *slog.Logger

	// Tracer starts one span per mode and per stage. Default is
	// the tracer of the global otel provider.
	Tracer trace.Tracer

	// RetainResults keeps the materialized result of every forced
	// stage in the report. By default only the final one is kept.
	RetainResults bool

	// Keys are the columns that identify a row of the final
	// result when comparing modes. Default is every non-float
	// column.
	Keys []string

	// Tolerance is the relative tolerance for comparing float
	// columns between modes.
	Tolerance float64

	// Source names the dataset in the report.
	Source string
}

// An Orchestrator runs a fixed sequence of stages in both modes.
type Orchestrator struct {
	stages []Stage
	opts   Options
}

// New returns an Orchestrator for stages. It returns an error
// wrapping trial.ErrConfig if the stages or options are invalid.
func New(stages []Stage, opts Options) (*Orchestrator, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: no stages", trial.ErrConfig)
	}
	seen := make(map[string]bool)
	for i, st := range stages {
		switch {
		case st.Name == "":
			return nil, fmt.Errorf("%w: stage %d has no name", trial.ErrConfig, i)
		case st.Op == nil:
			return nil, fmt.Errorf("%w: stage %s has no operation", trial.ErrConfig, st.Name)
		case seen[st.Name]:
			return nil, fmt.Errorf("%w: duplicate stage %s", trial.ErrConfig, st.Name)
		}
		seen[st.Name] = true
	}

	if opts.ForcedTrials == 0 {
		opts.ForcedTrials = DefaultForcedTrials
	}
	if opts.LazyTrials == 0 {
		opts.LazyTrials = DefaultLazyTrials
	}
	if opts.ForcedTrials < 1 || opts.LazyTrials < 1 {
		return nil, fmt.Errorf("%w: trial counts must be positive, got forced=%d lazy=%d", trial.ErrConfig, opts.ForcedTrials, opts.LazyTrials)
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.Tolerance < 0 {
		return nil, fmt.Errorf("%w: negative tolerance %v", trial.ErrConfig, opts.Tolerance)
	}
	if opts.Memory == nil {
		opts.Memory = memstat.Self()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Runner == nil {
		opts.Runner = &trial.Runner{Logger: opts.Logger}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/pipebench/pipebench/pipeline")
	}
	return &Orchestrator{append([]Stage(nil), stages...), opts}, nil
}

// A StageResult is the measurement of one forced stage.
type StageResult struct {
	Stage     string
	Average   time.Duration
	Trials    int
	Durations []time.Duration

	// Result is the materialized output of the stage. It is nil
	// for all but the final stage unless Options.RetainResults is
	// set.
	Result *frame.DataFrame

	// Rows is the number of rows in Result.
	Rows int

	// MemoryAfter is sampled right after the stage's last trial.
	MemoryAfter memstat.Snapshot
}

// Forced is the outcome of forced mode, in stage order.
type Forced []StageResult

// Final returns the result of the last stage.
func (f Forced) Final() *StageResult {
	if len(f) == 0 {
		return nil
	}
	return &f[len(f)-1]
}

// Total returns the sum of the stage averages.
func (f Forced) Total() time.Duration {
	var total time.Duration
	for _, r := range f {
		total += r.Average
	}
	return total
}

// A LazyResult is the measurement of the composed plan.
type LazyResult struct {
	Average   time.Duration
	Trials    int
	Durations []time.Duration

	// Plan describes the optimized plan.
	Plan string

	Result *frame.DataFrame
	Rows   int

	// Memory is sampled once, after the last trial.
	Memory memstat.Snapshot
}

// A Report combines both modes of one run.
type Report struct {
	RunID    uuid.UUID
	Source   string
	Started  time.Time
	Finished time.Time

	// Baseline is sampled before the first stage runs.
	Baseline memstat.Snapshot

	Forced      Forced
	Lazy        LazyResult
	Equivalence Equivalence
}

// A StageError reports a stage failure in one mode. It unwraps to
// the underlying error, usually a *trial.TrialError.
type StageError struct {
	Mode  string // "forced" or "lazy"
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s mode: stage %s: %v", e.Mode, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RunForced runs every stage to completion in order, feeding each
// the materialized result of the one before.
func (o *Orchestrator) RunForced(ctx context.Context) (Forced, error) {
	ctx, span := o.opts.Tracer.Start(ctx, "forced")
	defer span.End()

	results := make(Forced, 0, len(o.stages))
	var prev *frame.DataFrame
	for i, st := range o.stages {
		var in *frame.LazyFrame
		if prev != nil {
			in = prev.Lazy()
		}
		sctx, sspan := o.opts.Tracer.Start(ctx, "forced/"+st.Name)
		res, err := trial.Run(o.opts.Runner, "forced/"+st.Name, o.opts.ForcedTrials, func() (*frame.DataFrame, error) {
			lf, err := st.Op(in)
			if err != nil {
				return nil, err
			}
			return lf.Collect(sctx)
		})
		if err != nil {
			err = &StageError{"forced", st.Name, err}
			recordError(sspan, err)
			sspan.End()
			recordError(span, err)
			return nil, err
		}
		mem := o.opts.Memory.Sample()

		sr := StageResult{
			Stage:       st.Name,
			Average:     res.Average,
			Trials:      res.Trials(),
			Durations:   res.Durations,
			Result:      res.Value,
			Rows:        res.Value.Height(),
			MemoryAfter: mem,
		}
		sspan.SetAttributes(
			attribute.Int("trials", sr.Trials),
			attribute.Int64("avg_ns", int64(sr.Average)),
			attribute.Int("rows", sr.Rows),
		)
		sspan.End()
		o.opts.Logger.Info("stage complete", "mode", "forced", "stage", st.Name,
			"avg", sr.Average, "rows", sr.Rows, "memory", mem)

		// Only the next stage reads this result.
		if i > 0 && !o.opts.RetainResults {
			results[i-1].Result = nil
		}
		results = append(results, sr)
		prev = res.Value
	}
	return results, nil
}

// Plan composes every stage into one unevaluated plan, the plan that
// RunLazy executes.
func (o *Orchestrator) Plan() (*frame.LazyFrame, error) {
	var lf *frame.LazyFrame
	for _, st := range o.stages {
		var err error
		if lf, err = st.Op(lf); err != nil {
			return nil, &StageError{"lazy", st.Name, err}
		}
	}
	return lf, nil
}

// RunLazy composes every stage into one plan and times its
// execution as a unit.
func (o *Orchestrator) RunLazy(ctx context.Context) (LazyResult, error) {
	ctx, span := o.opts.Tracer.Start(ctx, "lazy")
	defer span.End()

	lf, err := o.Plan()
	if err != nil {
		recordError(span, err)
		return LazyResult{}, err
	}
	plan, err := lf.DescribeOptimized()
	if err != nil {
		err = &StageError{"lazy", "plan", err}
		recordError(span, err)
		return LazyResult{}, err
	}

	res, err := trial.Run(o.opts.Runner, "lazy", o.opts.LazyTrials, func() (*frame.DataFrame, error) {
		return lf.Collect(ctx)
	})
	if err != nil {
		err = &StageError{"lazy", o.stages[len(o.stages)-1].Name, err}
		recordError(span, err)
		return LazyResult{}, err
	}
	mem := o.opts.Memory.Sample()

	lr := LazyResult{
		Average:   res.Average,
		Trials:    res.Trials(),
		Durations: res.Durations,
		Plan:      plan,
		Result:    res.Value,
		Rows:      res.Value.Height(),
		Memory:    mem,
	}
	span.SetAttributes(
		attribute.Int("trials", lr.Trials),
		attribute.Int64("avg_ns", int64(lr.Average)),
		attribute.Int("rows", lr.Rows),
	)
	o.opts.Logger.Info("plan complete", "mode", "lazy", "avg", lr.Average, "rows", lr.Rows, "memory", mem)
	return lr, nil
}

// Run takes a baseline memory snapshot, runs forced mode and then
// lazy mode, and checks that both produced equivalent results.
// It returns either a complete report or an error, never both.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	ctx, span := o.opts.Tracer.Start(ctx, "pipeline.run")
	defer span.End()

	r := &Report{
		RunID:   uuid.New(),
		Source:  o.opts.Source,
		Started: time.Now(),
	}
	span.SetAttributes(attribute.String("run_id", r.RunID.String()))
	r.Baseline = o.opts.Memory.Sample()

	var err error
	if r.Forced, err = o.RunForced(ctx); err != nil {
		recordError(span, err)
		return nil, err
	}
	if r.Lazy, err = o.RunLazy(ctx); err != nil {
		recordError(span, err)
		return nil, err
	}
	r.Equivalence, err = Compare(r.Forced.Final().Result, r.Lazy.Result, o.opts.Keys, o.opts.Tolerance)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	r.Finished = time.Now()
	o.opts.Logger.Info("run complete", "run_id", r.RunID, "forced_total", r.Forced.Total(),
		"lazy", r.Lazy.Average, "rows", r.Equivalence.Rows, "groups", r.Equivalence.Keys)
	return r, nil
}

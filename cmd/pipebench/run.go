// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pipebench/pipebench/config"
	"github.com/pipebench/pipebench/frame"
	"github.com/pipebench/pipebench/internal/tracing"
	"github.com/pipebench/pipebench/memstat"
	"github.com/pipebench/pipebench/metrics"
	"github.com/pipebench/pipebench/pipeline"
	"github.com/pipebench/pipebench/report"
	"github.com/pipebench/pipebench/source"
	"github.com/spf13/cobra"
)

// runFlags are the flags of "pipebench run" and "pipebench plan".
// They override the configuration only when set.
type runFlags struct {
	source       string
	header       bool
	delimiter    string
	sql          string
	forcedTrials int
	lazyTrials   int
	tolerance    float64
	retain       bool
	noMemory     bool
	benchfmt     string
	html         string
	chart        string
	metrics      string
}

func (f *runFlags) register(cmd *cobra.Command, outputs bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.source, "source", "", "dataset `uri`: file, glob, gs://, sqlite3:// or mysql://")
	fs.BoolVar(&f.header, "header", true, "delimited input starts with a header row")
	fs.StringVar(&f.delimiter, "delimiter", "", "field delimiter of delimited input")
	fs.StringVar(&f.sql, "sql", "", "`query` for SQL sources")
	if !outputs {
		return
	}
	fs.IntVar(&f.forcedTrials, "forced-trials", 0, "timed trials per forced stage")
	fs.IntVar(&f.lazyTrials, "lazy-trials", 0, "timed trials of the lazy plan")
	fs.Float64Var(&f.tolerance, "tolerance", 0, "relative tolerance when comparing results")
	fs.BoolVar(&f.retain, "retain", false, "keep every forced stage result until the run ends")
	fs.BoolVar(&f.noMemory, "no-memory", false, "do not sample process memory")
	fs.StringVar(&f.benchfmt, "benchfmt", "", "write trials in the Go benchmark format to `file`")
	fs.StringVar(&f.html, "html", "", "write an HTML report to `file`")
	fs.StringVar(&f.chart, "chart", "", "write a bar chart to `file` (.png, .svg, ...)")
	fs.StringVar(&f.metrics, "metrics", "", "write Prometheus metrics to `file`")
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("source", func() { cfg.Source.URI = f.source })
	set("header", func() { cfg.Source.Header = f.header })
	set("delimiter", func() { cfg.Source.Delimiter = f.delimiter })
	set("sql", func() { cfg.Source.Query = f.sql })
	set("forced-trials", func() { cfg.Trials.Forced = f.forcedTrials })
	set("lazy-trials", func() { cfg.Trials.Lazy = f.lazyTrials })
	set("tolerance", func() { cfg.Tolerance = f.tolerance })
	set("retain", func() { cfg.RetainResults = f.retain })
	set("no-memory", func() { cfg.Memory = !f.noMemory })
	set("benchfmt", func() { cfg.Output.Benchfmt = f.benchfmt })
	set("html", func() { cfg.Output.HTML = f.html })
	set("chart", func() { cfg.Output.Chart = f.chart })
	set("metrics", func() { cfg.Output.Metrics = f.metrics })
}

func newRunCmd(g *globals) *cobra.Command {
	f := new(runFlags)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline in forced and lazy mode and report",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return g.runBench(cmd.Context(), cfg)
		},
	}
	f.register(cmd, true)
	return cmd
}

// orchestrator opens the dataset of cfg and builds the default
// stages over it. The caller must close the returned source.
func orchestrator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Orchestrator, frame.Source, error) {
	q, err := cfg.PipelineQuery()
	if err != nil {
		return nil, nil, err
	}
	src, err := source.Open(ctx, cfg.SourceSpec())
	if err != nil {
		return nil, nil, err
	}
	var mem memstat.Provider = memstat.Disabled
	if cfg.Memory {
		mem = memstat.Self().WithLogger(logger)
	}
	o, err := pipeline.New(pipeline.DefaultStages(src, q), pipeline.Options{
		ForcedTrials:  cfg.Trials.Forced,
		LazyTrials:    cfg.Trials.Lazy,
		Memory:        mem,
		Logger:        logger,
		RetainResults: cfg.RetainResults,
		Keys:          q.GroupBy,
		Tolerance:     cfg.Tolerance,
		Source:        src.Name(),
	})
	if err != nil {
		source.Close(src)
		return nil, nil, err
	}
	return o, src, nil
}

func (g *globals) runBench(ctx context.Context, cfg *config.Config) (err error) {
	logger := g.logger(cfg)
	if cfg.Trace {
		_, shutdown, err := tracing.Start(g.stderr, false)
		if err != nil {
			return err
		}
		defer func() {
			if serr := shutdown(context.Background()); serr != nil {
				logger.Warn("flushing traces", "err", serr)
			}
		}()
	}

	o, src, err := orchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := source.Close(src); cerr != nil && err == nil {
			err = cerr
		}
	}()

	logger.Info("starting run", "source", cfg.Source.URI,
		"forced_trials", cfg.Trials.Forced, "lazy_trials", cfg.Trials.Lazy)
	r, err := o.Run(ctx)
	if err != nil {
		return err
	}
	if err := report.WriteText(g.stdout, r); err != nil {
		return err
	}
	return writeOutputs(cfg.Output, r, logger)
}

// writeOutputs writes the optional output files of a run.
func writeOutputs(out config.OutputConfig, r *pipeline.Report, logger *slog.Logger) error {
	writeFile := func(path string, write func(f *os.File) error) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return f.Close()
	}

	if out.Benchfmt != "" {
		if err := writeFile(out.Benchfmt, func(f *os.File) error { return report.WriteBenchfmt(f, r) }); err != nil {
			return err
		}
		logger.Info("wrote benchmark results", "path", out.Benchfmt)
	}
	if out.HTML != "" {
		if err := writeFile(out.HTML, func(f *os.File) error { return report.WriteHTML(f, r) }); err != nil {
			return err
		}
		logger.Info("wrote HTML report", "path", out.HTML)
	}
	if out.Chart != "" {
		if err := report.SaveChart(out.Chart, r); err != nil {
			return fmt.Errorf("writing %s: %w", out.Chart, err)
		}
		logger.Info("wrote chart", "path", out.Chart)
	}
	if out.Metrics != "" {
		m := metrics.New()
		m.Record(r)
		if err := m.WriteTextfile(out.Metrics); err != nil {
			return fmt.Errorf("writing %s: %w", out.Metrics, err)
		}
		logger.Info("wrote metrics", "path", out.Metrics)
	}
	return nil
}

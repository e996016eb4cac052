// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Pipebench measures a tabular data pipeline in two execution modes.
//
// Usage:
//
//	pipebench run [flags]
//	pipebench gen [flags] [file]
//	pipebench plan [flags]
//
// The pipeline loads a dataset, sorts it, filters it and aggregates it
// by group. In forced mode every stage is materialized and timed on its
// own; in lazy mode the stages are composed into one plan, optimized
// and timed as a unit. Process memory is sampled after every forced
// stage and after lazy mode. Pipebench then checks that both modes
// produced the same result and prints a report.
//
// The default dataset is data.csv in the current directory, and the
// default pipeline sorts by value, keeps rows with value > 500 and
// averages id and value per category. "pipebench gen" writes a
// synthetic dataset in that shape.
//
// The dataset may also be a glob of CSV files, gs://bucket/object,
// sqlite3://path or mysql://dsn; see -source.
//
// Settings are read from the file named by -config (YAML), then from
// PIPEBENCH_* environment variables, then from flags. For example:
//
//	source:
//	  uri: sales_*.csv
//	query:
//	  sort_by: [region]
//	  filter:
//	    - {column: amount, op: ">", value: 100}
//	  group_by: [region]
//	  aggs:
//	    - {func: sum, column: amount, as: total}
//	trials: {forced: 5, lazy: 10}
//
// Besides the text report on standard output, "pipebench run" can
// write the trials in the Go benchmark format for benchstat
// (-benchfmt), an HTML report (-html), a bar chart whose format
// follows the file extension (-chart) and a Prometheus textfile
// (-metrics).
//
// Pipebench exits with status 1 if the run fails and 2 on a usage
// error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/pipebench/pipebench/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// usageError marks errors in the command line.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// run executes the command line args and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "pipebench: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		fmt.Fprintf(stderr, "run 'pipebench help' for usage\n")
		return 2
	}
	return 1
}

// globals holds the flags shared by every subcommand.
type globals struct {
	stdout, stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
	trace      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "pipebench",
		Short:         "Benchmark a tabular data pipeline in forced and lazy mode",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "read settings from the YAML `file`")
	pf.StringVar(&g.logLevel, "log-level", "", "log `level`: debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", "", "log `format`: text or json")
	pf.BoolVar(&g.trace, "trace", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(newRunCmd(g), newGenCmd(g), newPlanCmd(g))
	return root
}

// config loads the configuration and applies the global flags.
func (g *globals) config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}
	if flags.Changed("trace") {
		cfg.Trace = g.trace
	}
	return cfg, nil
}

// logger returns the logger for cfg, writing to stderr.
func (g *globals) logger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(g.stderr, opts))
	}
	return slog.New(slog.NewTextHandler(g.stderr, opts))
}

// noArgs is cobra.NoArgs as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &usageError{err}
	}
	return nil
}

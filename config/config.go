// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the settings of a pipebench run.
//
// Settings come from, in increasing priority, the defaults, a YAML
// file, PIPEBENCH_* environment variables and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pipebench/pipebench/frame"
	"github.com/pipebench/pipebench/pipeline"
	"github.com/pipebench/pipebench/source"
	"github.com/pipebench/pipebench/trial"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by ApplyEnv.
const EnvPrefix = "PIPEBENCH_"

// Config is the configuration of a benchmark run.
type Config struct {
	Source SourceConfig `yaml:"source"`
	Query  QueryConfig  `yaml:"query"`
	Trials TrialsConfig `yaml:"trials"`

	// Tolerance is the relative tolerance when comparing forced
	// and lazy results.
	Tolerance float64 `yaml:"tolerance"`

	// RetainResults keeps every intermediate forced result alive
	// until the run ends.
	RetainResults bool `yaml:"retain_results"`

	// Memory enables memory sampling.
	Memory bool `yaml:"memory"`

	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`

	// Trace writes OpenTelemetry spans to stderr.
	Trace bool `yaml:"trace"`
}

// SourceConfig names the dataset.
type SourceConfig struct {
	URI         string `yaml:"uri"`
	Header      bool   `yaml:"header"`
	Delimiter   string `yaml:"delimiter"`
	Query       string `yaml:"query"`
	GCSNoAuth   bool   `yaml:"gcs_no_auth"`
	GCSEndpoint string `yaml:"gcs_endpoint"`
}

// QueryConfig describes the sort, filter and aggregate stages.
type QueryConfig struct {
	SortBy     []string    `yaml:"sort_by"`
	Descending bool        `yaml:"descending"`
	Filter     []Condition `yaml:"filter"`
	GroupBy    []string    `yaml:"group_by"`
	Aggs       []Agg       `yaml:"aggs"`
}

// A Condition compares a column with a value. The conditions of a
// filter are combined with AND.
type Condition struct {
	Column string `yaml:"column"`
	Op     string `yaml:"op"` // >, >=, <, <=, ==, !=
	Value  any    `yaml:"value"`
}

// An Agg is one aggregation of the aggregate stage.
type Agg struct {
	Func   string `yaml:"func"` // mean, sum, min, max, count
	Column string `yaml:"column"`
	As     string `yaml:"as"`
}

// TrialsConfig sets the number of timed trials per mode.
type TrialsConfig struct {
	Forced int `yaml:"forced"`
	Lazy   int `yaml:"lazy"`
}

// OutputConfig names optional output files. Empty paths are skipped.
type OutputConfig struct {
	Benchfmt string `yaml:"benchfmt"`
	HTML     string `yaml:"html"`
	Chart    string `yaml:"chart"`
	Metrics  string `yaml:"metrics"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the default configuration: the default query over
// data.csv, with memory sampling on.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			URI:       "data.csv",
			Header:    true,
			Delimiter: ",",
		},
		Query: QueryConfig{
			SortBy:  []string{"value"},
			Filter:  []Condition{{Column: "value", Op: ">", Value: 500}},
			GroupBy: []string{"category"},
			Aggs: []Agg{
				{Func: "mean", Column: "id", As: "id_mean"},
				{Func: "mean", Column: "value", As: "value_mean"},
			},
		},
		Trials: TrialsConfig{
			Forced: pipeline.DefaultForcedTrials,
			Lazy:   pipeline.DefaultLazyTrials,
		},
		Tolerance: pipeline.DefaultTolerance,
		Memory:    true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults. Fields the
// file does not set keep their default values; unknown fields are an
// error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with PIPEBENCH_* environment variables.
func (c *Config) ApplyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("SOURCE", &c.Source.URI)
	str("SQL_QUERY", &c.Source.Query)
	str("GCS_ENDPOINT", &c.Source.GCSEndpoint)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("BENCHFMT", &c.Output.Benchfmt)
	str("HTML", &c.Output.HTML)
	str("CHART", &c.Output.Chart)
	str("METRICS", &c.Output.Metrics)
	if err := integer("FORCED_TRIALS", &c.Trials.Forced); err != nil {
		return err
	}
	if err := integer("LAZY_TRIALS", &c.Trials.Lazy); err != nil {
		return err
	}
	if err := boolean("MEMORY", &c.Memory); err != nil {
		return err
	}
	if err := boolean("TRACE", &c.Trace); err != nil {
		return err
	}
	if err := boolean("GCS_NO_AUTH", &c.Source.GCSNoAuth); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvPrefix + "TOLERANCE"); ok {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sTOLERANCE: %w", EnvPrefix, err)
		}
		c.Tolerance = tol
	}
	return nil
}

// Validate checks c. Every error wraps trial.ErrConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", trial.ErrConfig, fmt.Sprintf(format, args...))
	}
	if c.Source.URI == "" {
		return invalid("source.uri is required")
	}
	if _, err := c.delimiter(); err != nil {
		return invalid("%v", err)
	}
	if c.Trials.Forced < 1 || c.Trials.Lazy < 1 {
		return invalid("trials must be at least 1, got forced %d, lazy %d", c.Trials.Forced, c.Trials.Lazy)
	}
	if c.Tolerance < 0 {
		return invalid("tolerance must not be negative, got %g", c.Tolerance)
	}
	if _, err := c.level(); err != nil {
		return invalid("%v", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.PipelineQuery(); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func (c *Config) delimiter() (rune, error) {
	d := c.Source.Delimiter
	switch {
	case d == "":
		return ',', nil
	case d == `\t`:
		return '\t', nil
	case utf8.RuneCountInString(d) == 1:
		r, _ := utf8.DecodeRuneInString(d)
		return r, nil
	}
	return 0, fmt.Errorf("source.delimiter must be one character, got %q", d)
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// LogLevel returns the configured log level. Call Validate first.
func (c *Config) LogLevel() slog.Level {
	l, _ := c.level()
	return l
}

// SourceSpec returns the dataset spec. Call Validate first.
func (c *Config) SourceSpec() source.Spec {
	d, _ := c.delimiter()
	return source.Spec{
		URI:         c.Source.URI,
		HasHeader:   c.Source.Header,
		Delimiter:   d,
		Query:       c.Source.Query,
		GCSNoAuth:   c.Source.GCSNoAuth,
		GCSEndpoint: c.Source.GCSEndpoint,
	}
}

// PipelineQuery builds the query of the default stages.
func (c *Config) PipelineQuery() (pipeline.Query, error) {
	q := c.Query
	if len(q.SortBy) == 0 {
		return pipeline.Query{}, fmt.Errorf("query.sort_by is empty")
	}
	if len(q.GroupBy) == 0 {
		return pipeline.Query{}, fmt.Errorf("query.group_by is empty")
	}
	if len(q.Aggs) == 0 {
		return pipeline.Query{}, fmt.Errorf("query.aggs is empty")
	}
	if len(q.Filter) == 0 {
		return pipeline.Query{}, fmt.Errorf("query.filter is empty")
	}
	out := pipeline.Query{
		SortBy:     q.SortBy,
		Descending: q.Descending,
		GroupBy:    q.GroupBy,
	}
	for i, cond := range q.Filter {
		e, err := cond.Expr()
		if err != nil {
			return pipeline.Query{}, fmt.Errorf("query.filter[%d]: %w", i, err)
		}
		if out.Filter == nil {
			out.Filter = e
		} else {
			out.Filter = frame.And(out.Filter, e)
		}
	}
	for i, a := range q.Aggs {
		e, err := a.Expr()
		if err != nil {
			return pipeline.Query{}, fmt.Errorf("query.aggs[%d]: %w", i, err)
		}
		out.Aggs = append(out.Aggs, e)
	}
	return out, nil
}

// Expr returns the filter expression of cond.
func (cond Condition) Expr() (frame.Expr, error) {
	if cond.Column == "" {
		return nil, fmt.Errorf("missing column")
	}
	var v any
	switch x := cond.Value.(type) {
	case int, int64, float64, string:
		v = x
	case nil:
		return nil, fmt.Errorf("missing value")
	default:
		return nil, fmt.Errorf("value %v has unsupported type %T", x, x)
	}
	col := frame.Col(cond.Column)
	switch cond.Op {
	case ">":
		return col.Gt(v), nil
	case ">=":
		return col.Ge(v), nil
	case "<":
		return col.Lt(v), nil
	case "<=":
		return col.Le(v), nil
	case "==", "=":
		return col.Eq(v), nil
	case "!=":
		return col.Ne(v), nil
	}
	return nil, fmt.Errorf("unknown operator %q", cond.Op)
}

// Expr returns the aggregation expression of a.
func (a Agg) Expr() (frame.AggExpr, error) {
	if a.Column == "" {
		return frame.AggExpr{}, fmt.Errorf("missing column")
	}
	col := frame.Col(a.Column)
	var e frame.AggExpr
	switch strings.ToLower(a.Func) {
	case "mean", "avg":
		e = col.Mean()
	case "sum":
		e = col.Sum()
	case "min":
		e = col.Min()
	case "max":
		e = col.Max()
	case "count":
		e = col.Count()
	default:
		return frame.AggExpr{}, fmt.Errorf("unknown aggregation %q", a.Func)
	}
	if a.As != "" {
		e = e.Alias(a.As)
	}
	return e, nil
}

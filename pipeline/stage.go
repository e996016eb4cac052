// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"errors"

	"github.com/pipebench/pipebench/frame"
)

// Names of the stages built by DefaultStages.
const (
	StageLoad      = "load"
	StageSort      = "sort"
	StageFilter    = "filter"
	StageAggregate = "aggregate"
)

// A Stage is one named step of a pipeline.
//
// Op extends the plan in with this stage's work and returns the
// result without evaluating it. in is nil for the first stage. The
// same Stage serves both modes: forced mode binds in to the
// materialized output of the previous stage, lazy mode to the
// unevaluated plan of all previous stages. Op must not retain in.
type Stage struct {
	Name string
	Op   func(in *frame.LazyFrame) (*frame.LazyFrame, error)
}

// A Query parameterizes the default stages.
type Query struct {
	SortBy     []string
	Descending bool
	Filter     frame.Expr
	GroupBy    []string
	Aggs       []frame.AggExpr
}

// DefaultQuery sorts by value, keeps rows with value > 500, and
// averages id and value per category.
func DefaultQuery() Query {
	return Query{
		SortBy:  []string{"value"},
		Filter:  frame.Col("value").Gt(500),
		GroupBy: []string{"category"},
		Aggs: []frame.AggExpr{
			frame.Col("id").Mean().Alias("id_mean"),
			frame.Col("value").Mean().Alias("value_mean"),
		},
	}
}

var errNoInput = errors.New("stage has no input")

// DefaultStages returns the load, sort, filter and aggregate stages
// for q over src.
func DefaultStages(src frame.Source, q Query) []Stage {
	return []Stage{
		{StageLoad, func(*frame.LazyFrame) (*frame.LazyFrame, error) {
			return frame.Scan(src), nil
		}},
		{StageSort, func(in *frame.LazyFrame) (*frame.LazyFrame, error) {
			if in == nil {
				return nil, errNoInput
			}
			return in.Sort(q.SortBy, frame.SortOptions{Descending: q.Descending}), nil
		}},
		{StageFilter, func(in *frame.LazyFrame) (*frame.LazyFrame, error) {
			if in == nil {
				return nil, errNoInput
			}
			return in.Filter(q.Filter), nil
		}},
		{StageAggregate, func(in *frame.LazyFrame) (*frame.LazyFrame, error) {
			if in == nil {
				return nil, errNoInput
			}
			return in.GroupBy(q.GroupBy...).Agg(q.Aggs...), nil
		}},
	}
}

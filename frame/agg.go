// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"fmt"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/go-moremath/vec"
)

// An AggFunc is a reduction applied to each group of an aggregation.
type AggFunc int

const (
	AggMean AggFunc = iota
	AggSum
	AggMin
	AggMax
	AggCount
)

func (f AggFunc) String() string {
	switch f {
	case AggMean:
		return "mean"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggCount:
		return "count"
	}
	return fmt.Sprintf("AggFunc(%d)", int(f))
}

// An AggExpr reduces one column of each group to a single value.
type AggExpr struct {
	Func   AggFunc
	Column string
	Name   string // output column; empty means "<func>_<column>"
}

// Mean returns the arithmetic mean of c in each group.
func (c Column) Mean() AggExpr { return AggExpr{Func: AggMean, Column: string(c)} }

// Sum returns the sum of c in each group.
func (c Column) Sum() AggExpr { return AggExpr{Func: AggSum, Column: string(c)} }

// Min returns the minimum of c in each group.
func (c Column) Min() AggExpr { return AggExpr{Func: AggMin, Column: string(c)} }

// Max returns the maximum of c in each group.
func (c Column) Max() AggExpr { return AggExpr{Func: AggMax, Column: string(c)} }

// Count returns the number of rows in each group.
func (c Column) Count() AggExpr { return AggExpr{Func: AggCount, Column: string(c)} }

// Alias returns a copy of a whose output column is name.
func (a AggExpr) Alias(name string) AggExpr {
	a.Name = name
	return a
}

// Output returns the name of the column a produces.
func (a AggExpr) Output() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Func.String() + "_" + a.Column
}

func (a AggExpr) String() string {
	return fmt.Sprintf("%s(%s) AS %s", a.Func, Col(a.Column), a.Output())
}

// check verifies that t has a column a can reduce. The type of an
// empty column is not checked.
func (a AggExpr) check(t *table.Table) error {
	col := t.Column(a.Column)
	if col == nil {
		return fmt.Errorf("%w %q", ErrUnknownColumn, a.Column)
	}
	if t.Len() > 0 && a.Func != AggCount && !isNumeric(col) {
		return fmt.Errorf("%w: %s of %T column %q", ErrTypeMismatch, a.Func, col, a.Column)
	}
	return nil
}

// empty returns the zero-length output column of a.
func (a AggExpr) empty() table.Slice {
	if a.Func == AggCount {
		return []int{}
	}
	return []float64{}
}

// aggregator returns a as a ggstat Aggregator that adds one column
// named a.Output() to its output.
func (a AggExpr) aggregator() ggstat.Aggregator {
	if a.Func == AggCount {
		return func(input table.Grouping, b *table.Builder) {
			gids := input.Tables()
			counts := make([]int, len(gids))
			for i, gid := range gids {
				counts[i] = input.Table(gid).Len()
			}
			b.Add(a.Output(), counts)
		}
	}
	var reduce func([]float64) float64
	switch a.Func {
	case AggMean:
		reduce = stats.Mean
	case AggSum:
		reduce = vec.Sum
	case AggMin:
		reduce = func(xs []float64) float64 { lo, _ := stats.Bounds(xs); return lo }
	case AggMax:
		reduce = func(xs []float64) float64 { _, hi := stats.Bounds(xs); return hi }
	}
	return func(input table.Grouping, b *table.Builder) {
		gids := input.Tables()
		out := make([]float64, len(gids))
		for i, gid := range gids {
			var xs []float64
			slice.Convert(&xs, input.Table(gid).MustColumn(a.Column))
			out[i] = reduce(xs)
		}
		b.Add(a.Output(), out)
	}
}

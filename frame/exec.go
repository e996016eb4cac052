// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
)

// Collect optimizes and executes the plan and returns its result.
// Engine failures are returned as *Error.
func (lf *LazyFrame) Collect(ctx context.Context) (*DataFrame, error) {
	if err := lf.check(); err != nil {
		return nil, err
	}
	t, err := execute(ctx, optimize(lf.root))
	if err != nil {
		return nil, err
	}
	return NewDataFrame(t), nil
}

func execute(ctx context.Context, n node) (*table.Table, error) {
	if n == nil {
		return nil, &Error{Op: "plan", Err: ErrEmptyPlan}
	}
	var in *table.Table
	switch n.(type) {
	case *scanNode, *frameNode:
	default:
		var err error
		if in, err = execute(ctx, n.input()); err != nil {
			return nil, err
		}
	}
	t, err := run(ctx, n, in)
	if err != nil {
		if _, ok := err.(*Error); !ok {
			err = &Error{Op: n.op(), Err: err}
		}
		return nil, err
	}
	return t, nil
}

// run executes a single node over its already computed input. go-gg
// reports misuse by panicking; run turns those panics into errors.
func run(ctx context.Context, n node, in *table.Table) (t *table.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("%v", r)
		}
	}()

	switch n := n.(type) {
	case *scanNode:
		t, err := n.src.Load(ctx, n.cols)
		if err != nil {
			return nil, err
		}
		return project(t, n.cols)
	case *frameNode:
		return project(n.t, n.cols)
	case *sortNode:
		if in.Len() == 0 {
			return in, nil
		}
		return sortTable(in, n.by, n.desc)
	case *filterNode:
		return filterTable(in, n.pred)
	case *aggNode:
		return aggregate(in, n)
	case *selectNode:
		return project(in, n.cols)
	}
	return nil, fmt.Errorf("unknown plan node %T", n)
}

// project returns the columns of t named by cols, in that order. A
// nil cols returns t unchanged.
func project(t *table.Table, cols []string) (*table.Table, error) {
	if cols == nil {
		return t, nil
	}
	var b table.Builder
	for _, c := range cols {
		col := t.Column(c)
		if col == nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownColumn, c)
		}
		b.Add(c, col)
	}
	return b.Done(), nil
}

func sortTable(t *table.Table, by []string, desc bool) (*table.Table, error) {
	keys := make([]sort.Interface, len(by))
	for i, c := range by {
		col := t.Column(c)
		if col == nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownColumn, c)
		}
		if !slice.CanSort(col) {
			return nil, fmt.Errorf("%w: %T column %q is not orderable", ErrTypeMismatch, col, c)
		}
		keys[i] = slice.Sorter(col)
	}
	if len(by) == 1 && !desc {
		return table.Flatten(table.SortBy(t, by[0])), nil
	}

	// table.SortBy skips keys that are already in order, which
	// is only correct for a single key.
	perm := make([]int, t.Len())
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		a, b := perm[i], perm[j]
		if desc {
			a, b = b, a
		}
		for _, k := range keys {
			if k.Less(a, b) {
				return true
			}
			if k.Less(b, a) {
				return false
			}
		}
		return false
	})
	return selectRows(t, perm), nil
}

func filterTable(t *table.Table, pred Expr) (*table.Table, error) {
	mask, err := pred.eval(t)
	if err != nil {
		return nil, err
	}
	var idx []int
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	if len(idx) == len(mask) {
		return t, nil
	}
	return selectRows(t, idx), nil
}

// selectRows returns the rows of t at the given indexes.
func selectRows(t *table.Table, idx []int) *table.Table {
	if idx == nil {
		idx = []int{}
	}
	var b table.Builder
	for _, c := range t.Columns() {
		b.Add(c, slice.Select(t.Column(c), idx))
	}
	return b.Done()
}

func aggregate(t *table.Table, n *aggNode) (*table.Table, error) {
	for _, k := range n.keys {
		if t.Column(k) == nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownColumn, k)
		}
	}
	aggs := make([]ggstat.Aggregator, len(n.aggs))
	for i, a := range n.aggs {
		if err := a.check(t); err != nil {
			return nil, err
		}
		aggs[i] = a.aggregator()
	}

	if t.Len() == 0 {
		var b table.Builder
		for _, k := range n.keys {
			b.Add(k, reflect.MakeSlice(reflect.TypeOf(t.Column(k)), 0, 0).Interface())
		}
		for _, a := range n.aggs {
			b.Add(a.Output(), a.empty())
		}
		return b.Done(), nil
	}

	out := table.Flatten(ggstat.Agg(n.keys...)(aggs...).F(t))
	// Aggregate also carries over columns that happen to be
	// constant within every group; drop them.
	return project(out, n.outputs())
}

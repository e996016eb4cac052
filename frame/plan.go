// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aclements/go-gg/table"
)

// A LazyFrame is an unevaluated query plan.
//
// Builder errors, such as a GroupBy without keys, are recorded in the
// plan and reported by Collect and DescribeOptimized.
type LazyFrame struct {
	root node
	err  error
}

// Scan returns a plan that reads src.
func Scan(src Source) *LazyFrame {
	return &LazyFrame{root: &scanNode{src: src}}
}

// SortOptions controls Sort.
type SortOptions struct {
	Descending bool
}

// Sort returns a plan that orders rows by the given columns, in
// priority order. The sort is stable.
func (lf *LazyFrame) Sort(by []string, opts SortOptions) *LazyFrame {
	if len(by) == 0 {
		return lf.fail("sort", errors.New("no sort columns"))
	}
	return lf.then(&sortNode{by: append([]string(nil), by...), desc: opts.Descending})
}

// Filter returns a plan that keeps the rows for which pred is true.
func (lf *LazyFrame) Filter(pred Expr) *LazyFrame {
	if pred == nil {
		return lf.fail("filter", errors.New("nil predicate"))
	}
	return lf.then(&filterNode{pred: pred})
}

// Select returns a plan that keeps only the named columns, in the
// given order.
func (lf *LazyFrame) Select(cols ...string) *LazyFrame {
	if len(cols) == 0 {
		return lf.fail("select", errors.New("no columns"))
	}
	return lf.then(&selectNode{cols: append([]string(nil), cols...)})
}

// A GroupBy is a LazyFrame waiting for its aggregations.
type GroupBy struct {
	lf   *LazyFrame
	keys []string
}

// GroupBy groups rows by the distinct values of keys. Call Agg on the
// result to complete the plan.
func (lf *LazyFrame) GroupBy(keys ...string) *GroupBy {
	return &GroupBy{lf, append([]string(nil), keys...)}
}

// Agg returns a plan that produces one row per group, with the key
// columns followed by one column per aggregation. The order of the
// groups is unspecified.
func (g *GroupBy) Agg(aggs ...AggExpr) *LazyFrame {
	if len(g.keys) == 0 {
		return g.lf.fail("aggregate", errors.New("no group keys"))
	}
	if len(aggs) == 0 {
		return g.lf.fail("aggregate", errors.New("no aggregations"))
	}
	seen := make(map[string]bool)
	for _, k := range g.keys {
		seen[k] = true
	}
	for _, a := range aggs {
		if seen[a.Output()] {
			return g.lf.fail("aggregate", fmt.Errorf("duplicate output column %q", a.Output()))
		}
		seen[a.Output()] = true
	}
	return g.lf.then(&aggNode{keys: g.keys, aggs: append([]AggExpr(nil), aggs...)})
}

// then returns a new LazyFrame with n applied on top of lf. n's input
// is set here; lf is not modified.
func (lf *LazyFrame) then(n node) *LazyFrame {
	if lf == nil {
		return &LazyFrame{err: &Error{Op: n.op(), Err: ErrEmptyPlan}}
	}
	if lf.err != nil {
		return lf
	}
	return &LazyFrame{root: n.withInput(lf.root)}
}

func (lf *LazyFrame) fail(op string, err error) *LazyFrame {
	if lf != nil && lf.err != nil {
		return lf
	}
	var root node
	if lf != nil {
		root = lf.root
	}
	return &LazyFrame{root: root, err: &Error{Op: op, Err: err}}
}

// Describe returns the plan as written, one step per line, outermost
// step first.
func (lf *LazyFrame) Describe() string {
	if lf == nil || lf.root == nil {
		return "EMPTY PLAN\n"
	}
	return describe(lf.root)
}

// DescribeOptimized returns the plan the optimizer would execute.
// It is deterministic: equal plans always describe the same way.
func (lf *LazyFrame) DescribeOptimized() (string, error) {
	if err := lf.check(); err != nil {
		return "", err
	}
	return describe(optimize(lf.root)), nil
}

func (lf *LazyFrame) check() error {
	if lf != nil && lf.err != nil {
		return lf.err
	}
	if lf == nil || lf.root == nil {
		return &Error{Op: "plan", Err: ErrEmptyPlan}
	}
	return nil
}

func describe(n node) string {
	var b strings.Builder
	for depth := 0; n != nil; depth++ {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), n.describe())
		n = n.input()
	}
	return b.String()
}

// A node is one step of a plan. Nodes are never modified once they
// are part of a plan.
type node interface {
	op() string
	describe() string
	input() node
	withInput(in node) node
}

type scanNode struct {
	src  Source
	cols []string // nil means all columns
}

func (n *scanNode) op() string {
	return "scan " + n.src.Name()
}

func (n *scanNode) input() node {
	return nil
}

func (n *scanNode) withInput(node) node {
	return n
}

func (n *scanNode) describe() string {
	return "SCAN " + n.src.Name() + "; PROJECT " + projection(n.cols)
}

func (n *scanNode) withCols(c []string) node {
	return &scanNode{src: n.src, cols: c}
}

type frameNode struct {
	t    *table.Table
	cols []string
}

func (n *frameNode) op() string {
	return "frame"
}

func (n *frameNode) input() node {
	return nil
}

func (n *frameNode) withInput(node) node {
	return n
}

func (n *frameNode) describe() string {
	return fmt.Sprintf("DATAFRAME %d ROWS; PROJECT %s", n.t.Len(), projection(n.cols))
}

func (n *frameNode) withCols(c []string) node {
	return &frameNode{t: n.t, cols: c}
}

type sortNode struct {
	in   node
	by   []string
	desc bool
}

func (n *sortNode) op() string {
	return "sort"
}

func (n *sortNode) input() node {
	return n.in
}

func (n *sortNode) withInput(in node) node {
	c := *n
	c.in = in
	return &c
}

func (n *sortNode) describe() string {
	s := "SORT BY " + colList(n.by)
	if n.desc {
		s += " DESC"
	}
	return s
}

type filterNode struct {
	in   node
	pred Expr
}

func (n *filterNode) op() string {
	return "filter"
}

func (n *filterNode) input() node {
	return n.in
}

func (n *filterNode) withInput(in node) node {
	c := *n
	c.in = in
	return &c
}

func (n *filterNode) describe() string {
	return "FILTER " + n.pred.String()
}

type aggNode struct {
	in   node
	keys []string
	aggs []AggExpr
}

func (n *aggNode) op() string {
	return "aggregate"
}

func (n *aggNode) input() node {
	return n.in
}

func (n *aggNode) withInput(in node) node {
	c := *n
	c.in = in
	return &c
}

func (n *aggNode) describe() string {
	aggs := make([]string, len(n.aggs))
	for i, a := range n.aggs {
		aggs[i] = a.String()
	}
	return "AGGREGATE [" + strings.Join(aggs, ", ") + "] BY " + colList(n.keys)
}

// outputs returns the columns n produces, in order.
func (n *aggNode) outputs() []string {
	out := append([]string(nil), n.keys...)
	for _, a := range n.aggs {
		out = append(out, a.Output())
	}
	return out
}

type selectNode struct {
	in   node
	cols []string
}

func (n *selectNode) op() string {
	return "select"
}

func (n *selectNode) input() node {
	return n.in
}

func (n *selectNode) withInput(in node) node {
	c := *n
	c.in = in
	return &c
}

func (n *selectNode) describe() string {
	return "SELECT " + colList(n.cols)
}

func colList(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = Col(c).String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func projection(cols []string) string {
	if cols == nil {
		return "*"
	}
	return colList(cols)
}

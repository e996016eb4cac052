// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aclements/go-gg/table"
)

// An Expr is a boolean predicate over the rows of a table.
type Expr interface {
	String() string

	// columns returns the columns the predicate reads.
	columns() []string

	// eval returns one boolean per row of t.
	eval(t *table.Table) ([]bool, error)
}

// A Column names a column in an expression.
type Column string

// Col returns a reference to the named column.
func Col(name string) Column {
	return Column(name)
}

func (c Column) String() string {
	return fmt.Sprintf("col(%q)", string(c))
}

// Gt returns the predicate c > v.
func (c Column) Gt(v any) Expr { return &cmpExpr{string(c), opGt, v} }

// Ge returns the predicate c >= v.
func (c Column) Ge(v any) Expr { return &cmpExpr{string(c), opGe, v} }

// Lt returns the predicate c < v.
func (c Column) Lt(v any) Expr { return &cmpExpr{string(c), opLt, v} }

// Le returns the predicate c <= v.
func (c Column) Le(v any) Expr { return &cmpExpr{string(c), opLe, v} }

// Eq returns the predicate c == v.
func (c Column) Eq(v any) Expr { return &cmpExpr{string(c), opEq, v} }

// Ne returns the predicate c != v.
func (c Column) Ne(v any) Expr { return &cmpExpr{string(c), opNe, v} }

type cmpOp int

const (
	opGt cmpOp = iota
	opGe
	opLt
	opLe
	opEq
	opNe
)

func (op cmpOp) String() string {
	return [...]string{">", ">=", "<", "<=", "==", "!="}[op]
}

func compare[T int | float64 | string](op cmpOp, a, b T) bool {
	switch op {
	case opGt:
		return a > b
	case opGe:
		return a >= b
	case opLt:
		return a < b
	case opLe:
		return a <= b
	case opEq:
		return a == b
	}
	return a != b
}

type cmpExpr struct {
	col string
	op  cmpOp
	val any
}

func (e *cmpExpr) String() string {
	return fmt.Sprintf("%s %s %s", Col(e.col), e.op, literal(e.val))
}

func (e *cmpExpr) columns() []string {
	return []string{e.col}
}

func (e *cmpExpr) eval(t *table.Table) ([]bool, error) {
	col := t.Column(e.col)
	if col == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownColumn, e.col)
	}
	mask := make([]bool, t.Len())
	// Columns of an empty table are untyped; nothing to compare.
	if len(mask) == 0 {
		return mask, nil
	}
	if s, ok := e.val.(string); ok {
		xs, ok := col.([]string)
		if !ok {
			return nil, fmt.Errorf("%w: cannot compare %T column %q with string %q", ErrTypeMismatch, col, e.col, s)
		}
		for i, x := range xs {
			mask[i] = compare(e.op, x, s)
		}
		return mask, nil
	}
	v, ok := toFloat(e.val)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported literal %v (%T)", ErrTypeMismatch, e.val, e.val)
	}
	switch xs := col.(type) {
	case []float64:
		for i, x := range xs {
			mask[i] = compare(e.op, x, v)
		}
	case []int:
		for i, x := range xs {
			mask[i] = compare(e.op, float64(x), v)
		}
	case []int64:
		for i, x := range xs {
			mask[i] = compare(e.op, float64(x), v)
		}
	default:
		return nil, fmt.Errorf("%w: cannot compare %T column %q with number %s", ErrTypeMismatch, col, e.col, literal(e.val))
	}
	return mask, nil
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func literal(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// And returns the conjunction of a and b.
func And(a, b Expr) Expr { return &logicExpr{"&", a, b} }

// Or returns the disjunction of a and b.
func Or(a, b Expr) Expr { return &logicExpr{"|", a, b} }

// Not returns the negation of e.
func Not(e Expr) Expr { return &notExpr{e} }

type logicExpr struct {
	op   string
	l, r Expr
}

func (e *logicExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.l, e.op, e.r)
}

func (e *logicExpr) columns() []string {
	return union(e.l.columns(), e.r.columns())
}

func (e *logicExpr) eval(t *table.Table) ([]bool, error) {
	l, err := e.l.eval(t)
	if err != nil {
		return nil, err
	}
	r, err := e.r.eval(t)
	if err != nil {
		return nil, err
	}
	for i := range l {
		if e.op == "&" {
			l[i] = l[i] && r[i]
		} else {
			l[i] = l[i] || r[i]
		}
	}
	return l, nil
}

type notExpr struct {
	e Expr
}

func (e *notExpr) String() string {
	return fmt.Sprintf("!(%s)", e.e)
}

func (e *notExpr) columns() []string {
	return e.e.columns()
}

func (e *notExpr) eval(t *table.Table) ([]bool, error) {
	m, err := e.e.eval(t)
	if err != nil {
		return nil, err
	}
	for i := range m {
		m[i] = !m[i]
	}
	return m, nil
}

// union returns the sorted set union of column lists.
func union(lists ...[]string) []string {
	set := make(map[string]bool)
	for _, l := range lists {
		for _, c := range l {
			set[c] = true
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

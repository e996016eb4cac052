// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frame implements lazily evaluated query plans over go-gg
// tables.
//
// A LazyFrame describes a computation: a scan of a Source or of an
// in-memory DataFrame, followed by any number of sort, filter,
// aggregate and select steps. Nothing runs until Collect, which
// optimizes the plan, executes it and returns a materialized
// DataFrame.
//
// LazyFrames and DataFrames are immutable. Every builder method
// returns a new LazyFrame and leaves its receiver untouched, so the
// same plan can be collected any number of times.
package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/table"
)

var (
	// ErrUnknownColumn is wrapped by errors that reference a
	// column the data does not have.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrTypeMismatch is wrapped by errors that apply an operation
	// to a column of the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrEmptyPlan is returned when collecting a LazyFrame that
	// has no input.
	ErrEmptyPlan = errors.New("empty plan")
)

// An Error is a failure of the engine while building or executing a
// plan.
type Error struct {
	Op  string // plan step, such as "sort" or "scan data.csv"
	Err error
}

func (e *Error) Error() string {
	return "frame: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// A Source produces a table for a scan.
type Source interface {
	// Name identifies the source in plan descriptions.
	Name() string

	// Load reads the source. If columns is non-nil, the caller
	// only needs those columns; a Source may use this to avoid
	// reading or parsing the others, but may also return more.
	Load(ctx context.Context, columns []string) (*table.Table, error)
}

// TableSource returns a Source that serves t.
func TableSource(name string, t *table.Table) Source {
	return tableSource{name, t}
}

type tableSource struct {
	name string
	t    *table.Table
}

func (s tableSource) Name() string { return s.name }

func (s tableSource) Load(context.Context, []string) (*table.Table, error) {
	return s.t, nil
}

// A DataFrame is a materialized table.
type DataFrame struct {
	t *table.Table
}

// NewDataFrame wraps t. A nil t is the empty DataFrame.
func NewDataFrame(t *table.Table) *DataFrame {
	if t == nil {
		t = new(table.Table)
	}
	return &DataFrame{t}
}

// Table returns the underlying go-gg table.
func (df *DataFrame) Table() *table.Table {
	return df.t
}

// Height returns the number of rows in df.
func (df *DataFrame) Height() int {
	return df.t.Len()
}

// Columns returns the column names of df.
func (df *DataFrame) Columns() []string {
	return df.t.Columns()
}

// Column returns the data of column name, or nil if df has no such
// column.
func (df *DataFrame) Column(name string) table.Slice {
	return df.t.Column(name)
}

// Float64s returns column name converted to []float64. It fails if
// the column does not exist or is not numeric.
func (df *DataFrame) Float64s(name string) ([]float64, error) {
	col := df.t.Column(name)
	if col == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownColumn, name)
	}
	if !isNumeric(col) {
		return nil, fmt.Errorf("%w: column %q is %T, not numeric", ErrTypeMismatch, name, col)
	}
	var out []float64
	slice.Convert(&out, col)
	return out, nil
}

// Lazy returns a LazyFrame that starts from df.
func (df *DataFrame) Lazy() *LazyFrame {
	return &LazyFrame{root: &frameNode{t: df.t}}
}

// Fprint writes df to w as an aligned text table.
func (df *DataFrame) Fprint(w io.Writer) error {
	return table.Fprint(w, df.t)
}

func (df *DataFrame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "shape: (%d, %d)\n", df.Height(), len(df.Columns()))
	df.Fprint(&b)
	return b.String()
}

func isNumeric(col table.Slice) bool {
	switch col.(type) {
	case []int, []int64, []float64:
		return true
	}
	return false
}

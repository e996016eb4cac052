// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pipebench/pipebench/frame"
)

// A DivergenceError reports that two results that should be
// equivalent are not.
type DivergenceError struct {
	What     string // "rows", "columns", "keys" or "value"
	Key      string // group key, for "value"
	Column   string // column, for "value"
	Got, Want any
}

func (e *DivergenceError) Error() string {
	if e.What == "value" {
		return fmt.Sprintf("results diverge: %s of group %s: %v vs %v", e.Column, e.Key, e.Got, e.Want)
	}
	return fmt.Sprintf("results diverge in %s: %v vs %v", e.What, e.Got, e.Want)
}

// Equivalence summarizes a successful comparison.
type Equivalence struct {
	Rows       int     // rows in each result
	Keys       int     // distinct keys in each result
	Tolerance  float64 // relative tolerance for float columns
	MaxRelDiff float64 // largest relative difference seen
}

// Equivalent reports whether a and b hold the same rows, in any
// order. Rows are matched by the keys columns; float columns must
// agree within the relative tolerance tol, all others exactly. If
// keys is empty, every non-float column is a key. The error, if any,
// is a *DivergenceError.
func Equivalent(a, b *frame.DataFrame, keys []string, tol float64) error {
	_, err := Compare(a, b, keys, tol)
	return err
}

// Compare is like Equivalent but also summarizes the comparison.
func Compare(a, b *frame.DataFrame, keys []string, tol float64) (Equivalence, error) {
	eq := Equivalence{Tolerance: tol}
	if a == nil || b == nil {
		return eq, &DivergenceError{What: "result", Got: a != nil, Want: b != nil}
	}
	if a.Height() != b.Height() {
		return eq, &DivergenceError{What: "rows", Got: a.Height(), Want: b.Height()}
	}
	ca, cb := slices.Sorted(slices.Values(a.Columns())), slices.Sorted(slices.Values(b.Columns()))
	if !slices.Equal(ca, cb) {
		return eq, &DivergenceError{What: "columns", Got: ca, Want: cb}
	}
	eq.Rows = a.Height()

	if len(keys) == 0 {
		for _, c := range ca {
			if _, ok := a.Column(c).([]float64); !ok {
				keys = append(keys, c)
			}
		}
	}
	var vals []string
	for _, c := range ca {
		if !slices.Contains(keys, c) {
			vals = append(vals, c)
		}
	}

	ga, err := groupRows(a, keys, vals)
	if err != nil {
		return eq, err
	}
	gb, err := groupRows(b, keys, vals)
	if err != nil {
		return eq, err
	}
	if len(ga) != len(gb) {
		return eq, &DivergenceError{What: "keys", Got: len(ga), Want: len(gb)}
	}
	eq.Keys = len(ga)

	for key, ra := range ga {
		rb, ok := gb[key]
		if !ok || len(ra) != len(rb) {
			return eq, &DivergenceError{What: "keys", Got: key, Want: "missing"}
		}
		for i := range ra {
			for j, col := range vals {
				x, y := ra[i][j], rb[i][j]
				if x.isStr || y.isStr {
					if x != y {
						return eq, &DivergenceError{What: "value", Key: key, Column: col, Got: x, Want: y}
					}
					continue
				}
				d := relDiff(x.num, y.num)
				if d > tol {
					return eq, &DivergenceError{What: "value", Key: key, Column: col, Got: x.num, Want: y.num}
				}
				eq.MaxRelDiff = max(eq.MaxRelDiff, d)
			}
		}
	}
	return eq, nil
}

// A cell is one value of a row, numeric or not.
type cell struct {
	isStr bool
	str   string
	num   float64
}

func (c cell) String() string {
	if c.isStr {
		return c.str
	}
	return fmt.Sprint(c.num)
}

func compareCells(a, b []cell) int {
	for i := range a {
		if c := cmp.Compare(a[i].str, b[i].str); c != 0 {
			return c
		}
		if c := cmp.Compare(a[i].num, b[i].num); c != 0 {
			return c
		}
	}
	return 0
}

// groupRows maps the key of every row to the values of that row's
// vals columns. Rows with the same key are sorted so they can be
// compared pairwise.
func groupRows(df *frame.DataFrame, keys, vals []string) (map[string][][]cell, error) {
	keyCols := make([][]cell, len(keys))
	for i, k := range keys {
		c, err := cells(df, k)
		if err != nil {
			return nil, err
		}
		keyCols[i] = c
	}
	valCols := make([][]cell, len(vals))
	for i, v := range vals {
		c, err := cells(df, v)
		if err != nil {
			return nil, err
		}
		valCols[i] = c
	}

	groups := make(map[string][][]cell)
	parts := make([]string, len(keys))
	for r := 0; r < df.Height(); r++ {
		for i := range keys {
			parts[i] = keyCols[i][r].String()
		}
		key := strings.Join(parts, "/")
		row := make([]cell, len(vals))
		for i := range vals {
			row[i] = valCols[i][r]
		}
		groups[key] = append(groups[key], row)
	}
	for _, rows := range groups {
		slices.SortFunc(rows, compareCells)
	}
	return groups, nil
}

func cells(df *frame.DataFrame, col string) ([]cell, error) {
	data := df.Column(col)
	if data == nil {
		return nil, &DivergenceError{What: "columns", Got: col, Want: "missing"}
	}
	out := make([]cell, df.Height())
	if s, ok := data.([]string); ok {
		for i, v := range s {
			out[i] = cell{isStr: true, str: v}
		}
		return out, nil
	}
	f, err := df.Float64s(col)
	if err != nil {
		return nil, err
	}
	for i, v := range f {
		out[i] = cell{num: v}
	}
	return out, nil
}

// relDiff returns |x-y| relative to the larger magnitude. Equal
// values, including two NaNs, differ by zero.
func relDiff(x, y float64) float64 {
	if x == y || (math.IsNaN(x) && math.IsNaN(y)) {
		return 0
	}
	d := math.Abs(x - y)
	if m := max(math.Abs(x), math.Abs(y)); m > 0 {
		d /= m
	}
	if math.IsNaN(d) {
		return math.Inf(1)
	}
	return d
}

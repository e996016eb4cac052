// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gen writes synthetic benchmark datasets.
//
// The dataset has the header id,category,value. Ids run from 1 to
// Rows, category is "Category<n>" with n uniform in [1, Categories],
// and value is uniform in [0, MaxValue). The output depends only on
// the options, so a seed reproduces a dataset exactly.
package gen

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
)

// Options configures a dataset. Zero Rows, Categories and MaxValue
// take the defaults. Seed is used as given, zero included.
type Options struct {
	Rows       int     // default 100000
	Categories int     // default 5
	Seed       int64   // 42 in DefaultOptions
	MaxValue   float64 // default 1000
}

// DefaultOptions returns the options for the standard dataset.
func DefaultOptions() Options {
	return Options{Rows: 100000, Categories: 5, Seed: 42, MaxValue: 1000}
}

func (o Options) withDefaults() (Options, error) {
	def := DefaultOptions()
	if o.Rows == 0 {
		o.Rows = def.Rows
	}
	if o.Categories == 0 {
		o.Categories = def.Categories
	}
	if o.MaxValue == 0 {
		o.MaxValue = def.MaxValue
	}
	if o.Rows < 0 || o.Categories < 0 || o.MaxValue < 0 {
		return o, fmt.Errorf("gen: negative option in %+v", o)
	}
	return o, nil
}

// Write writes a dataset to w as CSV.
func Write(w io.Writer, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0))
	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "category", "value"})
	rec := make([]string, 3)
	for i := range opts.Rows {
		rec[0] = strconv.Itoa(i)
		rec[1] = "Category" + strconv.Itoa(1+rng.IntN(opts.Categories))
		rec[2] = strconv.FormatFloat(rng.Float64()*opts.MaxValue, 'g', -1, 64)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes a dataset to the named file, creating or
// truncating it.
func WriteFile(path string, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	if err := Write(bw, opts); err != nil {
		return err
	}
	return bw.Flush()
}

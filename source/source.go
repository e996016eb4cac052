// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source opens the datasets a benchmark pipeline loads.
//
// A dataset is named by a URI:
//
//	path/to/data.csv          delimited text file
//	path/to/data_*.csv        several files with the same header, concatenated
//	gs://bucket/object.csv    delimited text object in Google Cloud Storage
//	sqlite3://path/to/db      result of Spec.Query against a SQLite database
//	mysql://user@tcp(host)/db result of Spec.Query against a MySQL database
//
// Every source produces a go-gg table. Column values are read as
// strings and then typed per column: a column whose values all parse
// as integers becomes []int, one whose values all parse as floats
// becomes []float64, and anything else stays []string.
package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aclements/go-gg/table"
	"github.com/pipebench/pipebench/frame"
)

// DefaultQuery is the query run against SQL sources when Spec.Query
// is empty.
const DefaultQuery = "SELECT * FROM data"

// A Spec describes a dataset.
type Spec struct {
	// URI names the dataset. See the package documentation.
	URI string

	// HasHeader reports whether delimited text starts with a row
	// of column names. Without a header, columns are named
	// column_1, column_2, ...
	HasHeader bool

	// Delimiter separates fields in delimited text. Zero means
	// ','.
	Delimiter rune

	// Query is the SQL query for SQL sources.
	Query string

	// GCSNoAuth disables credentials for Cloud Storage, for
	// public buckets and emulators.
	GCSNoAuth bool

	// GCSEndpoint overrides the Cloud Storage endpoint.
	GCSEndpoint string
}

// Open returns the Source described by spec. Sources that hold
// connections implement io.Closer; callers should close them when
// done.
func Open(ctx context.Context, spec Spec) (frame.Source, error) {
	if spec.URI == "" {
		return nil, fmt.Errorf("source: empty URI")
	}
	if spec.Delimiter == 0 {
		spec.Delimiter = ','
	}
	scheme, rest, ok := strings.Cut(spec.URI, "://")
	if !ok {
		return newCSVSource(spec.URI, spec)
	}
	switch scheme {
	case "file":
		return newCSVSource(rest, spec)
	case "gs":
		return newGCSSource(ctx, rest, spec)
	case "sqlite3", "mysql":
		return newSQLSource(scheme, rest, spec)
	}
	return nil, fmt.Errorf("source: unsupported scheme %q in %q", scheme, spec.URI)
}

// Close closes src if it holds resources.
func Close(src frame.Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// buildTable turns string rows into a typed table. If want is
// non-nil, only those columns are kept; columns in want that the
// data does not have are skipped, to be reported by the engine.
func buildTable(name string, cols []string, rows [][]string, want []string) (*table.Table, error) {
	seen := make(map[string]bool)
	for _, c := range cols {
		if seen[c] {
			return nil, fmt.Errorf("%s: duplicate column %q", name, c)
		}
		seen[c] = true
	}
	if want == nil {
		return table.TableFromStrings(cols, rows, true), nil
	}

	idx := make([]int, 0, len(want))
	keep := make([]string, 0, len(want))
	for _, w := range want {
		for i, c := range cols {
			if c == w {
				idx = append(idx, i)
				keep = append(keep, c)
				break
			}
		}
	}
	proj := make([][]string, len(rows))
	for r, row := range rows {
		p := make([]string, len(idx))
		for j, i := range idx {
			p[j] = row[i]
		}
		proj[r] = p
	}
	return table.TableFromStrings(keep, proj, true), nil
}

func defaultColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("column_%d", i+1)
	}
	return cols
}

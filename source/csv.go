// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aclements/go-gg/table"
)

// csvSource reads one or more delimited text files.
type csvSource struct {
	pattern string
	header  bool
	delim   rune
}

func newCSVSource(pattern string, spec Spec) (*csvSource, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("source: bad pattern %q: %w", pattern, err)
	}
	return &csvSource{pattern, spec.HasHeader, spec.Delimiter}, nil
}

func (s *csvSource) Name() string {
	return s.pattern
}

// files returns the files matching the pattern, in lexical order.
func (s *csvSource) files() ([]string, error) {
	paths, err := filepath.Glob(s.pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		if !strings.ContainsAny(s.pattern, "*?[") {
			_, err := os.Stat(s.pattern)
			return nil, err
		}
		return nil, fmt.Errorf("%s: no matching files", s.pattern)
	}
	return paths, nil
}

func (s *csvSource) Load(_ context.Context, columns []string) (*table.Table, error) {
	paths, err := s.files()
	if err != nil {
		return nil, err
	}
	var cols []string
	var rows [][]string
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		fcols, frows, err := readDelimited(f, s.header, s.delim)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if cols == nil {
			cols = fcols
		} else if !slices.Equal(cols, fcols) {
			return nil, fmt.Errorf("%s: columns %v do not match %v in %s", path, fcols, cols, paths[0])
		}
		rows = append(rows, frows...)
	}
	return buildTable(s.pattern, cols, rows, columns)
}

// readDelimited reads all records from r. The csv reader rejects any
// record whose field count differs from the first.
func readDelimited(r io.Reader, header bool, delim rune) (cols []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("no data")
	}
	if header {
		return records[0], records[1:], nil
	}
	return defaultColumns(len(records[0])), records, nil
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aclements/go-gg/table"
	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// sqlSource reads the result of a query.
type sqlSource struct {
	name  string
	query string
	db    *sql.DB
}

// dsnHooks rewrite the data source name for a driver and return a
// display name that does not include credentials.
var dsnHooks = map[string]func(dsn string) (string, string, error){
	"sqlite3": func(dsn string) (string, string, error) {
		// Benchmark data is never written.
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return "file:" + dsn + sep + "mode=ro", "sqlite3://" + dsn, nil
	},
	"mysql": func(dsn string) (string, string, error) {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", "", err
		}
		return cfg.FormatDSN(), "mysql://" + cfg.Addr + "/" + cfg.DBName, nil
	},
}

func newSQLSource(driverName, dsn string, spec Spec) (*sqlSource, error) {
	dsn, name, err := dsnHooks[driverName](dsn)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", driverName, err)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", name, err)
	}
	q := spec.Query
	if q == "" {
		q = DefaultQuery
	}
	return &sqlSource{name, q, db}, nil
}

func (s *sqlSource) Name() string {
	return s.name
}

// Load runs the query. The query decides which columns are read;
// the projection applies to its result.
func (s *sqlSource) Load(ctx context.Context, columns []string) (*table.Table, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	var data [][]string
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			// NULL becomes "", which keeps the column a
			// string column.
			row[i] = v.String
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return buildTable(s.name, cols, data, columns)
}

func (s *sqlSource) Close() error {
	return s.db.Close()
}

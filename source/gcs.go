// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aclements/go-gg/table"
	"google.golang.org/api/option"
)

// gcsSource reads a delimited text object from Cloud Storage.
type gcsSource struct {
	bucket, object string
	header         bool
	delim          rune
	client         *storage.Client
}

// parseGCSPath splits "bucket/path/to/object".
func parseGCSPath(path string) (bucket, object string, err error) {
	bucket, object, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("source: want gs://bucket/object, got gs://%s", path)
	}
	return bucket, object, nil
}

func gcsOptions(spec Spec) []option.ClientOption {
	var opts []option.ClientOption
	if spec.GCSNoAuth {
		opts = append(opts, option.WithoutAuthentication())
	}
	if spec.GCSEndpoint != "" {
		opts = append(opts, option.WithEndpoint(spec.GCSEndpoint))
	}
	return opts
}

func newGCSSource(ctx context.Context, path string, spec Spec) (*gcsSource, error) {
	bucket, object, err := parseGCSPath(path)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, gcsOptions(spec)...)
	if err != nil {
		return nil, fmt.Errorf("source: storage client: %w", err)
	}
	return &gcsSource{bucket, object, spec.HasHeader, spec.Delimiter, client}, nil
}

func (s *gcsSource) Name() string {
	return "gs://" + s.bucket + "/" + s.object
}

func (s *gcsSource) Load(ctx context.Context, columns []string) (*table.Table, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	defer r.Close()
	cols, rows, err := readDelimited(r, s.header, s.delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return buildTable(s.Name(), cols, rows, columns)
}

func (s *gcsSource) Close() error {
	return s.client.Close()
}

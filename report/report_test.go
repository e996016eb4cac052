// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/google/uuid"
	"github.com/pipebench/pipebench/frame"
	"github.com/pipebench/pipebench/memstat"
	"github.com/pipebench/pipebench/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/perf/benchfmt"
)

func ms(ns ...int) []time.Duration {
	out := make([]time.Duration, len(ns))
	for i, n := range ns {
		out[i] = time.Duration(n) * time.Millisecond
	}
	return out
}

func avg(ds []time.Duration) time.Duration {
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

func testReport() *pipeline.Report {
	stage := func(name string, rows int, mem uint64, ds []time.Duration) pipeline.StageResult {
		return pipeline.StageResult{
			Stage:       name,
			Average:     avg(ds),
			Trials:      len(ds),
			Durations:   ds,
			Rows:        rows,
			MemoryAfter: memstat.Snapshot{WorkingSetMB: mem, PrivateUsageMB: mem + 1, PeakWorkingSetMB: mem + 2},
		}
	}
	result := new(table.Builder).
		Add("category", []string{"A", "<b>"}).
		Add("value_mean", []float64{600, 800}).
		Done()
	lazy := ms(4, 5, 4, 6, 5)
	return &pipeline.Report{
		RunID:    uuid.MustParse("5e1f1c2a-7d0b-4c57-9a3e-0d6c3f2b8a11"),
		Source:   "data.csv",
		Started:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Finished: time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC),
		Baseline: memstat.Snapshot{WorkingSetMB: 10},
		Forced: pipeline.Forced{
			stage(pipeline.StageLoad, 5, 11, ms(10, 11, 12)),
			stage(pipeline.StageSort, 5, 12, ms(3, 3, 3)),
			stage(pipeline.StageFilter, 3, 13, ms(1, 2, 3)),
			stage(pipeline.StageAggregate, 2, 14, ms(2, 2, 2)),
		},
		Lazy: pipeline.LazyResult{
			Average:   avg(lazy),
			Trials:    len(lazy),
			Durations: lazy,
			Plan:      "AGGREGATE [mean(col(\"value\")) AS value_mean] BY [category]\n  FILTER col(\"value\") > 500\n",
			Result:    frame.NewDataFrame(result),
			Rows:      2,
			Memory:    memstat.Snapshot{WorkingSetMB: 15},
		},
		Equivalence: pipeline.Equivalence{Rows: 2, Keys: 2, Tolerance: 1e-9},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, testReport()))
	out := buf.String()

	for _, want := range []string{
		"run: 5e1f1c2a-7d0b-4c57-9a3e-0d6c3f2b8a11\n",
		"source: data.csv\n",
		"baseline memory: working set 10 MB",
		"forced/load",
		"forced/aggregate",
		"lazy",
		"11.00ms",
		"forced total: 18.00ms\n",
		"forced vs lazy:",
		"equivalent: 2 rows, 2 groups",
		"optimized plan:\n  AGGREGATE",
		"\n    FILTER",
		"result (2 rows):",
		"value_mean",
	} {
		assert.Contains(t, out, want)
	}
}

func TestStageTableDelta(t *testing.T) {
	r := testReport()
	r.Baseline.PrivateUsageMB = 13
	st := stageTable(r, DefaultConfidence)
	assert.Equal(t, []string{"forced/load", "forced/sort", "forced/filter", "forced/aggregate", "lazy"}, st.Column("stage"))
	assert.Equal(t, []string{"+1", "+2", "+3", "+4", "+5"}, st.Column("Δws-MB"))
	assert.Equal(t, []string{"-1", "+0", "+1", "+2", "-13"}, st.Column("Δprivate-MB"))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.Contains(t, buf.String(), "Δws-MB")
}

func TestCompare(t *testing.T) {
	c := Compare(testReport(), DefaultConfidence)
	// Per-trial totals are 16ms, 18ms and 20ms.
	assert.InDelta(t, 0.018, c.Forced.Center, 1e-9)
	assert.InDelta(t, 0.005, c.Lazy.Center, 1e-9)
	assert.NotEmpty(t, c.Delta)
}

func TestSpread(t *testing.T) {
	assert.Equal(t, "-", spread(ms(5), DefaultConfidence))
	assert.Equal(t, "-", spread(nil, DefaultConfidence))
	assert.Contains(t, spread(ms(3, 4, 5), DefaultConfidence), "%")
}

func TestWriteBenchfmt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBenchfmt(&buf, testReport()))

	counts := make(map[string]int)
	units := 0
	rd := benchfmt.NewReader(&buf, "report")
	for rd.Scan() {
		switch rec := rd.Result().(type) {
		case *benchfmt.SyntaxError:
			t.Fatal(rec)
		case *benchfmt.UnitMetadata:
			units++
			assert.Equal(t, "assume", rec.Key)
			assert.Equal(t, "exact", rec.Value)
		case *benchfmt.Result:
			name := rec.Name.String()
			counts[name]++
			assert.Equal(t, "data.csv", rec.GetConfig("source"))
			assert.Equal(t, "5", rec.GetConfig("rows"))
			assert.Equal(t, "5e1f1c2a-7d0b-4c57-9a3e-0d6c3f2b8a11", rec.GetConfig("runid"))
			assert.Equal(t, 1, rec.Iters)
			_, ok := rec.Value("sec/op")
			assert.True(t, ok, "%s has no sec/op", name)
			if name == "Pipeline/mode=forced/stage=load" {
				ws, ok := rec.Value("working-set-B")
				require.True(t, ok)
				assert.Equal(t, float64(11<<20), ws)
				priv, _ := rec.Value("private-B")
				assert.Equal(t, float64(12<<20), priv)
			}
		}
	}
	require.NoError(t, rd.Err())
	assert.Equal(t, len(memUnits), units)
	assert.Equal(t, map[string]int{
		"Pipeline/mode=forced/stage=load":      3,
		"Pipeline/mode=forced/stage=sort":      3,
		"Pipeline/mode=forced/stage=filter":    3,
		"Pipeline/mode=forced/stage=aggregate": 3,
		"Pipeline/mode=lazy":                   5,
	}, counts)
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, testReport()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<td>forced/filter</td>")
	assert.Contains(t, out, "<td>lazy</td>")
	assert.Contains(t, out, "<th>value_mean</th>")
	assert.Contains(t, out, "&lt;b&gt;")
	assert.NotContains(t, out, "<td><b></td>")
	assert.Contains(t, out, "FILTER col(&#34;value&#34;) &gt; 500")
}

func TestCellStrings(t *testing.T) {
	df := frame.NewDataFrame(new(table.Builder).
		Add("k", []string{"x", "y"}).
		Add("n", []int{1, 2}).
		Done())
	assert.Equal(t, [][]string{{"x", "1"}, {"y", "2"}}, cellStrings(df))
	assert.Empty(t, cellStrings(frame.NewDataFrame(nil)))
}

func TestChart(t *testing.T) {
	r := testReport()
	for _, format := range []string{"png", "svg"} {
		var buf bytes.Buffer
		require.NoError(t, WriteChart(&buf, r, format), format)
		assert.NotZero(t, buf.Len(), format)
	}
	var buf bytes.Buffer
	assert.Error(t, WriteChart(&buf, r, "bogus"))

	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, SaveChart(path, r))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

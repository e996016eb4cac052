// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/aclements/go-gg/table"
)

func scenarioTable() *table.Table {
	return table.TableFromStrings(
		[]string{"id", "category", "value"},
		[][]string{
			{"1", "A", "100"},
			{"2", "A", "600"},
			{"3", "B", "200"},
			{"4", "B", "700"},
			{"5", "B", "900"},
		}, true)
}

// recordingSource serves a table and remembers the projections it
// was asked for.
type recordingSource struct {
	t     *table.Table
	loads [][]string
	err   error
}

func (s *recordingSource) Name() string { return "mem" }

func (s *recordingSource) Load(_ context.Context, cols []string) (*table.Table, error) {
	s.loads = append(s.loads, cols)
	if s.err != nil {
		return nil, s.err
	}
	return s.t, nil
}

func scenarioPlan(src Source) *LazyFrame {
	return Scan(src).
		Sort([]string{"value"}, SortOptions{}).
		Filter(Col("value").Gt(500)).
		GroupBy("category").
		Agg(Col("id").Mean().Alias("id_mean"), Col("value").Mean().Alias("value_mean"))
}

// byKey returns the rows of df keyed by the string column key.
func byKey(t *testing.T, df *DataFrame, key, col string) map[string]float64 {
	t.Helper()
	keys, ok := df.Column(key).([]string)
	if !ok {
		t.Fatalf("column %q is %T, want []string", key, df.Column(key))
	}
	vals, err := df.Float64s(col)
	if err != nil {
		t.Fatal(err)
	}
	m := make(map[string]float64)
	for i, k := range keys {
		m[k] = vals[i]
	}
	return m
}

func TestScenario(t *testing.T) {
	df, err := scenarioPlan(TableSource("mem", scenarioTable())).Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if df.Height() != 2 {
		t.Fatalf("got %d rows, want 2:\n%s", df.Height(), df)
	}
	want := []string{"category", "id_mean", "value_mean"}
	if got := df.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
	if got, want := byKey(t, df, "category", "value_mean"), map[string]float64{"A": 600, "B": 800}; !reflect.DeepEqual(got, want) {
		t.Errorf("value_mean = %v, want %v", got, want)
	}
	if got, want := byKey(t, df, "category", "id_mean"), map[string]float64{"A": 2, "B": 4.5}; !reflect.DeepEqual(got, want) {
		t.Errorf("id_mean = %v, want %v", got, want)
	}
}

func TestDescribe(t *testing.T) {
	lf := scenarioPlan(TableSource("mem", scenarioTable()))

	const written = `AGGREGATE [mean(col("id")) AS id_mean, mean(col("value")) AS value_mean] BY [col("category")]
  FILTER col("value") > 500
    SORT BY [col("value")]
      SCAN mem; PROJECT *
`
	const optimized = `AGGREGATE [mean(col("id")) AS id_mean, mean(col("value")) AS value_mean] BY [col("category")]
  FILTER col("value") > 500
    SCAN mem; PROJECT [col("category"), col("id"), col("value")]
`
	if got := lf.Describe(); got != written {
		t.Errorf("Describe:\n%s\nwant:\n%s", got, written)
	}
	got, err := lf.DescribeOptimized()
	if err != nil {
		t.Fatal(err)
	}
	if got != optimized {
		t.Errorf("DescribeOptimized:\n%s\nwant:\n%s", got, optimized)
	}

	// Optimizing does not modify the plan, and repeats exactly.
	if got := lf.Describe(); got != written {
		t.Errorf("Describe after optimize:\n%s", got)
	}
	again, _ := lf.DescribeOptimized()
	if again != got {
		t.Errorf("DescribeOptimized not repeatable:\n%s\nvs\n%s", again, got)
	}
	if twice := describe(optimize(optimize(lf.root))); twice != optimized {
		t.Errorf("optimize is not idempotent:\n%s", twice)
	}

	// An equivalent plan built separately describes the same.
	other, _ := scenarioPlan(TableSource("mem", scenarioTable())).DescribeOptimized()
	if other != optimized {
		t.Errorf("equivalent plan describes differently:\n%s", other)
	}
}

func TestOptimizerRules(t *testing.T) {
	src := TableSource("mem", scenarioTable())
	check := func(name string, lf *LazyFrame, want string) {
		t.Helper()
		got, err := lf.DescribeOptimized()
		if err != nil {
			t.Errorf("%s: %v", name, err)
			return
		}
		if got != want {
			t.Errorf("%s:\n%s\nwant:\n%s", name, got, want)
		}
	}

	check("pushdown below sort",
		Scan(src).Sort([]string{"value"}, SortOptions{Descending: true}).Filter(Col("id").Le(3)),
		`SORT BY [col("value")] DESC
  FILTER col("id") <= 3
    SCAN mem; PROJECT *
`)
	check("pushdown through stacked sorts",
		Scan(src).Sort([]string{"id"}, SortOptions{}).Sort([]string{"value"}, SortOptions{}).Filter(Col("id").Ne(1)),
		`SORT BY [col("value")]
  SORT BY [col("id")]
    FILTER col("id") != 1
      SCAN mem; PROJECT *
`)
	check("sort under aggregate",
		Scan(src).Sort([]string{"value"}, SortOptions{}).GroupBy("category").Agg(Col("value").Sum()),
		`AGGREGATE [sum(col("value")) AS sum_value] BY [col("category")]
  SCAN mem; PROJECT [col("category"), col("value")]
`)
	check("sort above aggregate kept",
		Scan(src).GroupBy("category").Agg(Col("value").Max()).Sort([]string{"max_value"}, SortOptions{}),
		`SORT BY [col("max_value")]
  AGGREGATE [max(col("value")) AS max_value] BY [col("category")]
    SCAN mem; PROJECT [col("category"), col("value")]
`)
	check("select projection",
		Scan(src).Filter(Col("category").Eq("B")).Select("id"),
		`SELECT [col("id")]
  FILTER col("category") == "B"
    SCAN mem; PROJECT [col("category"), col("id")]
`)
	check("dataframe input",
		NewDataFrame(scenarioTable()).Lazy().GroupBy("category").Agg(Col("id").Count()),
		`AGGREGATE [count(col("id")) AS count_id] BY [col("category")]
  DATAFRAME 5 ROWS; PROJECT [col("category"), col("id")]
`)
}

func TestProjectionPushdown(t *testing.T) {
	src := &recordingSource{t: scenarioTable()}
	ctx := context.Background()

	if _, err := scenarioPlan(src).Collect(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := Scan(src).Sort([]string{"value"}, SortOptions{}).Collect(ctx); err != nil {
		t.Fatal(err)
	}
	df, err := Scan(src).Select("value", "id").Collect(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"category", "id", "value"}, nil, {"id", "value"}}
	if !reflect.DeepEqual(src.loads, want) {
		t.Errorf("loads = %v, want %v", src.loads, want)
	}
	if got := df.Columns(); !reflect.DeepEqual(got, []string{"value", "id"}) {
		t.Errorf("select columns = %v", got)
	}
}

func TestSort(t *testing.T) {
	ctx := context.Background()
	base := NewDataFrame(table.TableFromStrings(
		[]string{"k", "v"},
		[][]string{{"b", "1"}, {"a", "3"}, {"b", "0"}, {"a", "3"}, {"a", "2"}},
		true)).Lazy()

	check := func(by []string, desc bool, wantK []string, wantV []int) {
		t.Helper()
		df, err := base.Sort(by, SortOptions{Descending: desc}).Collect(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got := df.Column("k"); !reflect.DeepEqual(got, wantK) {
			t.Errorf("sort %v desc=%v: k = %v, want %v", by, desc, got, wantK)
		}
		if got := df.Column("v"); !reflect.DeepEqual(got, wantV) {
			t.Errorf("sort %v desc=%v: v = %v, want %v", by, desc, got, wantV)
		}
	}
	check([]string{"v"}, false, []string{"b", "b", "a", "a", "a"}, []int{0, 1, 2, 3, 3})
	check([]string{"v"}, true, []string{"a", "a", "a", "b", "b"}, []int{3, 3, 2, 1, 0})
	check([]string{"k", "v"}, false, []string{"a", "a", "a", "b", "b"}, []int{2, 3, 3, 0, 1})
	check([]string{"k", "v"}, true, []string{"b", "b", "a", "a", "a"}, []int{1, 0, 3, 3, 2})
}

func TestAggregations(t *testing.T) {
	df, err := NewDataFrame(scenarioTable()).Lazy().
		GroupBy("category").
		Agg(Col("value").Sum(), Col("value").Min(), Col("value").Max(), Col("id").Count().Alias("n")).
		Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	check := func(col string, want map[string]float64) {
		t.Helper()
		if got := byKey(t, df, "category", col); !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %v, want %v", col, got, want)
		}
	}
	check("sum_value", map[string]float64{"A": 700, "B": 1800})
	check("min_value", map[string]float64{"A": 100, "B": 200})
	check("max_value", map[string]float64{"A": 600, "B": 900})
	check("n", map[string]float64{"A": 2, "B": 3})
	if _, ok := df.Column("n").([]int); !ok {
		t.Errorf("count column is %T, want []int", df.Column("n"))
	}
}

func TestEmptyResult(t *testing.T) {
	df, err := Scan(TableSource("mem", scenarioTable())).
		Filter(Col("value").Gt(10000)).
		GroupBy("category").
		Agg(Col("value").Mean().Alias("value_mean")).
		Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if df.Height() != 0 {
		t.Errorf("got %d rows, want 0", df.Height())
	}
	if got := df.Columns(); !reflect.DeepEqual(got, []string{"category", "value_mean"}) {
		t.Errorf("columns = %v", got)
	}
}

func TestExprs(t *testing.T) {
	ctx := context.Background()
	base := NewDataFrame(scenarioTable()).Lazy()
	check := func(pred Expr, str string, wantIDs []int) {
		t.Helper()
		if got := pred.String(); got != str {
			t.Errorf("String() = %s, want %s", got, str)
		}
		df, err := base.Filter(pred).Collect(ctx)
		if err != nil {
			t.Errorf("%s: %v", str, err)
			return
		}
		if got := df.Column("id"); !reflect.DeepEqual(got, wantIDs) {
			t.Errorf("%s: ids = %v, want %v", str, got, wantIDs)
		}
	}
	check(Col("value").Ge(600), `col("value") >= 600`, []int{2, 4, 5})
	check(Col("value").Lt(200.5), `col("value") < 200.5`, []int{1, 3})
	check(Col("category").Eq("A"), `col("category") == "A"`, []int{1, 2})
	check(And(Col("category").Eq("B"), Col("value").Gt(int64(500))),
		`(col("category") == "B" & col("value") > 500)`, []int{4, 5})
	check(Or(Col("id").Eq(1), Not(Col("category").Ne("B"))),
		`(col("id") == 1 | !(col("category") != "B"))`, []int{1, 3, 4, 5})
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	src := TableSource("mem", scenarioTable())
	check := func(name string, lf *LazyFrame, op string, target error) {
		t.Helper()
		_, err := lf.Collect(ctx)
		var ferr *Error
		if !errors.As(err, &ferr) {
			t.Errorf("%s: got %v, want *Error", name, err)
			return
		}
		if ferr.Op != op {
			t.Errorf("%s: op = %q, want %q", name, ferr.Op, op)
		}
		if target != nil && !errors.Is(err, target) {
			t.Errorf("%s: %v does not wrap %v", name, err, target)
		}
	}

	check("string column vs number", Scan(src).Filter(Col("category").Gt(5)), "filter", ErrTypeMismatch)
	check("number column vs string", Scan(src).Filter(Col("value").Eq("x")), "filter", ErrTypeMismatch)
	check("bad literal", Scan(src).Filter(Col("value").Eq(true)), "filter", ErrTypeMismatch)
	check("mean of strings", Scan(src).GroupBy("id").Agg(Col("category").Mean()), "aggregate", ErrTypeMismatch)
	check("unknown filter column", Scan(src).Filter(Col("nope").Gt(1)), "filter", ErrUnknownColumn)
	check("unknown sort column", Scan(src).Sort([]string{"nope"}, SortOptions{}), "sort", ErrUnknownColumn)
	check("unknown key", Scan(src).GroupBy("nope").Agg(Col("value").Sum()), "scan mem", ErrUnknownColumn)
	check("unknown select", NewDataFrame(scenarioTable()).Lazy().Sort([]string{"id"}, SortOptions{}).Select("nope"), "frame", ErrUnknownColumn)
	check("no keys", Scan(src).GroupBy().Agg(Col("value").Sum()), "aggregate", nil)
	check("no aggs", Scan(src).GroupBy("category").Agg(), "aggregate", nil)
	check("duplicate output", Scan(src).GroupBy("category").Agg(Col("value").Sum(), Col("id").Sum().Alias("sum_value")), "aggregate", nil)
	check("nil frame", (*LazyFrame)(nil).Sort([]string{"id"}, SortOptions{}), "sort", ErrEmptyPlan)
	check("zero frame", new(LazyFrame), "plan", ErrEmptyPlan)

	boom := errors.New("boom")
	check("source error", Scan(&recordingSource{err: boom}), "scan mem", boom)

	// Building on a nil frame reports the step that was applied.
	_, err := (*LazyFrame)(nil).Sort([]string{"id"}, SortOptions{}).DescribeOptimized()
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Op != "sort" || !errors.Is(err, ErrEmptyPlan) {
		t.Errorf("DescribeOptimized of nil frame = %v, want sort: empty plan", err)
	}

	// A builder error sticks through later steps.
	lf := Scan(src).GroupBy().Agg(Col("value").Sum()).Filter(Col("id").Gt(1))
	if _, err := lf.DescribeOptimized(); err == nil || !strings.Contains(err.Error(), "no group keys") {
		t.Errorf("DescribeOptimized = %v, want no group keys error", err)
	}
}

func TestEmptyInput(t *testing.T) {
	// A header-only dataset has no rows to infer column types from.
	empty := table.TableFromStrings([]string{"id", "category", "value"}, nil, true)
	lf := Scan(TableSource("empty", empty)).
		Sort([]string{"value"}, SortOptions{}).
		Filter(And(Col("value").Gt(500), Col("category").Ne("C"))).
		GroupBy("category").
		Agg(Col("id").Mean().Alias("id_mean"), Col("value").Sum(), Col("id").Count())
	df, err := lf.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if df.Height() != 0 {
		t.Errorf("height = %d, want 0", df.Height())
	}
	if got, want := df.Columns(), []string{"category", "id_mean", "sum_value", "count_id"}; !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
	if _, ok := df.Column("id_mean").([]float64); !ok {
		t.Errorf("id_mean is %T, want []float64", df.Column("id_mean"))
	}

	// Unknown columns are still errors.
	if _, err := Scan(TableSource("empty", empty)).Filter(Col("nope").Gt(1)).Collect(context.Background()); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("filter on unknown column of empty table = %v, want ErrUnknownColumn", err)
	}
}

func TestDataFrame(t *testing.T) {
	df := NewDataFrame(scenarioTable())
	if _, err := df.Float64s("category"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Float64s(category) = %v, want type mismatch", err)
	}
	if _, err := df.Float64s("nope"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Float64s(nope) = %v, want unknown column", err)
	}
	s := df.String()
	if !strings.HasPrefix(s, "shape: (5, 3)\n") || !strings.Contains(s, "category") {
		t.Errorf("String() = %q", s)
	}
	if NewDataFrame(nil).Height() != 0 {
		t.Errorf("empty DataFrame has rows")
	}

	// Collecting the same plan twice gives the same result.
	lf := df.Lazy().Filter(Col("value").Gt(150))
	a, err := lf.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := lf.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Column("id"), b.Column("id")) || a.Height() != 4 {
		t.Errorf("repeated Collect differs: %v vs %v", a.Column("id"), b.Column("id"))
	}
	if df.Height() != 5 {
		t.Errorf("input DataFrame modified")
	}
}

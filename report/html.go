// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/google/safehtml/template"
	"github.com/pipebench/pipebench/frame"
	"github.com/pipebench/pipebench/pipeline"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>pipebench report</title>
</head>
<body>
<h1>pipebench run {{.RunID}}</h1>
<p>source {{.Source}}, started {{.Started}}, baseline memory: {{.Baseline}}</p>
<table class="stages">
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Stages}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end -}}
</table>
<p>forced total {{.ForcedTotal}}; forced vs lazy {{.Delta}} ({{.Test}})</p>
<p>{{.Equivalence}}</p>
<h2>Optimized plan</h2>
<pre>{{.Plan}}</pre>
<h2>Result</h2>
<table class="result">
<tr>{{range .ResultHeader}}<th>{{.}}</th>{{end}}</tr>
{{range .Result}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end -}}
</table>
</body>
</html>
`))

type htmlView struct {
	RunID, Source, Started, Baseline string

	Header []string
	Stages [][]string

	ForcedTotal, Delta, Test string
	Equivalence              string
	Plan                     string

	ResultHeader []string
	Result       [][]string
}

// WriteHTML writes r as a standalone HTML page.
func WriteHTML(w io.Writer, r *pipeline.Report) error {
	st := stageTable(r, DefaultConfidence)
	v := htmlView{
		RunID:    r.RunID.String(),
		Source:   r.Source,
		Started:  r.Started.Format(time.RFC3339),
		Baseline: r.Baseline.String(),
		Header:   st.Columns(),
		Stages:   cellStrings(frame.NewDataFrame(st)),
		Plan:     r.Lazy.Plan,
	}
	c := Compare(r, DefaultConfidence)
	v.ForcedTotal = formatDuration(r.Forced.Total())
	v.Delta = c.Delta
	v.Test = c.Test.String()
	eq := r.Equivalence
	v.Equivalence = fmt.Sprintf("forced and lazy results agree: %d rows, %d groups, max relative difference %.3g",
		eq.Rows, eq.Keys, eq.MaxRelDiff)
	if r.Lazy.Result != nil {
		v.ResultHeader = r.Lazy.Result.Columns()
		v.Result = cellStrings(r.Lazy.Result)
	}
	return htmlTemplate.Execute(w, v)
}

// cellStrings formats df row by row.
func cellStrings(df *frame.DataFrame) [][]string {
	cols := df.Columns()
	out := make([][]string, df.Height())
	for i := range out {
		out[i] = make([]string, len(cols))
	}
	for j, c := range cols {
		col := reflect.ValueOf(df.Column(c))
		for i := range out {
			out[i][j] = fmt.Sprint(col.Index(i).Interface())
		}
	}
	return out
}

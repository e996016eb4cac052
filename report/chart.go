// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"image/color"
	"io"
	"time"

	"github.com/pipebench/pipebench/pipeline"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

const (
	chartWidth  = 16 * vg.Centimeter
	chartHeight = 9 * vg.Centimeter
)

var (
	forcedColor = color.NRGBA{0x44, 0x77, 0xaa, 0xff}
	lazyColor   = color.NRGBA{0xee, 0x66, 0x77, 0xff}
)

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Chart returns a bar chart of the average time of each forced stage
// next to the average time of lazy mode.
func Chart(r *pipeline.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "pipeline stage averages"
	p.Y.Label.Text = "ms"
	p.Legend.Top = true

	w := vg.Points(24)
	var names []string
	if len(r.Forced) > 0 {
		vals := make(plotter.Values, len(r.Forced))
		for i, sr := range r.Forced {
			vals[i] = millis(sr.Average)
			names = append(names, sr.Stage)
		}
		bars, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return nil, err
		}
		bars.Color = forcedColor
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.Legend.Add("forced", bars)
	}

	bars, err := plotter.NewBarChart(plotter.Values{millis(r.Lazy.Average)}, w)
	if err != nil {
		return nil, err
	}
	bars.XMin = float64(len(names))
	bars.Color = lazyColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.Legend.Add("lazy", bars)

	p.NominalX(append(names, "lazy")...)
	p.Add(plotter.NewGrid())
	return p, nil
}

// WriteChart draws the chart of r to w in the given format, such as
// "png" or "svg".
func WriteChart(w io.Writer, r *pipeline.Report, format string) error {
	p, err := Chart(r)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveChart draws the chart of r to the named file. The format
// follows the file extension.
func SaveChart(path string, r *pipeline.Report) error {
	p, err := Chart(r)
	if err != nil {
		return err
	}
	return p.Save(chartWidth, chartHeight, path)
}

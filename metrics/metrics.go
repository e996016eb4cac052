// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exports the results of a pipeline benchmark run as
// Prometheus gauges, for collection through the node exporter's
// textfile collector.
package metrics

import (
	"github.com/pipebench/pipebench/memstat"
	"github.com/pipebench/pipebench/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pipebench"

// Metrics holds the gauges of one run. Each Metrics has its own
// registry, so several may coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// StageSeconds is the average duration of a stage.
	// Labels: mode (forced, lazy), stage ("all" for lazy mode).
	StageSeconds *prometheus.GaugeVec

	// StageTrials is the number of trials behind StageSeconds.
	StageTrials *prometheus.GaugeVec

	// MemoryBytes is the process memory sampled after a stage.
	// Labels: mode, stage, counter (working_set, private, pagefile,
	// peak_working_set). Baseline memory has mode "baseline".
	MemoryBytes *prometheus.GaugeVec

	// ResultRows is the number of rows a stage produced.
	ResultRows *prometheus.GaugeVec

	// LastRun is the Unix time the run finished.
	LastRun prometheus.Gauge
}

// New returns Metrics registered with a fresh registry.
func New() *Metrics {
	stage := []string{"mode", "stage"}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		StageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_seconds",
			Help:      "Average duration of a pipeline stage in seconds",
		}, stage),
		StageTrials: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_trials",
			Help:      "Number of timed trials of a pipeline stage",
		}, stage),
		MemoryBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_bytes",
			Help:      "Process memory after a pipeline stage",
		}, []string{"mode", "stage", "counter"}),
		ResultRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_rows",
			Help:      "Rows produced by a pipeline stage",
		}, stage),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last benchmark run finished",
		}),
	}
	m.Registry.MustRegister(m.StageSeconds, m.StageTrials, m.MemoryBytes, m.ResultRows, m.LastRun)
	return m
}

// Record sets the gauges from r.
func (m *Metrics) Record(r *pipeline.Report) {
	for _, sr := range r.Forced {
		m.stage("forced", sr.Stage, sr.Average.Seconds(), sr.Trials, sr.Rows, sr.MemoryAfter)
	}
	m.stage("lazy", "all", r.Lazy.Average.Seconds(), r.Lazy.Trials, r.Lazy.Rows, r.Lazy.Memory)
	m.memory("baseline", "none", r.Baseline)
	if !r.Finished.IsZero() {
		m.LastRun.Set(float64(r.Finished.Unix()))
	}
}

func (m *Metrics) stage(mode, stage string, seconds float64, trials, rows int, mem memstat.Snapshot) {
	m.StageSeconds.WithLabelValues(mode, stage).Set(seconds)
	m.StageTrials.WithLabelValues(mode, stage).Set(float64(trials))
	m.ResultRows.WithLabelValues(mode, stage).Set(float64(rows))
	m.memory(mode, stage, mem)
}

func (m *Metrics) memory(mode, stage string, s memstat.Snapshot) {
	set := func(counter string, mb uint64) {
		m.MemoryBytes.WithLabelValues(mode, stage, counter).Set(float64(mb << 20))
	}
	set("working_set", s.WorkingSetMB)
	set("private", s.PrivateUsageMB)
	set("pagefile", s.PagefileUsageMB)
	set("peak_working_set", s.PeakWorkingSetMB)
}

// WriteTextfile writes the gauges to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package telemetry is an optional, end-of-run metrics dump. It never
// starts a listener — biasect is a one-shot CLI, not a server — so the
// only idiomatic home for client_golang in this repository is a text
// encode of a private registry once the bisection finishes.
package telemetry

import (
	"fmt"
	"io"

	"github.com/hashicorp/biasect/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics tracks per-run counters and gauges in a registry private to
// this process; nothing here is exported over HTTP.
type Metrics struct {
	registry     *prometheus.Registry
	completions  *prometheus.CounterVec
	peakRunners  prometheus.Gauge
	stepsTotal   prometheus.Counter
	highWater    int
}

// New constructs a fresh registry with biasect's run metrics.
func New() *Metrics {
	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "biasect_completions_total",
		Help: "Completed worker runs, labelled by reported status.",
	}, []string{"status"})

	peakRunners := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "biasect_peak_concurrent_runners",
		Help: "The largest number of runners scheduled at once during this run.",
	})

	stepsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "biasect_steps_total",
		Help: "Number of scheduler.Step transitions applied during this run.",
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(completions, peakRunners, stepsTotal)

	return &Metrics{
		registry:    reg,
		completions: completions,
		peakRunners: peakRunners,
		stepsTotal:  stepsTotal,
	}
}

// RecordCompletion increments the counter for status and counts one
// more step having been applied.
func (m *Metrics) RecordCompletion(status scheduler.Status) {
	m.completions.WithLabelValues(status.String()).Inc()
	m.stepsTotal.Inc()
}

// ObserveRunnerCount updates the high-water mark for concurrently
// scheduled runners, if n is a new peak.
func (m *Metrics) ObserveRunnerCount(n int) {
	if n > m.highWater {
		m.highWater = n
		m.peakRunners.Set(float64(n))
	}
}

// Dump writes every metric in Prometheus text exposition format to w.
func (m *Metrics) Dump(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics exposes a small counter/gauge/histogram facade the rest of
// the engine calls unconditionally. Until InitializePrometheusMetrics is
// called it is backed by no-ops, so callframe/runtime/journal can record
// metrics on every hot path without forcing a Prometheus registry onto
// embedders that don't want one.
package metrics

import "net/http"

const namePrefix = "engine_metrics_"

// CounterMeter is a monotonically increasing counter.
type CounterMeter interface{ Add(int64) }

// CounterVecMeter is a CounterMeter family keyed by label values.
type CounterVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

// GaugeMeter is a point-in-time value that can move up or down.
type GaugeMeter interface{ Add(int64) }

// GaugeVecMeter is a GaugeMeter family keyed by label values.
type GaugeVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

// HistogramMeter records a distribution of observed values.
type HistogramMeter interface{ Observe(int64) }

// HistogramVecMeter is a HistogramMeter family keyed by label values.
type HistogramVecMeter interface {
	ObserveWithLabels(int64, map[string]string)
}

// Metrics is the backend interface swapped out by InitializePrometheusMetrics.
type Metrics interface {
	Counter(name string) CounterMeter
	CounterVec(name string, labels []string) CounterVecMeter
	Gauge(name string) GaugeMeter
	GaugeVec(name string, labels []string) GaugeVecMeter
	Histogram(name string, buckets []float64) HistogramMeter
	HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter
	HTTPHandler() http.Handler
}

var metrics Metrics = defaultNoopMetrics()

// noopMeters satisfies every *Meter interface above with a zero-cost no-op;
// a single type is enough since their method sets are identical in shape.
type noopMeters struct{}

func (noopMeters) Add(int64)                               {}
func (noopMeters) AddWithLabel(int64, map[string]string)   {}
func (noopMeters) Observe(int64)                           {}
func (noopMeters) ObserveWithLabels(int64, map[string]string) {}

type noopMetrics struct{}

func defaultNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) Counter(string) CounterMeter                         { return &noopMeters{} }
func (noopMetrics) CounterVec(string, []string) CounterVecMeter         { return &noopMeters{} }
func (noopMetrics) Gauge(string) GaugeMeter                             { return &noopMeters{} }
func (noopMetrics) GaugeVec(string, []string) GaugeVecMeter             { return &noopMeters{} }
func (noopMetrics) Histogram(string, []float64) HistogramMeter          { return &noopMeters{} }
func (noopMetrics) HistogramVec(string, []string, []float64) HistogramVecMeter {
	return &noopMeters{}
}
func (noopMetrics) HTTPHandler() http.Handler { return http.NotFoundHandler() }

// Counter returns the named counter, creating it on first use.
func Counter(name string) CounterMeter { return metrics.Counter(name) }

// CounterVec returns the named counter family.
func CounterVec(name string, labels []string) CounterVecMeter { return metrics.CounterVec(name, labels) }

// Gauge returns the named gauge.
func Gauge(name string) GaugeMeter { return metrics.Gauge(name) }

// GaugeVec returns the named gauge family.
func GaugeVec(name string, labels []string) GaugeVecMeter { return metrics.GaugeVec(name, labels) }

// Histogram returns the named histogram.
func Histogram(name string, buckets []float64) HistogramMeter { return metrics.Histogram(name, buckets) }

// HistogramVec returns the named histogram family.
func HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter {
	return metrics.HistogramVec(name, labels, buckets)
}

// HTTPHandler serves the current backend's scrape endpoint (404 until
// InitializePrometheusMetrics has been called).
func HTTPHandler() http.Handler { return metrics.HTTPHandler() }

// LazyLoadCounter defers the Counter(name) lookup to first call, so a
// package-level var can reference a metric that may not exist yet if the
// backend is swapped after init().
func LazyLoadCounter(name string) func() CounterMeter {
	return func() CounterMeter { return Counter(name) }
}

func LazyLoadCounterVec(name string, labels []string) func() CounterVecMeter {
	return func() CounterVecMeter { return CounterVec(name, labels) }
}

func LazyLoadGauge(name string) func() GaugeMeter {
	return func() GaugeMeter { return Gauge(name) }
}

func LazyLoadGaugeVec(name string, labels []string) func() GaugeVecMeter {
	return func() GaugeVecMeter { return GaugeVec(name, labels) }
}

func LazyLoadHistogram(name string, buckets []float64) func() HistogramMeter {
	return func() HistogramMeter { return Histogram(name, buckets) }
}

func LazyLoadHistogramVec(name string, labels []string, buckets []float64) func() HistogramVecMeter {
	return func() HistogramVecMeter { return HistogramVec(name, labels, buckets) }
}

// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitializePrometheusMetrics swaps the package-level backend from the
// default no-ops to one registering every metric under
// prometheus.DefaultRegisterer, prefixed with namePrefix the way thor's
// metrics package namespaces its own counters.
func InitializePrometheusMetrics() {
	metrics = newPromMetrics()
}

type promMetrics struct {
	counters      sync.Map // name -> prometheus.Counter
	counterVecs   sync.Map // name -> *prometheus.CounterVec
	gauges        sync.Map
	gaugeVecs     sync.Map
	histograms    sync.Map
	histogramVecs sync.Map
}

func newPromMetrics() *promMetrics { return &promMetrics{} }

func sanitize(name string) string {
	return namePrefix + strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, name)
}

func (m *promMetrics) Counter(name string) CounterMeter {
	v, _ := m.counters.LoadOrStore(name, &promCountMeter{
		c: promauto.With(prometheus.DefaultRegisterer).NewCounter(prometheus.CounterOpts{Name: sanitize(name)}),
	})
	return v.(CounterMeter)
}

func (m *promMetrics) CounterVec(name string, labels []string) CounterVecMeter {
	v, _ := m.counterVecs.LoadOrStore(name, &promCountVecMeter{
		c: promauto.With(prometheus.DefaultRegisterer).NewCounterVec(prometheus.CounterOpts{Name: sanitize(name)}, labels),
	})
	return v.(CounterVecMeter)
}

func (m *promMetrics) Gauge(name string) GaugeMeter {
	v, _ := m.gauges.LoadOrStore(name, &promGaugeMeter{
		g: promauto.With(prometheus.DefaultRegisterer).NewGauge(prometheus.GaugeOpts{Name: sanitize(name)}),
	})
	return v.(GaugeMeter)
}

func (m *promMetrics) GaugeVec(name string, labels []string) GaugeVecMeter {
	v, _ := m.gaugeVecs.LoadOrStore(name, &promGaugeVecMeter{
		g: promauto.With(prometheus.DefaultRegisterer).NewGaugeVec(prometheus.GaugeOpts{Name: sanitize(name)}, labels),
	})
	return v.(GaugeVecMeter)
}

func (m *promMetrics) Histogram(name string, buckets []float64) HistogramMeter {
	v, _ := m.histograms.LoadOrStore(name, &promHistogramMeter{
		h: promauto.With(prometheus.DefaultRegisterer).NewHistogram(prometheus.HistogramOpts{Name: sanitize(name), Buckets: buckets}),
	})
	return v.(HistogramMeter)
}

func (m *promMetrics) HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter {
	v, _ := m.histogramVecs.LoadOrStore(name, &promHistogramVecMeter{
		h: promauto.With(prometheus.DefaultRegisterer).NewHistogramVec(prometheus.HistogramOpts{Name: sanitize(name), Buckets: buckets}, labels),
	})
	return v.(HistogramVecMeter)
}

func (m *promMetrics) HTTPHandler() http.Handler { return promhttp.Handler() }

type promCountMeter struct{ c prometheus.Counter }

func (p *promCountMeter) Add(v int64) { p.c.Add(float64(v)) }

type promCountVecMeter struct{ c *prometheus.CounterVec }

func (p *promCountVecMeter) AddWithLabel(v int64, labels map[string]string) {
	p.c.With(labels).Add(float64(v))
}

type promGaugeMeter struct{ g prometheus.Gauge }

func (p *promGaugeMeter) Add(v int64) { p.g.Add(float64(v)) }

type promGaugeVecMeter struct{ g *prometheus.GaugeVec }

func (p *promGaugeVecMeter) AddWithLabel(v int64, labels map[string]string) {
	p.g.With(labels).Add(float64(v))
}

type promHistogramMeter struct{ h prometheus.Histogram }

func (p *promHistogramMeter) Observe(v int64) { p.h.Observe(float64(v)) }

type promHistogramVecMeter struct{ h *prometheus.HistogramVec }

func (p *promHistogramVecMeter) ObserveWithLabels(v int64, labels map[string]string) {
	p.h.With(labels).Observe(float64(v))
}

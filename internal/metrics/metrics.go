// Package metrics exposes preview and commit outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/catalogimport/internal/imports"
)

var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05,
	0.1, 0.25, 0.5,
	1, 2.5, 5, 10, 30,
}

// Collector implements imports.Observer.
type Collector struct {
	reg *prometheus.Registry

	previewTotal   *prometheus.CounterVec
	previewRows    *prometheus.CounterVec
	previewLatency *prometheus.HistogramVec

	commitTotal   *prometheus.CounterVec
	commitRows    *prometheus.CounterVec
	commitLatency *prometheus.HistogramVec
}

// New registers the import collectors on a fresh registry. A non-nil
// limiter is exported as a gauge of active imports.
func New(limiter *imports.Limiter) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	c := &Collector{
		reg: reg,
		previewTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogimport",
			Name:      "previews_total",
			Help:      "Total number of previews produced.",
		}, []string{"kind"}),
		previewRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogimport",
			Name:      "preview_rows_total",
			Help:      "Previewed rows by outcome.",
		}, []string{"kind", "outcome"}),
		previewLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalogimport",
			Name:      "preview_duration_seconds",
			Help:      "Latency distribution for previews.",
			Buckets:   latencyBuckets,
		}, []string{"kind"}),
		commitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogimport",
			Name:      "commits_total",
			Help:      "Total number of commit attempts by status.",
		}, []string{"kind", "status"}),
		commitRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogimport",
			Name:      "commit_rows_total",
			Help:      "Committed rows by action.",
		}, []string{"kind", "action"}),
		commitLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalogimport",
			Name:      "commit_duration_seconds",
			Help:      "Latency distribution for commits.",
			Buckets:   latencyBuckets,
		}, []string{"kind", "status"}),
	}

	if limiter != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "catalogimport",
			Name:      "imports_in_progress",
			Help:      "Imports currently holding a limiter slot.",
		}, func() float64 { return float64(limiter.ActiveCount()) })
	}
	return c
}

// PreviewDone implements imports.Observer.
func (c *Collector) PreviewDone(kind string, s imports.Summary, elapsed time.Duration) {
	c.previewTotal.WithLabelValues(kind).Inc()
	c.previewRows.WithLabelValues(kind, "valid").Add(float64(s.ValidRows))
	c.previewRows.WithLabelValues(kind, "invalid").Add(float64(s.InvalidRows))
	c.previewRows.WithLabelValues(kind, "warning").Add(float64(s.WarningRows))
	c.previewLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// CommitDone implements imports.Observer.
func (c *Collector) CommitDone(kind string, r imports.CommitReceipt, elapsed time.Duration) {
	status := string(r.Status)
	c.commitTotal.WithLabelValues(kind, status).Inc()
	c.commitRows.WithLabelValues(kind, "insert").Add(float64(r.Inserted))
	c.commitRows.WithLabelValues(kind, "update").Add(float64(r.Updated))
	c.commitRows.WithLabelValues(kind, "failed").Add(float64(len(r.Failures)))
	c.commitLatency.WithLabelValues(kind, status).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

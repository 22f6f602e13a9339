// Package metrics exposes prometheus collectors for merges, admissions and
// pending downloads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/pdfmerge/internal/merge"
)

const namespace = "pdfmerge"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	merges        *prometheus.CounterVec
	mergeDuration prometheus.Histogram
	mergedPages   prometheus.Counter
	mergedFiles   prometheus.Counter
	admitted      prometheus.Counter
	filtered      prometheus.Counter
	downloads     prometheus.Gauge
}

var _ merge.Recorder = (*Metrics)(nil)

// New creates and registers all collectors on a fresh registry together with
// the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Merges by terminal status.",
		}, []string{"status"}),
		mergeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merge_duration_seconds",
			Help:      "Wall time of merges.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		mergedPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_pages_total",
			Help:      "Pages written to merged artifacts.",
		}),
		mergedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_files_total",
			Help:      "Input files of successful merges.",
		}),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_admitted_total",
			Help:      "Candidates accepted into file lists.",
		}),
		filtered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_filtered_total",
			Help:      "Candidates rejected by the PDF admission check.",
		}),
		downloads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "downloads_active",
			Help:      "Merged artifacts held for download.",
		}),
	}
	m.registry.MustRegister(
		m.merges, m.mergeDuration, m.mergedPages, m.mergedFiles,
		m.admitted, m.filtered, m.downloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveMerge implements merge.Recorder.
func (m *Metrics) ObserveMerge(status merge.Status, files, pages int, d time.Duration) {
	m.merges.WithLabelValues(string(status)).Inc()
	m.mergeDuration.Observe(d.Seconds())
	if status == merge.StatusSucceeded {
		m.mergedPages.Add(float64(pages))
		m.mergedFiles.Add(float64(files))
	}
}

// ObserveAppend counts one Append outcome.
func (m *Metrics) ObserveAppend(accepted, filtered int) {
	m.admitted.Add(float64(accepted))
	m.filtered.Add(float64(filtered))
}

// DownloadHeld and DownloadReleased track artifacts awaiting download.
func (m *Metrics) DownloadHeld()     { m.downloads.Inc() }
func (m *Metrics) DownloadReleased() { m.downloads.Dec() }

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

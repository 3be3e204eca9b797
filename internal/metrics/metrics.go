// Package metrics counts station activity for the node exporter textfile
// collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portrait"

// Metrics holds the station counters
type Metrics struct {
	registry *prometheus.Registry

	Captures    *prometheus.CounterVec
	Retakes     *prometheus.CounterVec
	Skips       *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Archives    prometheus.Counter
	Warnings    prometheus.Counter
	CaptureTime prometheus.Histogram
}

// New registers the counters on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Committed photos.",
		}, []string{"location"}),
		Retakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retakes_total",
			Help:      "Photos discarded during review.",
		}, []string{"location"}),
		Skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skips_total",
			Help:      "People recorded as missed.",
		}, []string{"reason"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_failures_total",
			Help:      "Failed capture attempts by phase.",
		}, []string{"phase"}),
		Archives: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_total",
			Help:      "Zip archives written.",
		}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Recoverable write failures.",
		}),
		CaptureTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Time from trigger to review.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10},
		}),
	}
	m.registry.MustRegister(m.Captures, m.Retakes, m.Skips, m.Failures, m.Archives, m.Warnings, m.CaptureTime)
	return m
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// WriteTextfile writes all metrics in text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

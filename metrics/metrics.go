// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_dataset_uploads_total",
		Help: "Workbook uploads by result (ok, parse_error, schema_error, too_large).",
	}, []string{"result"})

	ViewRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_view_renders_total",
		Help: "Rendered views by view name and state.",
	}, []string{"view", "state"})

	ViewDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleet_view_duration_seconds",
		Help:    "Time spent building a view model.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	}, []string{"view"})

	DefaultReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_default_dataset_reloads_total",
		Help: "Loads of the default dataset by result.",
	}, []string{"result"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_sessions_active",
		Help: "Sessions holding an uploaded dataset in this process.",
	})
)

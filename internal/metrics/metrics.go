// Package metrics defines the Prometheus instruments shared by the
// scheduled jobs. Register-on-init via promauto; the exporter endpoint is
// served from main on its own listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CitiesProcessed counts per-city outcomes by job.
	CitiesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climawatch_cities_processed_total",
			Help: "Cities processed per job, by outcome",
		},
		[]string{"job", "status"}, // job=imagery/weather/forecast, status=success/failure
	)

	// FramesUploaded counts satellite frames published to the object store.
	FramesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "climawatch_frames_uploaded_total",
			Help: "Satellite frames uploaded to the object store",
		},
	)

	// AnimationsBuilt counts rolling-animation rebuild outcomes.
	AnimationsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climawatch_animations_built_total",
			Help: "Animation rebuilds, by outcome",
		},
		[]string{"status"}, // success, failure
	)

	// StageErrors counts failures by pipeline stage.
	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climawatch_stage_errors_total",
			Help: "Errors by pipeline stage",
		},
		[]string{"stage"}, // fetch, composite, upload, animation, weather, forecast
	)

	// RunDuration observes wall-clock duration of whole scheduled runs.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "climawatch_run_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"job"},
	)
)

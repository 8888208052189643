package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch outcomes recorded by the event loop.
const (
	OutcomeIrrelevant = "irrelevant"
	OutcomeDebounced  = "debounced"
	OutcomeAdmitted   = "admitted"
)

// Deploy results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics definitions
var (
	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dotdeploy_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dotdeploy_watcher_errors_total",
		Help: "Total number of errors reported by the file system subscription.",
	})

	WatcherErrorLogsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dotdeploy_watcher_error_logs_suppressed_total",
		Help: "Watcher errors that were counted but not logged because of log rate limiting.",
	})

	WatchedDirectories = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dotdeploy_watched_directories",
		Help: "Number of directories currently registered with the file system subscription.",
	})

	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dotdeploy_batches_total",
		Help: "Change batches processed by the event loop, by outcome.",
	}, []string{"outcome"})

	DeploysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dotdeploy_deploys_total",
		Help: "Deployments dispatched by the event loop, by result.",
	}, []string{"result"})

	DeployDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dotdeploy_deploy_seconds",
		Help:    "Time spent in a single deployment.",
		Buckets: prometheus.DefBuckets,
	})
)

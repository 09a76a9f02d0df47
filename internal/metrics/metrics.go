package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "employee_ingest_"

var RowsCommitted = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "rows_committed_total",
		Help: "Number of employee rows persisted by bulk CSV jobs",
	},
)

var BatchesCommitted = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "batches_committed_total",
		Help: "Number of batches persisted by bulk CSV jobs",
	},
)

var BatchCommitSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    prefix + "batch_commit_seconds",
		Help:    "Time taken to persist one batch",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
)

var JobsProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "jobs_total",
		Help: "Number of jobs processed by kind and final status",
	},
	[]string{"job_type", "status"},
)

var PublishFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "publish_failures_total",
		Help: "Number of progress events that could not be published",
	},
	[]string{"event"},
)

var Subscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: prefix + "subscribers",
		Help: "Number of connected server-push subscribers",
	},
)

var BroadcastFrames = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "broadcast_frames_total",
		Help: "Number of frames written to subscribers, by outcome",
	},
	[]string{"outcome"},
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

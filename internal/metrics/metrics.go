// Package metrics provides Prometheus metrics for the dashboard, its data fetches and background jobs.
package metrics

import (
	"time"

	"github.com/nadmax/bidboard/internal/job"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidboard_fetches_total",
			Help: "Total number of task fetches by selection kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bidboard_fetch_duration_seconds",
			Help:    "Time spent fetching and shaping task records for a selection",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)
	SeriesTasks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bidboard_series_tasks",
			Help: "Number of estimated tasks in the last computed series",
		},
		[]string{"selection"},
	)
	PlannedDays = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bidboard_planned_days",
			Help: "Total planned (bid) days in the last computed series",
		},
		[]string{"selection"},
	)
	LoggedDays = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bidboard_logged_days",
			Help: "Total logged days in the last computed series",
		},
		[]string{"selection"},
	)
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidboard_cache_requests_total",
			Help: "Cache lookups by data kind and result",
		},
		[]string{"kind", "result"},
	)
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidboard_jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type", "priority"},
	)
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidboard_jobs_completed_total",
			Help: "Total number of jobs completed successfully",
		},
		[]string{"type"},
	)
	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidboard_jobs_failed_total",
			Help: "Total number of jobs that failed permanently",
		},
		[]string{"type"},
	)
	JobsRetried = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidboard_jobs_retried_total",
			Help: "Total number of job retries",
		},
		[]string{"type"},
	)
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bidboard_job_duration_seconds",
			Help:    "Job execution duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"type", "status"},
	)
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bidboard_queue_depth",
			Help: "Current depth of the job queue",
		},
	)
	SnapshotsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bidboard_snapshots_saved_total",
			Help: "Total number of selection snapshots persisted",
		},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bidboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordFetch(kind string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	FetchesTotal.WithLabelValues(kind, outcome).Inc()
	FetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordSeries(selection string, tasks int, planned, logged float64) {
	SeriesTasks.WithLabelValues(selection).Set(float64(tasks))
	PlannedDays.WithLabelValues(selection).Set(planned)
	LoggedDays.WithLabelValues(selection).Set(logged)
}

func RecordCacheHit(kind string) {
	CacheRequests.WithLabelValues(kind, "hit").Inc()
}

func RecordCacheMiss(kind string) {
	CacheRequests.WithLabelValues(kind, "miss").Inc()
}

func RecordCacheError(kind string) {
	CacheRequests.WithLabelValues(kind, "error").Inc()
}

func RecordJobEnqueued(jobType string, priority job.JobPriority) {
	JobsEnqueued.WithLabelValues(jobType, priority.String()).Inc()
}

func RecordJobCompleted(jobType string, duration time.Duration) {
	JobsCompleted.WithLabelValues(jobType).Inc()
	JobDuration.WithLabelValues(jobType, "completed").Observe(duration.Seconds())
}

func RecordJobFailed(jobType string, duration time.Duration) {
	JobsFailed.WithLabelValues(jobType).Inc()
	JobDuration.WithLabelValues(jobType, "failed").Observe(duration.Seconds())
}

func RecordJobRetried(jobType string) {
	JobsRetried.WithLabelValues(jobType).Inc()
}

func RecordSnapshotSaved() {
	SnapshotsSaved.Inc()
}

func UpdateQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/nadmax/bidboard/internal/job"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFetch(t *testing.T) {
	FetchesTotal.Reset()
	FetchDuration.Reset()

	RecordFetch("episode", 2*time.Second, nil)
	RecordFetch("episode", time.Second, errors.New("timeout"))

	assert.Equal(t, 1.0, getCounterValue(t, FetchesTotal, "episode", "success"))
	assert.Equal(t, 1.0, getCounterValue(t, FetchesTotal, "episode", "error"))

	metric := getHistogramMetric(t, FetchDuration, "episode")
	assert.Equal(t, uint64(2), metric.Histogram.GetSampleCount())
	assert.Equal(t, 3.0, metric.Histogram.GetSampleSum())
}

func TestRecordSeries(t *testing.T) {
	SeriesTasks.Reset()
	PlannedDays.Reset()
	LoggedDays.Reset()

	RecordSeries("asset-7", 12, 30.5, 12.25)

	assert.Equal(t, 12.0, getGaugeValue(t, SeriesTasks, "asset-7"))
	assert.Equal(t, 30.5, getGaugeValue(t, PlannedDays, "asset-7"))
	assert.Equal(t, 12.25, getGaugeValue(t, LoggedDays, "asset-7"))

	RecordSeries("asset-7", 0, 0, 0)
	assert.Equal(t, 0.0, getGaugeValue(t, SeriesTasks, "asset-7"))
}

func TestRecordCache(t *testing.T) {
	CacheRequests.Reset()

	RecordCacheHit("tasks")
	RecordCacheHit("tasks")
	RecordCacheMiss("tasks")
	RecordCacheError("episodes")

	assert.Equal(t, 2.0, getCounterValue(t, CacheRequests, "tasks", "hit"))
	assert.Equal(t, 1.0, getCounterValue(t, CacheRequests, "tasks", "miss"))
	assert.Equal(t, 1.0, getCounterValue(t, CacheRequests, "episodes", "error"))
}

func TestRecordJobEnqueued(t *testing.T) {
	JobsEnqueued.Reset()

	tests := []struct {
		name     string
		jobType  string
		priority job.JobPriority
	}{
		{name: "high priority job", jobType: job.TypeSendReport, priority: job.HighPriority},
		{name: "medium priority job", jobType: job.TypeSnapshot, priority: job.MediumPriority},
		{name: "low priority job", jobType: job.TypeExportSeries, priority: job.LowPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordJobEnqueued(tt.jobType, tt.priority)

			metric := getCounterValue(t, JobsEnqueued, tt.jobType, tt.priority.String())
			assert.Greater(t, metric, 0.0, "counter should be incremented")
		})
	}
}

func TestRecordJobCompleted(t *testing.T) {
	JobsCompleted.Reset()
	JobDuration.Reset()

	RecordJobCompleted(job.TypeSnapshot, 2*time.Second)

	assert.Equal(t, 1.0, getCounterValue(t, JobsCompleted, job.TypeSnapshot))
	assert.Equal(t, 2.0, getHistogramSum(t, JobDuration, job.TypeSnapshot, "completed"))
}

func TestRecordJobFailed(t *testing.T) {
	JobsFailed.Reset()
	JobDuration.Reset()

	RecordJobFailed(job.TypeSendReport, 500*time.Millisecond)

	assert.Equal(t, 1.0, getCounterValue(t, JobsFailed, job.TypeSendReport))
	assert.Equal(t, 0.5, getHistogramSum(t, JobDuration, job.TypeSendReport, "failed"))
}

func TestRecordJobRetried(t *testing.T) {
	JobsRetried.Reset()

	RecordJobRetried(job.TypeExportSeries)

	assert.Equal(t, 1.0, getCounterValue(t, JobsRetried, job.TypeExportSeries))
}

func TestRecordSnapshotSaved(t *testing.T) {
	before := counterValue(t, SnapshotsSaved)
	RecordSnapshotSaved()
	assert.Equal(t, before+1, counterValue(t, SnapshotsSaved))
}

func TestUpdateQueueDepth(t *testing.T) {
	for _, depth := range []int{0, 10, 100, 1000} {
		UpdateQueueDepth(depth)

		metric := &dto.Metric{}
		require.NoError(t, QueueDepth.Write(metric))
		assert.Equal(t, float64(depth), metric.Gauge.GetValue())
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	tests := []struct {
		name     string
		method   string
		endpoint string
		status   string
		duration time.Duration
	}{
		{name: "dashboard page", method: "GET", endpoint: "/", status: "200", duration: 50 * time.Millisecond},
		{name: "bad tab", method: "GET", endpoint: "/api/dashboard/series", status: "400", duration: 10 * time.Millisecond},
		{name: "job create", method: "POST", endpoint: "/api/jobs", status: "201", duration: 5 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordHTTPRequest(tt.method, tt.endpoint, tt.status, tt.duration)

			count := getCounterValue(t, HTTPRequestsTotal, tt.method, tt.endpoint, tt.status)
			assert.Greater(t, count, 0.0, "request counter should be incremented")

			sum := getHistogramSum(t, HTTPRequestDuration, tt.method, tt.endpoint)
			assert.Greater(t, sum, 0.0, "duration should be recorded")
		})
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	metric := &dto.Metric{}
	require.NoError(t, c.Write(metric))
	return metric.Counter.GetValue()
}

func getCounterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	observer, err := counter.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	return counterValue(t, observer)
}

func getGaugeValue(t *testing.T, gauge *prometheus.GaugeVec, labels ...string) float64 {
	metric := &dto.Metric{}
	observer, err := gauge.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)

	require.NoError(t, observer.Write(metric))
	return metric.Gauge.GetValue()
}

func getHistogramSum(t *testing.T, histogram *prometheus.HistogramVec, labels ...string) float64 {
	return getHistogramMetric(t, histogram, labels...).Histogram.GetSampleSum()
}

func getHistogramMetric(t *testing.T, histogram *prometheus.HistogramVec, labels ...string) *dto.Metric {
	metric := &dto.Metric{}
	observer, err := histogram.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)

	h := observer.(prometheus.Histogram)
	require.NoError(t, h.Write(metric))
	return metric
}

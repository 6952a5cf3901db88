package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewJob(t *testing.T) {
	payload := map[string]any{
		"tab": "episode-12",
	}

	j := NewJob(TypeSnapshot, payload, MediumPriority)

	assert.NotEmpty(t, j.ID)
	assert.Equal(t, TypeSnapshot, j.Type)
	assert.Equal(t, payload, j.Payload)
	assert.Equal(t, MediumPriority, j.Priority)
	assert.Equal(t, PendingStatus, j.Status)
	assert.Equal(t, 3, j.MaxRetries)
	assert.Equal(t, 0, j.RetryCount)
	assert.False(t, j.CreatedAt.IsZero())
	assert.False(t, j.ScheduledAt.IsZero())
	assert.Nil(t, j.StartedAt)
	assert.Nil(t, j.CompletedAt)
}

func TestJobToJSON(t *testing.T) {
	j := NewJob(TypeExportSeries, map[string]any{"format": "csv"}, LowPriority)

	jsonStr, err := j.ToJSON()

	assert.NoError(t, err)
	assert.Contains(t, jsonStr, TypeExportSeries)
	assert.Contains(t, jsonStr, "format")
}

func TestJobFromJSON(t *testing.T) {
	now := time.Now()
	original := &Job{
		ID:          "job-123",
		Type:        TypeSendReport,
		Payload:     map[string]any{"to": "prod@example.com"},
		Priority:    HighPriority,
		Status:      RunningStatus,
		MaxRetries:  5,
		RetryCount:  2,
		CreatedAt:   now,
		ScheduledAt: now,
		StartedAt:   &now,
		Error:       "smtp unavailable",
	}
	jsonStr, err := original.ToJSON()
	assert.NoError(t, err)

	restored, err := JobFromJSON(jsonStr)

	assert.NoError(t, err)
	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Type, restored.Type)
	assert.Equal(t, original.Priority, restored.Priority)
	assert.Equal(t, original.Status, restored.Status)
	assert.Equal(t, original.RetryCount, restored.RetryCount)
	assert.Equal(t, original.Error, restored.Error)
	assert.NotNil(t, restored.StartedAt)
}

func TestJobFromJSON_InvalidJSON(t *testing.T) {
	_, err := JobFromJSON("invalid json")

	assert.Error(t, err)
}

func TestJobPriorities(t *testing.T) {
	assert.Equal(t, JobPriority(0), LowPriority)
	assert.Equal(t, JobPriority(1), MediumPriority)
	assert.Equal(t, JobPriority(2), HighPriority)

	assert.Equal(t, "low", LowPriority.String())
	assert.Equal(t, "medium", MediumPriority.String())
	assert.Equal(t, "high", HighPriority.String())
	assert.Equal(t, "unknown", JobPriority(9).String())
}

func TestJobTab(t *testing.T) {
	assert.Equal(t, "asset-4", NewJob(TypeSnapshot, map[string]any{"tab": "asset-4"}, LowPriority).Tab())
	assert.Equal(t, "all", NewJob(TypeSnapshot, nil, LowPriority).Tab())
	assert.Equal(t, "all", NewJob(TypeSnapshot, map[string]any{"tab": 3}, LowPriority).Tab())
}

func TestJobCanRetry(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		expected   bool
	}{
		{name: "no retries yet", retryCount: 0, maxRetries: 3, expected: true},
		{name: "one left", retryCount: 2, maxRetries: 3, expected: true},
		{name: "exhausted", retryCount: 3, maxRetries: 3, expected: false},
		{name: "beyond max", retryCount: 5, maxRetries: 3, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{RetryCount: tt.retryCount, MaxRetries: tt.maxRetries}
			assert.Equal(t, tt.expected, j.CanRetry())
		})
	}
}

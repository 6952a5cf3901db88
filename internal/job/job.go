// Package job defines the background job model shared by the queue, the API
// and the worker. A job is a unit of deferred dashboard work, such as taking a
// snapshot of a selection's totals or mailing a report.
package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type (
	JobStatus   string
	JobPriority int
	Job         struct {
		ID          string         `json:"id"`
		Type        string         `json:"type"`
		Payload     map[string]any `json:"payload"`
		Priority    JobPriority    `json:"priority"`
		Status      JobStatus      `json:"status"`
		RetryCount  int            `json:"retry_count"`
		MaxRetries  int            `json:"max_retries"`
		CreatedAt   time.Time      `json:"created_at"`
		ScheduledAt time.Time      `json:"scheduled_at"`
		StartedAt   *time.Time     `json:"started_at,omitempty"`
		CompletedAt *time.Time     `json:"completed_at,omitempty"`
		Error       string         `json:"error,omitempty"`
	}
)

const (
	PendingStatus   JobStatus = "pending"
	RunningStatus   JobStatus = "running"
	CompletedStatus JobStatus = "completed"
	FailedStatus    JobStatus = "failed"
)

const (
	LowPriority JobPriority = iota
	MediumPriority
	HighPriority
)

const (
	TypeSnapshot     = "snapshot"
	TypeExportSeries = "export_series"
	TypeSendReport   = "send_report"
)

func NewJob(jobType string, payload map[string]any, priority JobPriority) *Job {
	return &Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Payload:     payload,
		Priority:    priority,
		Status:      PendingStatus,
		MaxRetries:  3,
		RetryCount:  0,
		CreatedAt:   time.Now(),
		ScheduledAt: time.Now(),
	}
}

func (p JobPriority) String() string {
	switch p {
	case LowPriority:
		return "low"
	case MediumPriority:
		return "medium"
	case HighPriority:
		return "high"
	default:
		return "unknown"
	}
}

// Tab returns the selection key carried in the payload, or "all".
func (j *Job) Tab() string {
	if tab, ok := j.Payload["tab"].(string); ok && tab != "" {
		return tab
	}
	return "all"
}

func (j *Job) ToJSON() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

func JobFromJSON(data string) (*Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, err
	}

	return &j, nil
}

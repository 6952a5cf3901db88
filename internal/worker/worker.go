// Package worker provides the background job processor that consumes and executes jobs from the queue.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nadmax/bidboard/internal/job"
	"github.com/nadmax/bidboard/internal/metrics"
	"github.com/nadmax/bidboard/internal/queue"
)

const (
	defaultPollInterval = time.Second
	defaultJobTimeout   = 2 * time.Minute
	retryBackoffStep    = 10 * time.Second
)

type JobHandler func(ctx context.Context, j *job.Job) error

type Worker struct {
	id           string
	queue        *queue.Queue
	handlers     map[string]JobHandler
	stop         chan bool
	pollInterval time.Duration
	jobTimeout   time.Duration
}

func NewWorker(id string, q *queue.Queue) *Worker {
	return &Worker{
		id:           id,
		queue:        q,
		handlers:     make(map[string]JobHandler),
		stop:         make(chan bool),
		pollInterval: defaultPollInterval,
		jobTimeout:   defaultJobTimeout,
	}
}

func (w *Worker) RegisterHandler(jobType string, handler JobHandler) {
	w.handlers[jobType] = handler
}

func (w *Worker) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

func (w *Worker) SetJobTimeout(d time.Duration) {
	w.jobTimeout = d
}

func (w *Worker) Start() {
	log.Printf("Worker %s started", w.id)

	for {
		select {
		case <-w.stop:
			log.Printf("Worker %s stopped", w.id)
			return
		default:
			j, err := w.queue.Dequeue()
			if err != nil {
				log.Printf("Worker %s failed to dequeue: %v", w.id, err)
			}
			if err != nil || j == nil {
				time.Sleep(w.pollInterval)
				continue
			}

			w.processJob(j)
		}
	}
}

func (w *Worker) processJob(j *job.Job) {
	log.Printf("Worker %s processing job %s (type: %s, tab: %s)", w.id, j.ID, j.Type, j.Tab())

	now := time.Now()
	j.Status = job.RunningStatus
	j.StartedAt = &now
	if err := w.queue.UpdateJob(j); err != nil {
		log.Printf("Failed to update job status to running: %v", err)
	}

	handler, exists := w.handlers[j.Type]
	if !exists {
		j.Status = job.FailedStatus
		j.Error = fmt.Sprintf("no handler for job type: %s", j.Type)
		if err := w.queue.UpdateJob(j); err != nil {
			log.Printf("Failed to update job: %v", err)
		}
		metrics.RecordJobFailed(j.Type, 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	err := handler(ctx, j)
	cancel()

	completedAt := time.Now()
	duration := completedAt.Sub(now)
	j.CompletedAt = &completedAt

	if err != nil {
		j.RetryCount++
		j.Error = err.Error()
		if j.CanRetry() {
			j.Status = job.PendingStatus
			j.ScheduledAt = time.Now().Add(time.Duration(j.RetryCount) * retryBackoffStep)
			if err := w.queue.Enqueue(j); err != nil {
				log.Printf("Failed to re-enqueue job: %v", err)
			}
			metrics.RecordJobRetried(j.Type)
			log.Printf("Job %s failed, will retry (%d/%d): %v", j.ID, j.RetryCount, j.MaxRetries, err)
		} else {
			j.Status = job.FailedStatus
			if err := w.queue.UpdateJob(j); err != nil {
				log.Printf("Failed to update failed job: %v", err)
			}
			metrics.RecordJobFailed(j.Type, duration)
			log.Printf("Job %s failed permanently: %v", j.ID, err)
		}
		return
	}

	j.Status = job.CompletedStatus
	j.Error = ""
	if err := w.queue.UpdateJob(j); err != nil {
		log.Printf("Failed to update completed job: %v", err)
	}
	metrics.RecordJobCompleted(j.Type, duration)
	log.Printf("Job %s completed successfully", j.ID)
}

func (w *Worker) Stop() {
	w.stop <- true
}

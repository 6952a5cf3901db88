package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/job"
	"github.com/nadmax/bidboard/internal/metrics"
	"github.com/nadmax/bidboard/internal/queue"
)

type tabLister interface {
	Tabs(ctx context.Context) ([]board.Tab, error)
}

// runSnapshotScheduler enqueues a snapshot of every tab once at start and
// then every interval until ctx is done.
func runSnapshotScheduler(ctx context.Context, tabs tabLister, q *queue.Queue, interval time.Duration) {
	log.Printf("Snapshot scheduler running every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := enqueueSnapshots(ctx, tabs, q); err != nil {
			log.Printf("Failed to schedule snapshots: %v", err)
		} else {
			log.Printf("Scheduled %d snapshot jobs", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func enqueueSnapshots(ctx context.Context, tabs tabLister, q *queue.Queue) (int, error) {
	list, err := tabs.Tabs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tabs: %w", err)
	}

	for i, tab := range list {
		j := job.NewJob(job.TypeSnapshot, map[string]any{"tab": tab.Key}, job.LowPriority)
		if err := q.Enqueue(j); err != nil {
			return i, fmt.Errorf("failed to enqueue snapshot of %s: %w", tab.Key, err)
		}
		metrics.RecordJobEnqueued(j.Type, j.Priority)
	}

	return len(list), nil
}

package main

import (
	"context"
	"log"
	"time"

	"github.com/nadmax/bidboard/internal/metrics"
	"github.com/nadmax/bidboard/internal/queue"
)

func startMetricsCollector(ctx context.Context, q *queue.Queue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateQueueMetrics(q)
		}
	}
}

func updateQueueMetrics(q *queue.Queue) {
	depth, err := q.Depth()
	if err != nil {
		log.Printf("Failed to get queue depth for metrics: %v", err)
		return
	}

	metrics.UpdateQueueDepth(depth)
}

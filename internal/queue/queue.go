// Package queue stores background jobs in Redis. Job bodies live in a hash and
// their ids in a sorted set ordered by scheduled time, then priority.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nadmax/bidboard/internal/job"
	"github.com/redis/go-redis/v9"
)

const (
	jobsKey  = "bidboard:jobs"
	queueKey = "bidboard:job_queue"
)

var ErrJobNotFound = errors.New("job not found")

type Queue struct {
	client *redis.Client
	ctx    context.Context
}

func NewQueue(redisAddr string) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Queue{
		client: client,
		ctx:    ctx,
	}, nil
}

func (q *Queue) Enqueue(j *job.Job) error {
	jobJSON, err := j.ToJSON()
	if err != nil {
		return err
	}

	if err := q.client.HSet(q.ctx, jobsKey, j.ID, jobJSON).Err(); err != nil {
		return err
	}

	return q.client.ZAdd(q.ctx, queueKey, redis.Z{
		Score:  score(j.ScheduledAt, j.Priority),
		Member: j.ID,
	}).Err()
}

// Dequeue pops the next due job. It returns nil, nil when nothing is due.
func (q *Queue) Dequeue() (*job.Job, error) {
	maxScore := score(time.Now(), job.LowPriority)

	results, err := q.client.ZRangeByScore(q.ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", maxScore),
		Count: 1,
	}).Result()

	if err != nil || len(results) == 0 {
		return nil, err
	}

	jobID := results[0]

	removed, err := q.client.ZRem(q.ctx, queueKey, jobID).Result()
	if err != nil {
		return nil, err
	}
	// another worker claimed it first
	if removed == 0 {
		return nil, nil
	}

	return q.GetJob(jobID)
}

func (q *Queue) UpdateJob(j *job.Job) error {
	jobJSON, err := j.ToJSON()
	if err != nil {
		return err
	}
	return q.client.HSet(q.ctx, jobsKey, j.ID, jobJSON).Err()
}

func (q *Queue) GetJob(jobID string) (*job.Job, error) {
	jobJSON, err := q.client.HGet(q.ctx, jobsKey, jobID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job.JobFromJSON(jobJSON)
}

func (q *Queue) GetAllJobs() ([]*job.Job, error) {
	jobMap, err := q.client.HGetAll(q.ctx, jobsKey).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*job.Job, 0, len(jobMap))
	for _, jobJSON := range jobMap {
		j, err := job.JobFromJSON(jobJSON)
		if err != nil {
			continue
		}
		jobs = append(jobs, j)
	}

	return jobs, nil
}

// Depth is the number of jobs waiting in the queue, due or not.
func (q *Queue) Depth() (int, error) {
	n, err := q.client.ZCard(q.ctx, queueKey).Result()
	return int(n), err
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// score orders by scheduled second, then by priority with high first.
func score(at time.Time, priority job.JobPriority) float64 {
	inverted := float64(job.HighPriority - priority)
	return float64(at.Unix())*1000 + inverted
}

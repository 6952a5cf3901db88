// Package cache keeps recently fetched ShotGrid results in Redis so repeated
// tab switches do not hit the remote API every time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/metrics"
	"github.com/nadmax/bidboard/internal/task"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bidboard"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(redisAddr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    ttl,
	}, nil
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Invalidate drops every cached entry of a project and reports how many keys
// were removed.
func (c *Cache) Invalidate(ctx context.Context, projectID int) (int, error) {
	pattern := fmt.Sprintf("%s:%d:*", keyPrefix, projectID)

	var removed int
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}

	return removed, iter.Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}

	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Source is a board.Source that answers from Redis when it can and falls back
// to the wrapped source otherwise. Redis failures never fail a lookup.
type Source struct {
	inner board.Source
	cache *Cache
}

func Wrap(inner board.Source, c *Cache) *Source {
	return &Source{inner: inner, cache: c}
}

func (s *Source) ProjectTasks(ctx context.Context, projectID int) ([]task.Record, error) {
	return cached(ctx, s.cache, "tasks", key(projectID, "tasks", "all"), func() ([]task.Record, error) {
		return s.inner.ProjectTasks(ctx, projectID)
	})
}

func (s *Source) ShotTasks(ctx context.Context, projectID, shotID int) ([]task.Record, error) {
	return cached(ctx, s.cache, "tasks", key(projectID, "tasks", "shot", shotID), func() ([]task.Record, error) {
		return s.inner.ShotTasks(ctx, projectID, shotID)
	})
}

func (s *Source) AssetTasks(ctx context.Context, projectID, assetID int) ([]task.Record, error) {
	return cached(ctx, s.cache, "tasks", key(projectID, "tasks", "asset", assetID), func() ([]task.Record, error) {
		return s.inner.AssetTasks(ctx, projectID, assetID)
	})
}

func (s *Source) EpisodeShots(ctx context.Context, projectID, episodeID int) ([]task.Entity, error) {
	return cached(ctx, s.cache, "shots", key(projectID, "shots", "episode", episodeID), func() ([]task.Entity, error) {
		return s.inner.EpisodeShots(ctx, projectID, episodeID)
	})
}

func (s *Source) Episodes(ctx context.Context, projectID int) ([]task.Entity, error) {
	return cached(ctx, s.cache, "episodes", key(projectID, "episodes"), func() ([]task.Entity, error) {
		return s.inner.Episodes(ctx, projectID)
	})
}

func (s *Source) Assets(ctx context.Context, projectID int) ([]task.Entity, error) {
	return cached(ctx, s.cache, "assets", key(projectID, "assets"), func() ([]task.Entity, error) {
		return s.inner.Assets(ctx, projectID)
	})
}

func cached[T any](ctx context.Context, c *Cache, kind, k string, load func() (T, error)) (T, error) {
	var value T

	hit, err := c.get(ctx, k, &value)
	switch {
	case err != nil:
		metrics.RecordCacheError(kind)
		log.Printf("cache read failed for %s: %v", k, err)
	case hit:
		metrics.RecordCacheHit(kind)
		return value, nil
	default:
		metrics.RecordCacheMiss(kind)
	}

	value, err = load()
	if err != nil {
		return value, err
	}

	if err := c.set(ctx, k, value); err != nil {
		metrics.RecordCacheError(kind)
		log.Printf("cache write failed for %s: %v", k, err)
	}

	return value, nil
}

func key(projectID int, parts ...any) string {
	k := fmt.Sprintf("%s:%d", keyPrefix, projectID)
	for _, p := range parts {
		k += fmt.Sprintf(":%v", p)
	}
	return k
}

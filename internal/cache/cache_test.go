package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nadmax/bidboard/internal/board/boardtest"
	"github.com/nadmax/bidboard/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = 3711

func setupTestCache(t *testing.T) (*Source, *boardtest.Source, *Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	c, err := New(mr.Addr(), time.Minute)
	require.NoError(t, err)

	inner := boardtest.NewSource(testProject)
	return Wrap(inner, c), inner, c, mr
}

func TestNew_InvalidAddress(t *testing.T) {
	_, err := New("invalid:99999", time.Minute)
	assert.Error(t, err)
}

func TestProjectTasks_MissThenHit(t *testing.T) {
	src, inner, c, mr := setupTestCache(t)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	inner.Tasks = []task.Record{
		{ID: 1, Name: "comp", EstimatedMinutes: task.Minutes(480), Status: "fin"},
		{ID: 2, Name: "anim"},
	}
	ctx := context.Background()

	first, err := src.ProjectTasks(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.CallCount())
	assert.True(t, mr.Exists("bidboard:3711:tasks:all"))

	second, err := src.ProjectTasks(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.CallCount(), "second lookup should be served from Redis")
	assert.Equal(t, first, second)
	require.NotNil(t, second[0].EstimatedMinutes)
	assert.Equal(t, 480.0, *second[0].EstimatedMinutes)
	assert.Nil(t, second[1].EstimatedMinutes)
}

func TestEntries_Expire(t *testing.T) {
	src, inner, c, mr := setupTestCache(t)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	inner.EpisodeList = []task.Entity{{ID: 1, Code: "EP01"}}
	ctx := context.Background()

	_, err := src.Episodes(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("bidboard:3711:episodes"))

	mr.FastForward(2 * time.Minute)

	_, err = src.Episodes(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.CallCount())
}

func TestKeysAreScopedByEntity(t *testing.T) {
	src, inner, c, mr := setupTestCache(t)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	inner.TasksByShot[10] = []task.Record{{ID: 1, Name: "sh010_comp"}}
	inner.TasksByShot[20] = []task.Record{{ID: 2, Name: "sh020_comp"}}
	inner.TasksByAsset[10] = []task.Record{{ID: 3, Name: "hero_model"}}
	inner.ShotsByEpisode[5] = []task.Entity{{ID: 10, Code: "sh010"}}
	inner.AssetList = []task.Entity{{ID: 10, Code: "hero"}}
	ctx := context.Background()

	shot10, err := src.ShotTasks(ctx, testProject, 10)
	require.NoError(t, err)
	shot20, err := src.ShotTasks(ctx, testProject, 20)
	require.NoError(t, err)
	asset10, err := src.AssetTasks(ctx, testProject, 10)
	require.NoError(t, err)
	shots, err := src.EpisodeShots(ctx, testProject, 5)
	require.NoError(t, err)
	assets, err := src.Assets(ctx, testProject)
	require.NoError(t, err)

	assert.Equal(t, "sh010_comp", shot10[0].Name)
	assert.Equal(t, "sh020_comp", shot20[0].Name)
	assert.Equal(t, "hero_model", asset10[0].Name)
	assert.Equal(t, "sh010", shots[0].Code)
	assert.Equal(t, "hero", assets[0].Code)

	for _, k := range []string{
		"bidboard:3711:tasks:shot:10",
		"bidboard:3711:tasks:shot:20",
		"bidboard:3711:tasks:asset:10",
		"bidboard:3711:shots:episode:5",
		"bidboard:3711:assets",
	} {
		assert.True(t, mr.Exists(k), k)
	}
}

func TestLoadErrorIsNotCached(t *testing.T) {
	src, inner, c, mr := setupTestCache(t)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	inner.Err = errors.New("503 Service Unavailable")
	ctx := context.Background()

	_, err := src.ProjectTasks(ctx, testProject)
	assert.Error(t, err)
	assert.False(t, mr.Exists("bidboard:3711:tasks:all"))

	inner.Err = nil
	_, err = src.ProjectTasks(ctx, testProject)
	assert.NoError(t, err)
	assert.Equal(t, 2, inner.CallCount())
}

func TestCorruptEntryFallsThrough(t *testing.T) {
	src, inner, c, mr := setupTestCache(t)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	require.NoError(t, mr.Set("bidboard:3711:assets", "not json"))
	inner.AssetList = []task.Entity{{ID: 1, Code: "prop"}}

	assets, err := src.Assets(context.Background(), testProject)

	require.NoError(t, err)
	assert.Equal(t, []task.Entity{{ID: 1, Code: "prop"}}, assets)
	assert.Equal(t, 1, inner.CallCount())
}

func TestInvalidate(t *testing.T) {
	src, inner, c, mr := setupTestCache(t)
	defer mr.Close()
	defer func() { _ = c.Close() }()

	inner.EpisodeList = []task.Entity{{ID: 1, Code: "EP01"}}
	ctx := context.Background()

	_, err := src.ProjectTasks(ctx, testProject)
	require.NoError(t, err)
	_, err = src.Episodes(ctx, testProject)
	require.NoError(t, err)
	require.NoError(t, mr.Set("bidboard:42:episodes", "[]"))

	removed, err := c.Invalidate(ctx, testProject)

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.False(t, mr.Exists("bidboard:3711:tasks:all"))
	assert.True(t, mr.Exists("bidboard:42:episodes"), "other projects are untouched")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bidboard:1:episodes", key(1, "episodes"))
	assert.Equal(t, "bidboard:1:tasks:shot:9", key(1, "tasks", "shot", 9))
}

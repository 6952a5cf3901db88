package handlers

import (
	"testing"
	"time"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/board/boardtest"
	"github.com/nadmax/bidboard/internal/job"
	"github.com/nadmax/bidboard/internal/task"
)

const testProject = 3711

func setupTestBoard(t *testing.T) (*board.Board, *boardtest.Source) {
	t.Helper()

	src := boardtest.NewSource(testProject)
	src.TasksByAsset[4] = []task.Record{
		{Name: "B", EstimatedMinutes: task.Minutes(480), LoggedMinutes: task.Minutes(240), Status: task.StatusFinished},
		{Name: "A", EstimatedMinutes: nil, LoggedMinutes: task.Minutes(100), Status: "ip"},
		{Name: "C", EstimatedMinutes: task.Minutes(960), LoggedMinutes: nil, Status: "ip"},
	}

	return board.New(src, board.Options{ProjectID: testProject, Reference: board.DefaultReference()}), src
}

func newJob(jobType string, payload map[string]any) *job.Job {
	j := job.NewJob(jobType, payload, job.MediumPriority)
	j.CreatedAt = time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC)
	return j
}

package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/nadmax/bidboard/internal/job"
	"github.com/nadmax/bidboard/internal/metrics"
	"github.com/nadmax/bidboard/internal/repository"
)

type SnapshotHandler struct {
	viewer Viewer
	repo   repository.SnapshotRepository
}

func NewSnapshotHandler(v Viewer, repo repository.SnapshotRepository) *SnapshotHandler {
	return &SnapshotHandler{viewer: v, repo: repo}
}

// Handle stores the current totals of the job's tab.
func (h *SnapshotHandler) Handle(ctx context.Context, j *job.Job) error {
	view, err := viewOf(ctx, h.viewer, j.Tab())
	if err != nil {
		return err
	}

	s := &repository.Snapshot{
		ProjectID:     h.viewer.ProjectID(),
		Selection:     view.Tab,
		TaskCount:     view.Series.Len(),
		PlannedDays:   view.Series.TotalPlannedDays,
		LoggedDays:    view.Series.TotalLoggedDays,
		ReferenceDays: view.Reference.Days,
		CapturedAt:    view.GeneratedAt.UTC(),
	}

	if err := h.repo.SaveSnapshot(ctx, s); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	metrics.RecordSnapshotSaved()

	log.Printf("[Job %s] Snapshot %d saved for %s (%d tasks, %.2f planned, %.2f logged)",
		j.ID, s.ID, s.Selection, s.TaskCount, s.PlannedDays, s.LoggedDays)
	return nil
}

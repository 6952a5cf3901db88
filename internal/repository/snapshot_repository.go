package repository

import (
	"context"
)

type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	ListSnapshots(ctx context.Context, projectID int, selection string, limit int) ([]Snapshot, error)
	LatestSnapshots(ctx context.Context, projectID int) ([]Snapshot, error)
	Close() error
}

// Package repository provides PostgreSQL persistence for bid snapshots, the
// totals of one dashboard selection captured at a point in time.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

const DefaultListLimit = 50

type PostgresSnapshotRepository struct {
	db *sql.DB
}

type Snapshot struct {
	ID            int64     `json:"id"`
	ProjectID     int       `json:"project_id"`
	Selection     string    `json:"selection"`
	TaskCount     int       `json:"task_count"`
	PlannedDays   float64   `json:"planned_days"`
	LoggedDays    float64   `json:"logged_days"`
	ReferenceDays float64   `json:"reference_days"`
	CapturedAt    time.Time `json:"captured_at"`
}

const schema = `
	CREATE TABLE IF NOT EXISTS bid_snapshots (
		id             SERIAL PRIMARY KEY,
		project_id     INTEGER NOT NULL,
		selection      TEXT NOT NULL,
		task_count     INTEGER NOT NULL,
		planned_days   DOUBLE PRECISION NOT NULL,
		logged_days    DOUBLE PRECISION NOT NULL,
		reference_days DOUBLE PRECISION NOT NULL DEFAULT 0,
		captured_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_bid_snapshots_selection
		ON bid_snapshots (project_id, selection, captured_at DESC);
`

func NewPostgresSnapshotRepository(connectionString string) (*PostgresSnapshotRepository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresSnapshotRepository{db: db}, nil
}

// EnsureSchema creates the snapshot table and its index when missing.
func (r *PostgresSnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveSnapshot inserts s and fills in its generated id and capture time.
func (r *PostgresSnapshotRepository) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	query := `
		INSERT INTO bid_snapshots (
			project_id, selection, task_count,
			planned_days, logged_days, reference_days, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	if s.CapturedAt.IsZero() {
		s.CapturedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		s.ProjectID,
		s.Selection,
		s.TaskCount,
		s.PlannedDays,
		s.LoggedDays,
		s.ReferenceDays,
		s.CapturedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

func (r *PostgresSnapshotRepository) ListSnapshots(ctx context.Context, projectID int, selection string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT
			id, project_id, selection, task_count,
			planned_days, logged_days, reference_days, captured_at
		FROM bid_snapshots
		WHERE project_id = $1 AND selection = $2
		ORDER BY captured_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, projectID, selection, limit)
	if err != nil {
		return nil, err
	}

	return scanSnapshots(rows)
}

// LatestSnapshots returns the newest snapshot of every selection of a project.
func (r *PostgresSnapshotRepository) LatestSnapshots(ctx context.Context, projectID int) ([]Snapshot, error) {
	query := `
		SELECT DISTINCT ON (selection)
			id, project_id, selection, task_count,
			planned_days, logged_days, reference_days, captured_at
		FROM bid_snapshots
		WHERE project_id = $1
		ORDER BY selection, captured_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}

	return scanSnapshots(rows)
}

func (r *PostgresSnapshotRepository) Close() error {
	return r.db.Close()
}

func scanSnapshots(rows *sql.Rows) ([]Snapshot, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(
			&s.ID,
			&s.ProjectID,
			&s.Selection,
			&s.TaskCount,
			&s.PlannedDays,
			&s.LoggedDays,
			&s.ReferenceDays,
			&s.CapturedAt,
		); err != nil {
			return nil, err
		}

		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

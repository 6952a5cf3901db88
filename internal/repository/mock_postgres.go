package repository

import (
	"context"
	"slices"
	"sync"
	"time"
)

type MockPostgresRepository struct {
	mu                   sync.Mutex
	SaveSnapshotCalls    []Snapshot
	ListSnapshotsCalls   []ListSnapshotsCall
	LatestSnapshotsCalls []int
	Snapshots            []Snapshot
	SaveSnapshotError    error
	ListSnapshotsError   error
	Closed               bool
	nextID               int64
}

type ListSnapshotsCall struct {
	ProjectID int
	Selection string
	Limit     int
}

func NewMockPostgresRepository() *MockPostgresRepository {
	return &MockPostgresRepository{
		Snapshots: make([]Snapshot, 0),
	}
}

func (m *MockPostgresRepository) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveSnapshotCalls = append(m.SaveSnapshotCalls, *s)

	if m.SaveSnapshotError != nil {
		return m.SaveSnapshotError
	}

	m.nextID++
	s.ID = m.nextID
	if s.CapturedAt.IsZero() {
		s.CapturedAt = time.Now().UTC()
	}
	m.Snapshots = append(m.Snapshots, *s)
	return nil
}

func (m *MockPostgresRepository) ListSnapshots(ctx context.Context, projectID int, selection string, limit int) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListSnapshotsCalls = append(m.ListSnapshotsCalls, ListSnapshotsCall{
		ProjectID: projectID,
		Selection: selection,
		Limit:     limit,
	})

	if m.ListSnapshotsError != nil {
		return nil, m.ListSnapshotsError
	}

	result := make([]Snapshot, 0)
	for _, s := range m.newestFirst() {
		if s.ProjectID == projectID && s.Selection == selection {
			result = append(result, s)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (m *MockPostgresRepository) LatestSnapshots(ctx context.Context, projectID int) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LatestSnapshotsCalls = append(m.LatestSnapshotsCalls, projectID)

	if m.ListSnapshotsError != nil {
		return nil, m.ListSnapshotsError
	}

	seen := make(map[string]bool)
	result := make([]Snapshot, 0)
	for _, s := range m.newestFirst() {
		if s.ProjectID != projectID || seen[s.Selection] {
			continue
		}
		seen[s.Selection] = true
		result = append(result, s)
	}

	return result, nil
}

func (m *MockPostgresRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}

func (m *MockPostgresRepository) GetSaveSnapshotCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.SaveSnapshotCalls)
}

func (m *MockPostgresRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveSnapshotCalls = nil
	m.ListSnapshotsCalls = nil
	m.LatestSnapshotsCalls = nil
	m.Snapshots = make([]Snapshot, 0)
	m.SaveSnapshotError = nil
	m.ListSnapshotsError = nil
}

func (m *MockPostgresRepository) newestFirst() []Snapshot {
	sorted := slices.Clone(m.Snapshots)
	slices.SortStableFunc(sorted, func(a, b Snapshot) int {
		return b.CapturedAt.Compare(a.CapturedAt)
	})
	return sorted
}

// Package boardtest provides an in-memory board.Source for tests.
package boardtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nadmax/bidboard/internal/task"
)

type Source struct {
	mu             sync.Mutex
	ProjectID      int
	Tasks          []task.Record
	TasksByShot    map[int][]task.Record
	TasksByAsset   map[int][]task.Record
	ShotsByEpisode map[int][]task.Entity
	EpisodeList    []task.Entity
	AssetList      []task.Entity
	Err            error
	Calls          []string
}

func NewSource(projectID int) *Source {
	return &Source{
		ProjectID:      projectID,
		TasksByShot:    make(map[int][]task.Record),
		TasksByAsset:   make(map[int][]task.Record),
		ShotsByEpisode: make(map[int][]task.Entity),
	}
}

func (s *Source) record(call string, projectID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, call)

	if s.Err != nil {
		return s.Err
	}
	if projectID != s.ProjectID {
		return fmt.Errorf("unexpected project %d", projectID)
	}
	return nil
}

func (s *Source) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.Calls)
}

func (s *Source) ProjectTasks(ctx context.Context, projectID int) ([]task.Record, error) {
	if err := s.record("ProjectTasks", projectID); err != nil {
		return nil, err
	}
	return s.Tasks, nil
}

func (s *Source) ShotTasks(ctx context.Context, projectID, shotID int) ([]task.Record, error) {
	if err := s.record(fmt.Sprintf("ShotTasks:%d", shotID), projectID); err != nil {
		return nil, err
	}
	return s.TasksByShot[shotID], nil
}

func (s *Source) AssetTasks(ctx context.Context, projectID, assetID int) ([]task.Record, error) {
	if err := s.record(fmt.Sprintf("AssetTasks:%d", assetID), projectID); err != nil {
		return nil, err
	}
	return s.TasksByAsset[assetID], nil
}

func (s *Source) EpisodeShots(ctx context.Context, projectID, episodeID int) ([]task.Entity, error) {
	if err := s.record(fmt.Sprintf("EpisodeShots:%d", episodeID), projectID); err != nil {
		return nil, err
	}
	return s.ShotsByEpisode[episodeID], nil
}

func (s *Source) Episodes(ctx context.Context, projectID int) ([]task.Entity, error) {
	if err := s.record("Episodes", projectID); err != nil {
		return nil, err
	}
	return s.EpisodeList, nil
}

func (s *Source) Assets(ctx context.Context, projectID int) ([]task.Entity, error) {
	if err := s.record("Assets", projectID); err != nil {
		return nil, err
	}
	return s.AssetList, nil
}

// Package board resolves a dashboard selection into task records and turns
// them into the series a tab displays.
package board

import (
	"context"
	"fmt"
	"time"

	"github.com/nadmax/bidboard/internal/metrics"
	"github.com/nadmax/bidboard/internal/task"
)

// Source is the read side of the production-tracking service.
type Source interface {
	ProjectTasks(ctx context.Context, projectID int) ([]task.Record, error)
	ShotTasks(ctx context.Context, projectID, shotID int) ([]task.Record, error)
	AssetTasks(ctx context.Context, projectID, assetID int) ([]task.Record, error)
	EpisodeShots(ctx context.Context, projectID, episodeID int) ([]task.Entity, error)
	Episodes(ctx context.Context, projectID int) ([]task.Entity, error)
	Assets(ctx context.Context, projectID int) ([]task.Entity, error)
}

type Options struct {
	ProjectID int
	Reference Reference
}

type Board struct {
	source    Source
	projectID int
	reference Reference
	now       func() time.Time
}

// View is everything one tab renders.
type View struct {
	Selection   task.Selection `json:"selection"`
	Tab         string         `json:"tab"`
	Series      task.Series    `json:"series"`
	Reference   Reference      `json:"reference"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type Tab struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

const AllTasksLabel = "All episodes"

func New(source Source, opts Options) *Board {
	return &Board{
		source:    source,
		projectID: opts.ProjectID,
		reference: opts.Reference,
		now:       time.Now,
	}
}

func (b *Board) ProjectID() int {
	return b.projectID
}

func (b *Board) Reference() Reference {
	return b.reference
}

// Records fetches the unshaped task records behind a selection. Tasks of an
// episode are gathered shot by shot, in the order the shots were returned.
func (b *Board) Records(ctx context.Context, sel task.Selection) ([]task.Record, error) {
	switch sel.Kind {
	case task.KindAll, "":
		return b.source.ProjectTasks(ctx, b.projectID)
	case task.KindEpisode:
		shots, err := b.source.EpisodeShots(ctx, b.projectID, sel.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list shots of episode %d: %w", sel.ID, err)
		}

		var records []task.Record
		for _, shot := range shots {
			shotTasks, err := b.source.ShotTasks(ctx, b.projectID, shot.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch tasks of shot %s: %w", shot.Code, err)
			}
			records = append(records, shotTasks...)
		}
		return records, nil
	case task.KindAsset:
		return b.source.AssetTasks(ctx, b.projectID, sel.ID)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", task.ErrInvalidSelection, sel.Kind)
	}
}

func (b *Board) View(ctx context.Context, sel task.Selection) (*View, error) {
	start := time.Now()
	records, err := b.Records(ctx, sel)
	metrics.RecordFetch(string(kindOf(sel)), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	series := task.Transform(records)
	metrics.RecordSeries(sel.Key(), series.Len(), series.TotalPlannedDays, series.TotalLoggedDays)

	return &View{
		Selection:   sel,
		Tab:         sel.Key(),
		Series:      series,
		Reference:   b.reference,
		GeneratedAt: b.now(),
	}, nil
}

// Tabs lists the selectable tabs: all tasks first, then each episode, then
// each asset.
func (b *Board) Tabs(ctx context.Context) ([]Tab, error) {
	episodes, err := b.source.Episodes(ctx, b.projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	assets, err := b.source.Assets(ctx, b.projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	tabs := make([]Tab, 0, 1+len(episodes)+len(assets))
	tabs = append(tabs, Tab{Key: task.AllTasks().Key(), Label: AllTasksLabel})
	for _, ep := range episodes {
		tabs = append(tabs, Tab{Key: task.ByEpisode(ep.ID).Key(), Label: ep.Code})
	}
	for _, as := range assets {
		tabs = append(tabs, Tab{Key: task.ByAsset(as.ID).Key(), Label: as.Code})
	}

	return tabs, nil
}

func kindOf(sel task.Selection) task.SelectionKind {
	if sel.Kind == "" {
		return task.KindAll
	}
	return sel.Kind
}

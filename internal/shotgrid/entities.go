package shotgrid

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nadmax/bidboard/internal/task"
)

var (
	taskFields   = []string{"content", "est_in_mins", "time_logs_sum", "sg_status_list"}
	entityFields = []string{"code"}
)

type taskAttributes struct {
	Content     string   `json:"content"`
	EstInMins   *float64 `json:"est_in_mins"`
	TimeLogsSum *float64 `json:"time_logs_sum"`
	Status      string   `json:"sg_status_list"`
}

type entityAttributes struct {
	Code string `json:"code"`
}

func (c *Client) ProjectTasks(ctx context.Context, projectID int) ([]task.Record, error) {
	return c.findTasks(ctx, InProject(projectID))
}

func (c *Client) ShotTasks(ctx context.Context, projectID, shotID int) ([]task.Record, error) {
	return c.findTasks(ctx, InProject(projectID), Is("entity", Link{Type: "Shot", ID: shotID}))
}

func (c *Client) AssetTasks(ctx context.Context, projectID, assetID int) ([]task.Record, error) {
	return c.findTasks(ctx, InProject(projectID), Is("entity", Link{Type: "Asset", ID: assetID}))
}

func (c *Client) EpisodeShots(ctx context.Context, projectID, episodeID int) ([]task.Entity, error) {
	return c.findEntities(ctx, "Shot", InProject(projectID), Is("sg_episode", Link{Type: "Episode", ID: episodeID}))
}

func (c *Client) Episodes(ctx context.Context, projectID int) ([]task.Entity, error) {
	return c.findEntities(ctx, "Episode", InProject(projectID))
}

func (c *Client) Assets(ctx context.Context, projectID int) ([]task.Entity, error) {
	return c.findEntities(ctx, "Asset", InProject(projectID))
}

func (c *Client) findTasks(ctx context.Context, filters ...Filter) ([]task.Record, error) {
	rows, err := c.Find(ctx, "Task", filters, taskFields)
	if err != nil {
		return nil, err
	}

	records := make([]task.Record, 0, len(rows))
	for _, row := range rows {
		var attrs taskAttributes
		if len(row.Attributes) > 0 {
			if err := json.Unmarshal(row.Attributes, &attrs); err != nil {
				return nil, fmt.Errorf("failed to decode task %d: %w", row.ID, err)
			}
		}

		records = append(records, task.Record{
			ID:               row.ID,
			Name:             attrs.Content,
			EstimatedMinutes: attrs.EstInMins,
			LoggedMinutes:    attrs.TimeLogsSum,
			Status:           attrs.Status,
		})
	}

	return records, nil
}

func (c *Client) findEntities(ctx context.Context, entityType string, filters ...Filter) ([]task.Entity, error) {
	rows, err := c.Find(ctx, entityType, filters, entityFields)
	if err != nil {
		return nil, err
	}

	entities := make([]task.Entity, 0, len(rows))
	for _, row := range rows {
		var attrs entityAttributes
		if len(row.Attributes) > 0 {
			if err := json.Unmarshal(row.Attributes, &attrs); err != nil {
				return nil, fmt.Errorf("failed to decode %s %d: %w", entityType, row.ID, err)
			}
		}

		entities = append(entities, task.Entity{ID: row.ID, Code: attrs.Code})
	}

	return entities, nil
}

// Package handlers provides job handlers for the worker.
// Each handler implements the work behind one job type and can be registered
// with the worker to process jobs from the queue.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/task"
)

// Viewer computes the dashboard view of a selection. *board.Board satisfies it.
type Viewer interface {
	ProjectID() int
	View(ctx context.Context, sel task.Selection) (*board.View, error)
}

func decodePayload(payload map[string]any, dst any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dst)
}

func viewOf(ctx context.Context, v Viewer, tab string) (*board.View, error) {
	sel, err := task.ParseSelection(tab)
	if err != nil {
		return nil, fmt.Errorf("invalid tab %q: %w", tab, err)
	}

	view, err := v.View(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to compute view of %s: %w", sel.Key(), err)
	}

	return view, nil
}

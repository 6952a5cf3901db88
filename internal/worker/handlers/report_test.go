package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nadmax/bidboard/internal/job"
	"github.com/nadmax/bidboard/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportPayload(t *testing.T) {
	tests := []struct {
		name        string
		payload     map[string]any
		expected    *ExportPayload
		expectError bool
	}{
		{
			name: "valid payload with all fields",
			payload: map[string]any{
				"tab":         "episode-12",
				"format":      "json",
				"output_path": "/tmp/exports",
				"schedule_in": 5,
			},
			expected: &ExportPayload{
				Tab:        "episode-12",
				Format:     "json",
				OutputPath: "/tmp/exports",
				ScheduleIn: 5,
			},
		},
		{
			name:    "empty payload uses defaults",
			payload: map[string]any{},
			expected: &ExportPayload{
				Tab:    "all",
				Format: "csv",
			},
		},
		{
			name:        "unsupported format",
			payload:     map[string]any{"format": "xlsx"},
			expectError: true,
		},
		{
			name:        "wrong field type",
			payload:     map[string]any{"schedule_in": "soon"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseExportPayload(tt.payload)

			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSeriesTable(t *testing.T) {
	b, _ := setupTestBoard(t)
	view, err := viewOf(context.Background(), b, "asset-4")
	require.NoError(t, err)

	table := seriesTable(view)

	assert.Equal(t, []string{"Task", "Planned Days", "Logged Days"}, table.Header)
	assert.Equal(t, [][]string{
		{"B ⚫", "1.00", "0.50"},
		{"C", "2.00", "0.00"},
	}, table.Rows)
	assert.Equal(t, []string{"Total", "3.00", "0.50"}, table.Totals)
}

func TestSeriesExporter_CSV(t *testing.T) {
	b, _ := setupTestBoard(t)
	dir := t.TempDir()
	e := NewSeriesExporter(b, dir)
	e.now = func() time.Time { return time.Date(2025, 3, 13, 9, 30, 0, 0, time.UTC) }

	err := e.Handle(context.Background(), newJob(job.TypeExportSeries, map[string]any{
		"tab":         "asset-4",
		"output_path": "weekly",
	}))
	require.NoError(t, err)

	file, err := os.Open(filepath.Join(dir, "weekly", "bidboard_asset-4_20250313_093000.csv"))
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, []string{"Total", "3.00", "0.50"}, records[3])
}

func TestSeriesExporter_JSON(t *testing.T) {
	b, _ := setupTestBoard(t)
	dir := t.TempDir()
	e := NewSeriesExporter(b, dir)
	e.now = func() time.Time { return time.Date(2025, 3, 13, 9, 30, 0, 0, time.UTC) }

	err := e.Handle(context.Background(), newJob(job.TypeExportSeries, map[string]any{
		"tab":    "asset-4",
		"format": "json",
	}))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "bidboard_asset-4_20250313_093000.json"))
	require.NoError(t, err)

	var result struct {
		GeneratedAt string              `json:"generated_at"`
		Data        []map[string]string `json:"data"`
		Totals      map[string]string   `json:"totals"`
		TotalRows   int                 `json:"total_rows"`
	}
	require.NoError(t, json.Unmarshal(content, &result))

	assert.Equal(t, "2025-03-13T09:30:00Z", result.GeneratedAt)
	assert.Equal(t, 2, result.TotalRows)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "B ⚫", result.Data[0]["Task"])
	assert.Equal(t, "2.00", result.Data[1]["Planned Days"])
	assert.Equal(t, map[string]string{"Planned Days": "3.00", "Logged Days": "0.50"}, result.Totals)
}

func TestSeriesExporter_JSONTaskNamedTotal(t *testing.T) {
	b, src := setupTestBoard(t)
	src.TasksByAsset[4] = []task.Record{
		{Name: "Total", EstimatedMinutes: task.Minutes(480)},
	}
	dir := t.TempDir()
	e := NewSeriesExporter(b, dir)
	e.now = func() time.Time { return time.Date(2025, 3, 13, 9, 30, 0, 0, time.UTC) }

	err := e.Handle(context.Background(), newJob(job.TypeExportSeries, map[string]any{
		"tab":    "asset-4",
		"format": "json",
	}))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "bidboard_asset-4_20250313_093000.json"))
	require.NoError(t, err)

	var result struct {
		Data   []map[string]string `json:"data"`
		Totals map[string]string   `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(content, &result))

	require.Len(t, result.Data, 1)
	assert.Equal(t, "Total", result.Data[0]["Task"])
	assert.NotContains(t, result.Totals, "Task")
}

func TestSeriesExporter_OutputPathConfinedToRoot(t *testing.T) {
	b, _ := setupTestBoard(t)
	root := filepath.Join(t.TempDir(), "exports")
	e := NewSeriesExporter(b, root)

	for _, path := range []string{"../escape", "/etc", "weekly/../../escape"} {
		err := e.Handle(context.Background(), newJob(job.TypeExportSeries, map[string]any{
			"tab":         "asset-4",
			"output_path": path,
		}))

		assert.ErrorIs(t, err, ErrOutsideExportDir, path)
	}

	_, statErr := os.Stat(filepath.Join(filepath.Dir(root), "escape"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestOutputDir(t *testing.T) {
	root := t.TempDir()
	e := NewSeriesExporter(nil, root)

	dir, err := e.outputDir("")
	require.NoError(t, err)
	assert.Equal(t, root, dir)

	dir, err = e.outputDir("a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b"), dir)

	dir, err = e.outputDir(filepath.Join(root, "abs"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "abs"), dir)

	_, err = e.outputDir(root + "-sibling")
	assert.ErrorIs(t, err, ErrOutsideExportDir)
}

func TestSeriesExporter_CancelledDuringDelay(t *testing.T) {
	b, src := setupTestBoard(t)
	e := NewSeriesExporter(b, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Handle(ctx, newJob(job.TypeExportSeries, map[string]any{
		"schedule_in": 60,
	}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.Calls)
}

func TestSeriesExporter_InvalidPayload(t *testing.T) {
	b, _ := setupTestBoard(t)
	e := NewSeriesExporter(b, t.TempDir())

	err := e.Handle(context.Background(), newJob(job.TypeExportSeries, map[string]any{"format": "pdf"}))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid payload")
}

func TestSaveAsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")

	table := exportTable{
		Header: []string{"Task", "Planned Days", "Logged Days"},
		Rows:   [][]string{{"comp", "1.00", "0.25"}},
		Totals: []string{"Total", "1.00", "0.25"},
	}

	err := saveAsCSV(path, table)
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Task", "Planned Days", "Logged Days"},
		{"comp", "1.00", "0.25"},
		{"Total", "1.00", "0.25"},
	}, records)
}

func TestSaveAsJSON_InsufficientData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.json")

	err := saveAsJSON(path, exportTable{}, time.Now())

	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/job"
)

type ExportPayload struct {
	Tab        string `json:"tab"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ScheduleIn int    `json:"schedule_in"`
}

const DefaultExportDir = "./exports"

var ErrOutsideExportDir = errors.New("output path is outside the export directory")

type SeriesExporter struct {
	viewer Viewer
	root   string
	now    func() time.Time
}

// NewSeriesExporter writes exports under root. A job's output_path is
// resolved against root and may not leave it.
func NewSeriesExporter(v Viewer, root string) *SeriesExporter {
	if root == "" {
		root = DefaultExportDir
	}
	return &SeriesExporter{viewer: v, root: root, now: time.Now}
}

// exportTable is the series laid out for export. Totals are not part of Rows.
type exportTable struct {
	Header []string
	Rows   [][]string
	Totals []string
}

// Handle writes the series table of the job's tab to a CSV or JSON file.
func (e *SeriesExporter) Handle(ctx context.Context, j *job.Job) error {
	payload, err := parseExportPayload(j.Payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	if payload.ScheduleIn > 0 {
		log.Printf("[Job %s] Delaying export by %d seconds", j.ID, payload.ScheduleIn)

		select {
		case <-time.After(time.Duration(payload.ScheduleIn) * time.Second):
		case <-ctx.Done():
			log.Printf("[Job %s] Job cancelled during delay", j.ID)
			return ctx.Err()
		}
	}

	view, err := viewOf(ctx, e.viewer, payload.Tab)
	if err != nil {
		return err
	}

	outputFile, err := e.saveExport(payload, seriesTable(view))
	if err != nil {
		return fmt.Errorf("failed to save export: %w", err)
	}

	log.Printf("[Job %s] Series exported: %s (%d tasks)", j.ID, outputFile, view.Series.Len())
	return nil
}

func parseExportPayload(payload map[string]any) (*ExportPayload, error) {
	var ep ExportPayload
	if err := decodePayload(payload, &ep); err != nil {
		return nil, err
	}

	if ep.Tab == "" {
		ep.Tab = "all"
	}
	if ep.Format == "" {
		ep.Format = "csv"
	}
	if ep.Format != "csv" && ep.Format != "json" {
		return nil, fmt.Errorf("unsupported format: %s", ep.Format)
	}

	return &ep, nil
}

func seriesTable(view *board.View) exportTable {
	s := view.Series

	rows := make([][]string, 0, s.Len())
	for i, name := range s.Names {
		rows = append(rows, []string{name, formatDays(s.PlannedDays[i]), formatDays(s.LoggedDays[i])})
	}

	return exportTable{
		Header: []string{"Task", "Planned Days", "Logged Days"},
		Rows:   rows,
		Totals: []string{"Total", formatDays(s.TotalPlannedDays), formatDays(s.TotalLoggedDays)},
	}
}

func formatDays(days float64) string {
	return strconv.FormatFloat(days, 'f', 2, 64)
}

// outputDir resolves a requested output path against the export root.
func (e *SeriesExporter) outputDir(requested string) (string, error) {
	root, err := filepath.Abs(e.root)
	if err != nil {
		return "", err
	}

	dir := requested
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideExportDir, requested)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideExportDir, requested)
	}

	return dir, nil
}

func (e *SeriesExporter) saveExport(payload *ExportPayload, table exportTable) (string, error) {
	dir, err := e.outputDir(payload.OutputPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	timestamp := e.now().Format("20060102_150405")
	filename := fmt.Sprintf("bidboard_%s_%s.%s", strings.ReplaceAll(payload.Tab, "/", "_"), timestamp, payload.Format)
	fullPath := filepath.Join(dir, filename)

	switch payload.Format {
	case "csv":
		return fullPath, saveAsCSV(fullPath, table)
	case "json":
		return fullPath, saveAsJSON(fullPath, table, e.now())
	default:
		return "", fmt.Errorf("unsupported format: %s", payload.Format)
	}
}

// saveAsCSV writes the header, the task rows and a closing totals row.
func saveAsCSV(path string, table exportTable) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if fileErr := file.Close(); fileErr != nil {
			log.Printf("failed to close file: %v", fileErr)
		}
	}()

	data := append([][]string{table.Header}, table.Rows...)
	data = append(data, table.Totals)

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(data); err != nil {
		return err
	}

	return writer.Error()
}

func saveAsJSON(path string, table exportTable, generatedAt time.Time) error {
	if len(table.Header) == 0 {
		return errors.New("insufficient data for JSON export")
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if fileErr := file.Close(); fileErr != nil {
			log.Printf("failed to close file: %v", fileErr)
		}
	}()

	records := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		records = append(records, rowRecord(table.Header, row))
	}

	// The first totals cell is the "Total" label.
	var totals map[string]string
	if len(table.Totals) > 0 {
		totals = rowRecord(table.Header[1:], table.Totals[1:])
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"generated_at": generatedAt.Format(time.RFC3339),
		"data":         records,
		"totals":       totals,
		"total_rows":   len(records),
	})
}

func rowRecord(headers, row []string) map[string]string {
	record := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(row) {
			record[header] = row[i]
		}
	}
	return record
}

// Package dashboard serves the bid dashboard: an HTML page with one tab per
// selection and JSON endpoints for the same series.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/httputil"
	"github.com/nadmax/bidboard/internal/task"
)

//go:embed templates/*
var templatesFS embed.FS

const DefaultTitle = "Bid Dashboard"

// Board is the part of *board.Board the dashboard reads from.
type Board interface {
	ProjectID() int
	Tabs(ctx context.Context) ([]board.Tab, error)
	View(ctx context.Context, sel task.Selection) (*board.View, error)
}

type Dashboard struct {
	board Board
	title string
	tmpl  *template.Template
}

type PageData struct {
	Title        string
	ProjectID    int
	Tabs         []board.Tab
	Active       string
	View         *board.View
	Charts       *Charts
	Error        string
	LabelX       float64
	PlannedLabel string
	LoggedLabel  string
}

func NewDashboard(b Board, title string) (*Dashboard, error) {
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	if title == "" {
		title = DefaultTitle
	}

	return &Dashboard{
		board: b,
		title: title,
		tmpl:  tmpl,
	}, nil
}

// Index renders the page for the ?tab= selection. Failures while fetching or
// shaping the selection are shown in place of the charts; the page itself
// still renders with 200.
func (d *Dashboard) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := PageData{
		Title:        d.title,
		ProjectID:    d.board.ProjectID(),
		Active:       tabParam(r),
		LabelX:       labelMargin - 6,
		PlannedLabel: PlannedLabel,
		LoggedLabel:  LoggedLabel,
	}

	tabs, err := d.board.Tabs(ctx)
	if err != nil {
		log.Printf("failed to list tabs: %v", err)
		tabs = []board.Tab{{Key: task.AllTasks().Key(), Label: board.AllTasksLabel}}
		data.Error = err.Error()
	}
	data.Tabs = tabs

	if data.Error == "" {
		view, err := d.view(ctx, data.Active)
		if err != nil {
			log.Printf("failed to render tab %s: %v", data.Active, err)
			data.Error = err.Error()
		} else {
			data.View = view
			data.Charts = buildCharts(view)
		}
	}

	var buf bytes.Buffer
	if err := d.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.Printf("failed to execute template: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("failed to write page: %v", err)
	}
}

func (d *Dashboard) GetSeries(w http.ResponseWriter, r *http.Request) {
	view, err := d.view(r.Context(), tabParam(r))
	if errors.Is(err, task.ErrInvalidSelection) {
		httputil.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("failed to compute series: %v", err)
		httputil.WriteJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}

	httputil.WriteJSON(w, view, http.StatusOK)
}

func (d *Dashboard) GetTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := d.board.Tabs(r.Context())
	if err != nil {
		log.Printf("failed to list tabs: %v", err)
		httputil.WriteJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}

	httputil.WriteJSON(w, tabs, http.StatusOK)
}

func (d *Dashboard) view(ctx context.Context, tab string) (*board.View, error) {
	sel, err := task.ParseSelection(tab)
	if err != nil {
		return nil, err
	}

	return d.board.View(ctx, sel)
}

func tabParam(r *http.Request) string {
	if tab := r.URL.Query().Get("tab"); tab != "" {
		return tab
	}
	return task.AllTasks().Key()
}

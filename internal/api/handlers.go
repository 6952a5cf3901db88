// Package api wires the dashboard, background jobs and snapshot history into
// a single HTTP handler.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nadmax/bidboard/internal/cache"
	"github.com/nadmax/bidboard/internal/dashboard"
	"github.com/nadmax/bidboard/internal/httputil"
	"github.com/nadmax/bidboard/internal/job"
	"github.com/nadmax/bidboard/internal/metrics"
	"github.com/nadmax/bidboard/internal/middleware"
	"github.com/nadmax/bidboard/internal/queue"
	"github.com/nadmax/bidboard/internal/repository"
	"github.com/nadmax/bidboard/internal/task"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options carries the optional backends. A nil field disables the routes
// that need it; they answer 503.
type Options struct {
	ProjectID int
	Queue     *queue.Queue
	Snapshots repository.SnapshotRepository
	Cache     *cache.Cache
}

type API struct {
	dash      *dashboard.Dashboard
	projectID int
	queue     *queue.Queue
	snapshots repository.SnapshotRepository
	cache     *cache.Cache
	mux       *http.ServeMux
	handler   http.Handler
}

type JobRequest struct {
	Type       string           `json:"type"`
	Payload    map[string]any   `json:"payload"`
	Priority   *job.JobPriority `json:"priority"`
	ScheduleIn *int             `json:"schedule_in"`
}

var jobTypes = map[string]bool{
	job.TypeSnapshot:     true,
	job.TypeExportSeries: true,
	job.TypeSendReport:   true,
}

func NewAPI(dash *dashboard.Dashboard, opts Options) *API {
	api := &API{
		dash:      dash,
		projectID: opts.ProjectID,
		queue:     opts.Queue,
		snapshots: opts.Snapshots,
		cache:     opts.Cache,
		mux:       http.NewServeMux(),
	}

	api.setupRoutes()
	api.handler = middleware.RecoverMiddleware(middleware.MetricsMiddleware(api.mux))
	return api
}

func (a *API) setupRoutes() {
	a.mux.HandleFunc("GET /{$}", a.dash.Index)
	a.mux.HandleFunc("GET /api/dashboard/series", a.dash.GetSeries)
	a.mux.HandleFunc("GET /api/dashboard/tabs", a.dash.GetTabs)

	a.mux.HandleFunc("/api/jobs", a.handleJobs)
	a.mux.HandleFunc("/api/jobs/", a.handleJobByID)
	a.mux.HandleFunc("/api/snapshots", a.handleSnapshots)
	a.mux.HandleFunc("/api/cache/invalidate", a.handleCacheInvalidate)

	a.mux.Handle("/metrics", promhttp.Handler())
	a.mux.HandleFunc("/health", a.handleHealth)
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *API) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createJob(w, r)
	case http.MethodGet:
		a.listJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) createJob(w http.ResponseWriter, r *http.Request) {
	if a.queue == nil {
		httputil.WriteJSONError(w, "Redis not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("failed to close request body: %v", err)
		}
	}()

	var req JobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Type == "" {
		http.Error(w, "Job type is required", http.StatusBadRequest)
		return
	}
	if !jobTypes[req.Type] {
		httputil.WriteJSONError(w, fmt.Sprintf("unknown job type: %s", req.Type), http.StatusBadRequest)
		return
	}

	priority := job.MediumPriority
	if req.Priority != nil {
		if *req.Priority < job.LowPriority || *req.Priority > job.HighPriority {
			httputil.WriteJSONError(w, fmt.Sprintf("invalid priority: %d", *req.Priority), http.StatusBadRequest)
			return
		}
		priority = *req.Priority
	}

	j := job.NewJob(req.Type, req.Payload, priority)
	if _, err := task.ParseSelection(j.Tab()); err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ScheduleIn != nil {
		j.ScheduledAt = time.Now().Add(time.Duration(*req.ScheduleIn) * time.Second)
	}

	if err := a.queue.Enqueue(j); err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.RecordJobEnqueued(j.Type, j.Priority)

	httputil.WriteJSON(w, j, http.StatusCreated)
}

func (a *API) listJobs(w http.ResponseWriter, _ *http.Request) {
	if a.queue == nil {
		httputil.WriteJSONError(w, "Redis not configured", http.StatusServiceUnavailable)
		return
	}

	jobs, err := a.queue.GetAllJobs()
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, jobs, http.StatusOK)
}

func (a *API) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.queue == nil {
		httputil.WriteJSONError(w, "Redis not configured", http.StatusServiceUnavailable)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	j, err := a.queue.GetJob(jobID)
	if errors.Is(err, queue.ErrJobNotFound) {
		httputil.WriteJSONError(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, j, http.StatusOK)
}

// handleSnapshots lists the history of one tab, or the newest snapshot of
// every tab when no tab is given.
func (a *API) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.snapshots == nil {
		httputil.WriteJSONError(w, "PostgreSQL not configured", http.StatusServiceUnavailable)
		return
	}

	limit := repository.DefaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var (
		snapshots []repository.Snapshot
		err       error
	)
	if tab := r.URL.Query().Get("tab"); tab != "" {
		sel, perr := task.ParseSelection(tab)
		if perr != nil {
			httputil.WriteJSONError(w, perr.Error(), http.StatusBadRequest)
			return
		}
		snapshots, err = a.snapshots.ListSnapshots(r.Context(), a.projectID, sel.Key(), limit)
	} else {
		snapshots, err = a.snapshots.LatestSnapshots(r.Context(), a.projectID)
	}
	if err != nil {
		log.Printf("failed to list snapshots: %v", err)
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, snapshots, http.StatusOK)
}

func (a *API) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.cache == nil {
		httputil.WriteJSONError(w, "Cache not configured", http.StatusServiceUnavailable)
		return
	}

	removed, err := a.cache.Invalidate(r.Context(), a.projectID)
	if err != nil {
		log.Printf("failed to invalidate cache: %v", err)
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, map[string]int{"removed": removed}, http.StatusOK)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Package api is the HTTP surface: task submission, schedule management,
// health and metrics, and a status dashboard rendered through the Engine
// capability.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JoshCap20/areion/internal/cronspec"
	"github.com/JoshCap20/areion/internal/engine"
	"github.com/JoshCap20/areion/internal/handlers"
	"github.com/JoshCap20/areion/internal/history"
	"github.com/JoshCap20/areion/internal/orchestrator"
)

// Orchestrator is the capability the API needs from the task orchestrator.
type Orchestrator interface {
	SubmitTask(name string, fn orchestrator.TaskFunc) (string, error)
	ScheduleCronTask(name, expr string, fn orchestrator.TaskFunc) (string, error)
	RestoreCronTask(id, name, expr string, fn orchestrator.TaskFunc) error
	RemoveCronTask(id string) bool
	Stats() orchestrator.Stats
}

// Store is the read/write surface of the history store the API uses.
type Store interface {
	RecentRuns(ctx context.Context, limit int) ([]history.RunRecord, error)
	LatestRun(ctx context.Context, taskID string) (history.RunRecord, error)
	CreateSchedule(ctx context.Context, sch history.Schedule) error
	GetSchedule(ctx context.Context, id string) (history.Schedule, error)
	ListSchedules(ctx context.Context) ([]history.Schedule, error)
	UpdateSchedule(ctx context.Context, sch history.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
}

type Config struct {
	Orchestrator Orchestrator
	Store        Store
	Handlers     *handlers.Registry
	Engine       engine.Engine
}

type Server struct {
	orch     Orchestrator
	store    Store
	registry *handlers.Registry
	engine   engine.Engine
}

func NewServer(cfg Config) http.Handler {
	s := &Server{
		orch:     cfg.Orchestrator,
		store:    cfg.Store,
		registry: cfg.Handlers,
		engine:   cfg.Engine,
	}
	if s.registry == nil {
		s.registry = handlers.NewRegistry()
	}
	if s.engine == nil {
		s.engine = engine.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/metrics", s.metrics)
	r.Post("/api/tasks", s.submitTask)
	r.Get("/api/tasks", s.listRuns)
	r.Get("/api/tasks/{id}", s.getTask)
	r.Post("/api/schedules", s.createSchedule)
	r.Get("/api/schedules", s.listSchedules)
	r.Get("/api/schedules/{id}", s.getSchedule)
	r.Put("/api/schedules/{id}", s.updateSchedule)
	r.Delete("/api/schedules/{id}", s.deleteSchedule)
	r.Get("/", s.dashboard)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	st := s.orch.Stats()
	w.Header().Set("content-type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "areion_up 1\n")
	fmt.Fprintf(w, "areion_tasks_executed_total %d\n", st.Executed)
	fmt.Fprintf(w, "areion_tasks_failed_total %d\n", st.Failed)
	fmt.Fprintf(w, "areion_queue_depth %d\n", st.QueueDepth)
	fmt.Fprintf(w, "areion_cron_entries %d\n", st.CronEntries)
}

type submitReq struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitResp struct {
	ID string `json:"id"`
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	h, ok := s.registry.Get(req.Type)
	if !ok {
		http.Error(w, "unknown task type: "+req.Type, http.StatusBadRequest)
		return
	}

	payload := req.Payload
	id, err := s.orch.SubmitTask(req.Type, func(ctx context.Context) error {
		return h.Handle(ctx, payload)
	})
	if err != nil {
		http.Error(w, err.Error(), submitErrStatus(err))
		return
	}
	writeJSON(w, http.StatusAccepted, submitResp{ID: id})
}

// submitErrStatus maps orchestrator admission errors to response codes.
// Lifecycle and capacity problems are the server's fault, not the caller's.
func submitErrStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrQueueFull),
		errors.Is(err, orchestrator.ErrStopped),
		errors.Is(err, orchestrator.ErrNotStarted):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := s.store.RecentRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []history.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.LatestRun(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type createScheduleReq struct {
	Name     string          `json:"name"`
	CronExpr string          `json:"cron_expr"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

type createScheduleResp struct {
	ID      string    `json:"id"`
	NextRun time.Time `json:"next_run"`
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.CronExpr == "" {
		http.Error(w, "cron_expr is required", http.StatusBadRequest)
		return
	}
	if req.TaskType == "" {
		http.Error(w, "task_type is required", http.StatusBadRequest)
		return
	}
	h, ok := s.registry.Get(req.TaskType)
	if !ok {
		http.Error(w, "unknown task type: "+req.TaskType, http.StatusBadRequest)
		return
	}
	if err := cronspec.Validate(req.CronExpr); err != nil {
		http.Error(w, "invalid cron expression: "+err.Error(), http.StatusBadRequest)
		return
	}
	nextRun, err := cronspec.NextRun(req.CronExpr, time.Now())
	if err != nil {
		http.Error(w, "invalid cron expression: "+err.Error(), http.StatusBadRequest)
		return
	}

	payload := req.Payload
	id, err := s.orch.ScheduleCronTask(req.Name, req.CronExpr, func(ctx context.Context) error {
		return h.Handle(ctx, payload)
	})
	if err != nil {
		http.Error(w, err.Error(), submitErrStatus(err))
		return
	}

	sch := history.Schedule{
		ID:       id,
		Name:     req.Name,
		CronExpr: req.CronExpr,
		TaskType: req.TaskType,
		Payload:  req.Payload,
		NextRun:  nextRun,
	}
	if err := s.store.CreateSchedule(r.Context(), sch); err != nil {
		s.orch.RemoveCronTask(id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, createScheduleResp{ID: id, NextRun: nextRun})
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListSchedules(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if schedules == nil {
		schedules = []history.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sch, err := s.store.GetSchedule(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

// updateSchedule replaces the mutable fields of a schedule. Fields omitted
// from the body keep their stored values. The live cron entry is re-registered
// under the same ID so later removal by that ID still works.
func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sch, err := s.store.GetSchedule(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var req createScheduleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		sch.Name = req.Name
	}
	if req.CronExpr != "" {
		sch.CronExpr = req.CronExpr
	}
	if req.TaskType != "" {
		sch.TaskType = req.TaskType
	}
	if req.Payload != nil {
		sch.Payload = req.Payload
	}

	h, ok := s.registry.Get(sch.TaskType)
	if !ok {
		http.Error(w, "unknown task type: "+sch.TaskType, http.StatusBadRequest)
		return
	}
	if err := cronspec.Validate(sch.CronExpr); err != nil {
		http.Error(w, "invalid cron expression: "+err.Error(), http.StatusBadRequest)
		return
	}
	nextRun, err := cronspec.NextRun(sch.CronExpr, time.Now())
	if err != nil {
		http.Error(w, "invalid cron expression: "+err.Error(), http.StatusBadRequest)
		return
	}
	sch.NextRun = nextRun

	payload := sch.Payload
	s.orch.RemoveCronTask(id)
	if err := s.orch.RestoreCronTask(id, sch.Name, sch.CronExpr, func(ctx context.Context) error {
		return h.Handle(ctx, payload)
	}); err != nil {
		http.Error(w, err.Error(), submitErrStatus(err))
		return
	}
	if err := s.store.UpdateSchedule(r.Context(), sch); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetSchedule(r.Context(), id); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.orch.RemoveCronTask(id)
	if err := s.store.DeleteSchedule(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dashboardData struct {
	Stats    orchestrator.Stats
	Handlers []string
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{Stats: s.orch.Stats(), Handlers: s.registry.Names()}
	err := s.engine.Render(w, "status.html", data)
	if errors.Is(err, engine.ErrNoEngine) {
		writeJSON(w, http.StatusOK, map[string]any{
			"state":    data.Stats.State,
			"workers":  data.Stats.Workers,
			"handlers": data.Handlers,
		})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JoshCap20/areion/internal/config"
	"github.com/JoshCap20/areion/internal/handlers"
	"github.com/JoshCap20/areion/internal/history"
	"github.com/JoshCap20/areion/internal/logging"
	"github.com/JoshCap20/areion/internal/orchestrator"
)

type nopHandler struct{}

func (nopHandler) Handle(context.Context, json.RawMessage) error { return nil }

func newBoot(t *testing.T, cfg config.Config) (bootOrchestrator, *history.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)
	if err := history.EnsureSchema(db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	store := history.NewStore(db)

	orch, err := orchestrator.New(orchestrator.Options{MaxWorkers: 1})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(func() { _ = orch.Shutdown() })

	reg := handlers.NewRegistry()
	reg.Register("noop", nopHandler{})

	return bootOrchestrator{
		orch:     orch,
		store:    store,
		cfg:      cfg,
		registry: reg,
		logger:   logging.Nop(),
	}, store
}

func TestBootRestoresPersistedSchedules(t *testing.T) {
	t.Parallel()
	boot, store := newBoot(t, config.Config{})

	sch := history.Schedule{
		ID: "sch_persisted", Name: "nightly", CronExpr: "0 0 3 * * *", TaskType: "noop",
		NextRun: time.Date(2024, time.July, 11, 3, 0, 0, 0, time.UTC),
	}
	if err := store.CreateSchedule(context.Background(), sch); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	if err := boot.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := boot.orch.Stats().CronEntries; got != 1 {
		t.Fatalf("CronEntries = %d, want 1", got)
	}
	// The live entry keeps the stored ID.
	if !boot.orch.RemoveCronTask("sch_persisted") {
		t.Fatal("restored entry not registered under its stored ID")
	}
}

func TestBootPersistsConfigCrons(t *testing.T) {
	t.Parallel()
	cfg := config.Config{Cron: []config.CronConfig{
		{Name: "cleanup", Expr: "0 0 4 * * *", TaskType: "noop"},
	}}
	boot, store := newBoot(t, cfg)

	if err := boot.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := boot.orch.Stats().CronEntries; got != 1 {
		t.Fatalf("CronEntries = %d, want 1", got)
	}

	schedules, err := store.ListSchedules(context.Background())
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(schedules) != 1 || schedules[0].Name != "cleanup" {
		t.Fatalf("schedules = %+v, want one named cleanup", schedules)
	}
	if schedules[0].NextRun.IsZero() {
		t.Fatal("persisted config cron has no next_run")
	}
}

func TestBootSkipsConfigCronAlreadyPersisted(t *testing.T) {
	t.Parallel()
	cfg := config.Config{Cron: []config.CronConfig{
		{Name: "cleanup", Expr: "0 0 4 * * *", TaskType: "noop"},
	}}
	boot, store := newBoot(t, cfg)

	sch := history.Schedule{
		ID: "sch_existing", Name: "cleanup", CronExpr: "0 0 5 * * *", TaskType: "noop",
	}
	if err := store.CreateSchedule(context.Background(), sch); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	if err := boot.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Only the persisted copy runs; the config entry must not duplicate it.
	if got := boot.orch.Stats().CronEntries; got != 1 {
		t.Fatalf("CronEntries = %d, want 1", got)
	}
	schedules, err := store.ListSchedules(context.Background())
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(schedules) != 1 || schedules[0].CronExpr != "0 0 5 * * *" {
		t.Fatalf("schedules = %+v, want the stored definition only", schedules)
	}
}

func TestBootSkipsUnknownHandlerType(t *testing.T) {
	t.Parallel()
	boot, store := newBoot(t, config.Config{})

	if err := store.CreateSchedule(context.Background(), history.Schedule{
		ID: "sch_orphan", Name: "orphan", CronExpr: "0 * * * * *", TaskType: "gone",
	}); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	if err := boot.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := boot.orch.Stats().CronEntries; got != 0 {
		t.Fatalf("CronEntries = %d, want 0 for unrestorable schedule", got)
	}
	// The row stays for the operator to inspect.
	if _, err := store.GetSchedule(context.Background(), "sch_orphan"); err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
}

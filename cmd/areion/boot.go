package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JoshCap20/areion/internal/config"
	"github.com/JoshCap20/areion/internal/cronspec"
	"github.com/JoshCap20/areion/internal/handlers"
	"github.com/JoshCap20/areion/internal/history"
	"github.com/JoshCap20/areion/internal/logging"
	"github.com/JoshCap20/areion/internal/orchestrator"
)

// bootOrchestrator starts the orchestrator and then registers schedules from
// two sources: schedules persisted in the history store (restored under their
// stored IDs, so API removal keeps working across restarts) and cron entries
// declared in the config file. A config entry whose name already exists in
// the store is skipped; otherwise it is registered and persisted so it shows
// up in the schedules API like any other.
type bootOrchestrator struct {
	orch     *orchestrator.Orchestrator
	store    *history.Store
	cfg      config.Config
	registry *handlers.Registry
	logger   logging.Logger
}

func (b bootOrchestrator) Start() error {
	if err := b.orch.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seen, err := b.restorePersisted(ctx)
	if err != nil {
		return err
	}
	return b.registerConfigCrons(ctx, seen)
}

func (b bootOrchestrator) restorePersisted(ctx context.Context) (map[string]bool, error) {
	schedules, err := b.store.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	seen := make(map[string]bool, len(schedules))
	for _, sch := range schedules {
		seen[sch.Name] = true
		h, ok := b.registry.Get(sch.TaskType)
		if !ok {
			// Leave the row in place so the operator can see and fix it.
			b.logger.Errorf("schedule %s (%s): unknown task type %q, not restored", sch.Name, sch.ID, sch.TaskType)
			continue
		}
		payload := json.RawMessage(sch.Payload)
		if err := b.orch.RestoreCronTask(sch.ID, sch.Name, sch.CronExpr, func(ctx context.Context) error {
			return h.Handle(ctx, payload)
		}); err != nil {
			return nil, fmt.Errorf("restore schedule %s: %w", sch.Name, err)
		}
		b.logger.Infof("restored schedule %s (%s): %q", sch.Name, sch.ID, sch.CronExpr)
	}
	return seen, nil
}

func (b bootOrchestrator) registerConfigCrons(ctx context.Context, seen map[string]bool) error {
	for _, c := range b.cfg.Cron {
		if seen[c.Name] {
			b.logger.Debugf("config cron %s already persisted, skipping", c.Name)
			continue
		}
		h, ok := b.registry.Get(c.TaskType)
		if !ok {
			return fmt.Errorf("cron %s: unknown task type %q", c.Name, c.TaskType)
		}
		payload := json.RawMessage(c.Payload)
		id, err := b.orch.ScheduleCronTask(c.Name, c.Expr, func(ctx context.Context) error {
			return h.Handle(ctx, payload)
		})
		if err != nil {
			return fmt.Errorf("cron %s: %w", c.Name, err)
		}
		nextRun, err := cronspec.NextRun(c.Expr, time.Now())
		if err != nil {
			return fmt.Errorf("cron %s: %w", c.Name, err)
		}
		if err := b.store.CreateSchedule(ctx, history.Schedule{
			ID:       id,
			Name:     c.Name,
			CronExpr: c.Expr,
			TaskType: c.TaskType,
			Payload:  []byte(c.Payload),
			NextRun:  nextRun,
		}); err != nil {
			return fmt.Errorf("persist cron %s: %w", c.Name, err)
		}
		b.logger.Infof("registered config cron %s (%s): %q", c.Name, id, c.Expr)
	}
	return nil
}

func (b bootOrchestrator) Shutdown() error { return b.orch.Shutdown() }

package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

type counters struct {
	executed atomic.Uint64
	failed   atomic.Uint64
}

// Stats is a point-in-time view for diagnostics and /metrics.
type Stats struct {
	State       string
	Workers     int
	QueueDepth  int
	CronEntries int
	Executed    uint64
	Failed      uint64
}

func (o *Orchestrator) Stats() Stats {
	o.cmu.Lock()
	entries := len(o.entries)
	o.cmu.Unlock()
	return Stats{
		State:       o.State().String(),
		Workers:     o.workers,
		QueueDepth:  o.queue.len(),
		CronEntries: entries,
		Executed:    o.counters.executed.Load(),
		Failed:      o.counters.failed.Load(),
	}
}

func (o *Orchestrator) worker(ctx context.Context, idx int) {
	defer o.workerWG.Done()
	o.log.Debugf("worker %d started", idx)
	for {
		t, ok := o.queue.dequeue()
		if !ok {
			o.log.Debugf("worker %d exiting, queue closed", idx)
			return
		}
		// Once shutdown has given up on the drain, discard instead of
		// starting work that would immediately be cancelled.
		select {
		case <-ctx.Done():
			o.log.Debugf("worker %d discarding task %s after cancel", idx, t.Name)
			return
		default:
		}
		o.execOne(ctx, t)
	}
}

// execOne runs a single task. Failures and panics are contained here: they
// are logged, counted, and recorded, and the worker keeps going.
func (o *Orchestrator) execOne(ctx context.Context, t Task) {
	start := time.Now()
	err := o.runSafely(ctx, t)
	dur := time.Since(start)

	o.counters.executed.Add(1)
	run := Run{ID: t.ID, Name: t.Name, Started: start, Duration: dur}
	if err != nil {
		o.counters.failed.Add(1)
		run.Error = err.Error()
		o.log.Errorf("task %s (%s) failed after %s: %v", t.Name, t.ID, dur, err)
	} else {
		o.log.Debugf("task %s (%s) completed in %s", t.Name, t.ID, dur)
	}
	o.rec.RecordRun(ctx, run)
}

func (o *Orchestrator) runSafely(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return t.Run(ctx)
}

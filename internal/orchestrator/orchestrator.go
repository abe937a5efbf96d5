// Package orchestrator runs background work for the server: a bounded worker
// pool fed by a FIFO task queue, plus a cron scheduler that enqueues
// recurring tasks into the same pool. Submission is fire-and-forget; task
// failures are logged and recorded, never returned to the submitter.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoshCap20/areion/internal/logging"
)

// TaskFunc is one unit of work. The context is cancelled when shutdown gives
// up waiting on stragglers.
type TaskFunc func(ctx context.Context) error

// Task is an immutable unit of queued work.
type Task struct {
	ID   string
	Name string
	Run  TaskFunc
}

// Run is the outcome of one task execution, reported to the Recorder.
type Run struct {
	ID       string
	Name     string
	Started  time.Time
	Duration time.Duration
	Error    string
}

// Recorder receives completed runs. Implementations must be safe for
// concurrent use; the history store provides one, and nopRecorder is the
// default.
type Recorder interface {
	RecordRun(ctx context.Context, r Run)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(context.Context, Run) {}

// State is the orchestrator lifecycle. Transitions are one-directional:
// Created -> Running -> ShuttingDown -> Stopped.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

const (
	defaultQueueSize    = 256
	defaultDrainTimeout = 5 * time.Second
	// forceStopGrace bounds the wait after cancelling stuck tasks so
	// Shutdown always returns.
	forceStopGrace = time.Second
)

// Options configure construction. MaxWorkers is required; the rest default.
type Options struct {
	MaxWorkers   int
	QueueSize    int
	DrainTimeout time.Duration
	Logger       logging.Logger
	Recorder     Recorder
}

type Orchestrator struct {
	mu    sync.Mutex
	state State

	log logging.Logger
	rec Recorder

	workers      int
	drainTimeout time.Duration

	queue     *taskQueue
	runCtx    context.Context
	runCancel context.CancelFunc
	stopCron  chan struct{}
	workerWG  sync.WaitGroup
	cronDone  chan struct{}

	cmu     sync.Mutex
	entries []*cronEntry

	counters counters
}

// New validates options and returns an orchestrator in the Created state.
func New(opts Options) (*Orchestrator, error) {
	if opts.MaxWorkers <= 0 {
		return nil, &ConfigError{Option: "MaxWorkers", Reason: "must be positive"}
	}
	if opts.QueueSize < 0 {
		return nil, &ConfigError{Option: "QueueSize", Reason: "must not be negative"}
	}
	if opts.DrainTimeout < 0 {
		return nil, &ConfigError{Option: "DrainTimeout", Reason: "must not be negative"}
	}

	qs := opts.QueueSize
	if qs == 0 {
		qs = defaultQueueSize
	}
	dt := opts.DrainTimeout
	if dt == 0 {
		dt = defaultDrainTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	return &Orchestrator{
		log:          log,
		rec:          rec,
		workers:      opts.MaxWorkers,
		drainTimeout: dt,
		queue:        newTaskQueue(qs),
	}, nil
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start spins up the worker pool and the cron tick loop. It can only be
// called once, from the Created state.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateShuttingDown, StateStopped:
		return ErrStopped
	}

	o.state = StateRunning
	o.runCtx, o.runCancel = context.WithCancel(context.Background())
	o.stopCron = make(chan struct{})
	o.cronDone = make(chan struct{})

	o.workerWG.Add(o.workers)
	for i := 0; i < o.workers; i++ {
		go o.worker(o.runCtx, i)
	}
	go o.cronLoop(o.runCtx)

	o.log.Infof("orchestrator started: %d workers, queue capacity %d", o.workers, cap(o.queue.ch))
	return nil
}

// SubmitTask enqueues fn for execution and returns immediately with the
// generated task ID. The outcome is reported only through the Logger and
// Recorder.
func (o *Orchestrator) SubmitTask(name string, fn TaskFunc) (string, error) {
	if err := o.requireRunning(); err != nil {
		return "", err
	}
	id := "tsk_" + uuid.NewString()
	if err := o.queue.enqueue(Task{ID: id, Name: name, Run: fn}); err != nil {
		return "", err
	}
	o.log.Debugf("task %s (%s) submitted", name, id)
	return id, nil
}

// ScheduleCronTask registers fn to fire whenever expr matches the wall
// clock. Validation errors surface synchronously and register nothing.
func (o *Orchestrator) ScheduleCronTask(name, expr string, fn TaskFunc) (string, error) {
	id := "sch_" + uuid.NewString()
	if err := o.RestoreCronTask(id, name, expr, fn); err != nil {
		return "", err
	}
	return id, nil
}

// RestoreCronTask registers a schedule under a caller-provided ID, so
// persisted schedules keep their IDs across restarts. The ID must not
// already be registered.
func (o *Orchestrator) RestoreCronTask(id, name, expr string, fn TaskFunc) error {
	e, err := newCronEntry(id, name, expr, fn)
	if err != nil {
		return err
	}
	if err := o.requireRunning(); err != nil {
		return err
	}

	o.cmu.Lock()
	for _, existing := range o.entries {
		if existing.id == id {
			o.cmu.Unlock()
			return fmt.Errorf("schedule %s already registered", id)
		}
	}
	o.entries = append(o.entries, e)
	o.cmu.Unlock()

	o.log.Infof("cron task %s (%s) scheduled: %q", name, id, expr)
	return nil
}

// RemoveCronTask unregisters a schedule. It reports whether the ID was known.
func (o *Orchestrator) RemoveCronTask(id string) bool {
	o.cmu.Lock()
	defer o.cmu.Unlock()
	for i, e := range o.entries {
		if e.id == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (o *Orchestrator) requireRunning() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateCreated:
		return ErrNotStarted
	case StateRunning:
		return nil
	}
	return ErrStopped
}

// Shutdown stops admission, drains queued tasks up to the drain timeout,
// then cancels whatever is still running. It blocks until done and is
// idempotent: any call outside the Running state returns immediately.
func (o *Orchestrator) Shutdown() error {
	o.mu.Lock()
	if o.state != StateRunning {
		if o.state == StateCreated {
			o.state = StateStopped
		}
		o.mu.Unlock()
		return nil
	}
	o.state = StateShuttingDown
	cancel := o.runCancel
	o.mu.Unlock()

	o.log.Info("orchestrator shutting down")

	close(o.stopCron)
	<-o.cronDone
	o.queue.close()

	drained := make(chan struct{})
	go func() {
		o.workerWG.Wait()
		close(drained)
	}()

	forced := false
	select {
	case <-drained:
	case <-time.After(o.drainTimeout):
		forced = true
		o.log.Error("drain timeout exceeded, cancelling remaining tasks")
		cancel()
		select {
		case <-drained:
		case <-time.After(forceStopGrace):
			o.log.Error("workers did not exit after cancel, abandoning")
		}
	}
	if !forced {
		cancel()
	}

	o.mu.Lock()
	o.state = StateStopped
	o.mu.Unlock()
	o.log.Info("orchestrator shutdown complete")
	return nil
}

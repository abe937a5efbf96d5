package orchestrator

import (
	"context"
	"time"

	"github.com/JoshCap20/areion/internal/cronspec"
)

// cronEntry pairs a compiled schedule with the task it fires. lastRun is
// written only by the cron goroutine, so it needs no lock.
type cronEntry struct {
	id      string
	name    string
	expr    string
	sched   cronspec.Schedule
	fn      TaskFunc
	lastRun time.Time
}

func newCronEntry(id, name, expr string, fn TaskFunc) (*cronEntry, error) {
	sched, err := cronspec.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronEntry{
		id:    id,
		name:  name,
		expr:  expr,
		sched: sched,
		fn:    fn,
	}, nil
}

// cronLoop ticks once per second, the granularity of the seconds field.
// Delayed ticks are not replayed: an entry fires at most once per wall-clock
// second, never retroactively.
func (o *Orchestrator) cronLoop(ctx context.Context) {
	defer close(o.cronDone)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCron:
			return
		case now := <-ticker.C:
			o.fireDue(now)
		}
	}
}

// fireDue submits every entry matching the current second, in registration
// order. Execution order past admission is whatever worker availability
// dictates.
func (o *Orchestrator) fireDue(now time.Time) {
	now = now.Truncate(time.Second)

	o.cmu.Lock()
	due := make([]*cronEntry, 0, len(o.entries))
	for _, e := range o.entries {
		if e.sched.Matches(now) && !e.lastRun.Equal(now) {
			due = append(due, e)
		}
	}
	o.cmu.Unlock()

	for _, e := range due {
		e.lastRun = now
		if err := o.queue.enqueue(Task{ID: e.id, Name: e.name, Run: e.fn}); err != nil {
			o.log.Errorf("cron task %s not enqueued: %v", e.name, err)
			continue
		}
		o.log.Debugf("cron task %s fired at %s", e.name, now.Format(time.RFC3339))
	}
}

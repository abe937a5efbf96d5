package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JoshCap20/areion/internal/cronspec"
)

func TestScheduleCronTaskValidation(t *testing.T) {
	t.Parallel()
	o := newRunning(t, Options{MaxWorkers: 1})

	_, err := o.ScheduleCronTask("bad", "xx * * * * *", func(context.Context) error { return nil })
	var fe *cronspec.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("ScheduleCronTask error = %v, want *cronspec.FieldError", err)
	}
	if got := o.Stats().CronEntries; got != 0 {
		t.Fatalf("CronEntries = %d, want 0 after failed registration", got)
	}
}

func TestRemoveCronTask(t *testing.T) {
	t.Parallel()
	o := newRunning(t, Options{MaxWorkers: 1})

	id, err := o.ScheduleCronTask("tick", "0 0 1 1 *", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("ScheduleCronTask: %v", err)
	}
	if got := o.Stats().CronEntries; got != 1 {
		t.Fatalf("CronEntries = %d, want 1", got)
	}
	if !o.RemoveCronTask(id) {
		t.Fatal("RemoveCronTask returned false for known ID")
	}
	if o.RemoveCronTask(id) {
		t.Fatal("RemoveCronTask returned true for removed ID")
	}
	if got := o.Stats().CronEntries; got != 0 {
		t.Fatalf("CronEntries = %d, want 0", got)
	}
}

func TestRestoreCronTaskKeepsID(t *testing.T) {
	t.Parallel()
	o := newRunning(t, Options{MaxWorkers: 1})

	const id = "sch_11111111-2222-3333-4444-555555555555"
	if err := o.RestoreCronTask(id, "nightly", "0 0 3 * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("RestoreCronTask: %v", err)
	}
	if got := o.Stats().CronEntries; got != 1 {
		t.Fatalf("CronEntries = %d, want 1", got)
	}
	if !o.RemoveCronTask(id) {
		t.Fatal("RemoveCronTask returned false for restored ID")
	}
}

func TestRestoreCronTaskRejectsDuplicateID(t *testing.T) {
	t.Parallel()
	o := newRunning(t, Options{MaxWorkers: 1})

	const id = "sch_dup"
	fn := func(context.Context) error { return nil }
	if err := o.RestoreCronTask(id, "one", "0 * * * * *", fn); err != nil {
		t.Fatalf("RestoreCronTask: %v", err)
	}
	if err := o.RestoreCronTask(id, "two", "0 * * * * *", fn); err == nil {
		t.Fatal("RestoreCronTask accepted a duplicate ID")
	}
	if got := o.Stats().CronEntries; got != 1 {
		t.Fatalf("CronEntries = %d, want 1", got)
	}
}

func TestRestoreCronTaskBeforeStart(t *testing.T) {
	t.Parallel()
	o, err := New(Options{MaxWorkers: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = o.RestoreCronTask("sch_early", "early", "0 * * * * *", func(context.Context) error { return nil })
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("RestoreCronTask error = %v, want ErrNotStarted", err)
	}
}

// The fire logic is exercised against an unstarted orchestrator so the live
// ticker cannot interfere and no wall-clock waiting is needed. Fired tasks
// land in the queue, which is inspected directly.
func newCronFixture(t *testing.T, name, expr string) *Orchestrator {
	t.Helper()
	o, err := New(Options{MaxWorkers: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e, err := newCronEntry("sch_"+name, name, expr, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("newCronEntry: %v", err)
	}
	o.entries = append(o.entries, e)
	return o
}

func TestFireDueOncePerSecond(t *testing.T) {
	t.Parallel()
	o := newCronFixture(t, "every-second", "* * * * * *")

	now := time.Date(2024, time.July, 10, 8, 15, 30, 0, time.UTC)
	o.fireDue(now)
	o.fireDue(now) // same second, must not double-fire
	o.fireDue(now.Add(time.Second))

	if got := o.queue.len(); got != 2 {
		t.Fatalf("enqueued = %d, want 2", got)
	}
}

func TestFireDueStepBoundaries(t *testing.T) {
	t.Parallel()
	o := newCronFixture(t, "every-ten", "*/10 * * * * *")

	base := time.Date(2024, time.July, 10, 8, 15, 0, 0, time.UTC)
	for s := 0; s < 30; s++ {
		o.fireDue(base.Add(time.Duration(s) * time.Second))
	}

	// Seconds 0, 10 and 20 only.
	if got := o.queue.len(); got != 3 {
		t.Fatalf("enqueued = %d, want 3", got)
	}
}

func TestFireDueNonMatchingSecond(t *testing.T) {
	t.Parallel()
	o := newCronFixture(t, "at-five", "5 * * * * *")

	o.fireDue(time.Date(2024, time.July, 10, 8, 15, 30, 0, time.UTC))
	if got := o.queue.len(); got != 0 {
		t.Fatalf("enqueued = %d, want 0", got)
	}
	o.fireDue(time.Date(2024, time.July, 10, 8, 15, 5, 0, time.UTC))
	if got := o.queue.len(); got != 1 {
		t.Fatalf("enqueued = %d, want 1", got)
	}
}

func TestFireDueSubmitsInRegistrationOrder(t *testing.T) {
	t.Parallel()
	o := newCronFixture(t, "first", "* * * * * *")
	e, err := newCronEntry("sch_second", "second", "* * * * * *", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("newCronEntry: %v", err)
	}
	o.entries = append(o.entries, e)

	o.fireDue(time.Date(2024, time.July, 10, 8, 15, 30, 0, time.UTC))

	for _, want := range []string{"first", "second"} {
		task, ok := o.queue.dequeue()
		if !ok {
			t.Fatal("queue closed unexpectedly")
		}
		if task.Name != want {
			t.Fatalf("dequeued %q, want %q", task.Name, want)
		}
	}
}

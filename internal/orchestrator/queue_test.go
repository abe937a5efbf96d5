package orchestrator

import (
	"context"
	"errors"
	"testing"
)

func TestQueueFIFOAndClose(t *testing.T) {
	t.Parallel()
	q := newTaskQueue(4)
	noop := func(context.Context) error { return nil }

	for _, name := range []string{"a", "b", "c"} {
		if err := q.enqueue(Task{Name: name, Run: noop}); err != nil {
			t.Fatalf("enqueue(%s): %v", name, err)
		}
	}
	q.close()
	q.close() // closing twice is safe

	for _, want := range []string{"a", "b", "c"} {
		task, ok := q.dequeue()
		if !ok {
			t.Fatal("queue reported end-of-work before draining")
		}
		if task.Name != want {
			t.Fatalf("dequeued %q, want %q", task.Name, want)
		}
	}
	if _, ok := q.dequeue(); ok {
		t.Fatal("expected end-of-work after drain")
	}
}

func TestQueueEnqueueAfterClose(t *testing.T) {
	t.Parallel()
	q := newTaskQueue(1)
	q.close()
	err := q.enqueue(Task{Name: "late"})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("enqueue after close error = %v, want ErrStopped", err)
	}
}

func TestQueueRejectsAtCapacity(t *testing.T) {
	t.Parallel()
	q := newTaskQueue(1)
	if err := q.enqueue(Task{Name: "fits"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.enqueue(Task{Name: "overflow"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("enqueue at capacity error = %v, want ErrQueueFull", err)
	}
}

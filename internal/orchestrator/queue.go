package orchestrator

import "sync"

// taskQueue is the shared FIFO between submitters and workers. It wraps a
// buffered channel so dequeue blocks on an empty queue and drains naturally
// after close. The mutex guards the closed flag so enqueue never races a
// close into a send-on-closed-channel panic.
type taskQueue struct {
	mu     sync.Mutex
	ch     chan Task
	closed bool
}

func newTaskQueue(capacity int) *taskQueue {
	return &taskQueue{ch: make(chan Task, capacity)}
}

// enqueue appends a task. It never blocks: a full queue rejects with
// ErrQueueFull, a closed queue with ErrStopped.
func (q *taskQueue) enqueue(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrStopped
	}
	select {
	case q.ch <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// dequeue blocks until a task is available. ok is false once the queue is
// closed and fully drained, signalling the worker to exit.
func (q *taskQueue) dequeue() (t Task, ok bool) {
	t, ok = <-q.ch
	return t, ok
}

// close stops admission. Tasks already queued remain available to dequeue.
func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *taskQueue) len() int { return len(q.ch) }

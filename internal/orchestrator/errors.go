package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned when work is submitted before Start.
	ErrNotStarted = errors.New("orchestrator not started")
	// ErrStopped is returned when work is submitted during or after shutdown.
	ErrStopped = errors.New("orchestrator stopped")
	// ErrAlreadyStarted is returned by Start outside the Created state.
	ErrAlreadyStarted = errors.New("orchestrator already started")
	// ErrQueueFull is returned when the task queue is at capacity.
	ErrQueueFull = errors.New("task queue full")
)

// ConfigError reports an invalid construction option.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("orchestrator config %s: %s", e.Option, e.Reason)
}

// Package handlers defines the named task handler contract used by the HTTP
// API: a submitted task names a handler type and carries a JSON payload.
package handlers

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Handler executes one kind of task against a JSON payload.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Registry maps handler type names to implementations. Safe for concurrent
// use; registration normally happens once at boot.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{m: map[string]Handler{}}
}

func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	r.m[name] = h
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.m[name]
	r.mu.RUnlock()
	return h, ok
}

// Names lists registered handler types, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

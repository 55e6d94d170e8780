// Package health aggregates liveness signals from the scoring service's
// dependencies (the transaction database or in-memory stores) for the
// /health endpoint.
package health

import (
	"context"
	"sync"
)

// Status is the outcome of checking one dependency.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker reports the health of a single dependency. It must respect ctx
// deadlines so a slow database cannot stall the health endpoint.
type Checker func(ctx context.Context) Status

type entry struct {
	name  string
	check Checker
}

// Registry runs registered checkers on demand, in registration order, so
// the health payload stays stable across requests.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named checker. Safe to call concurrently with CheckAll.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.entries = append(r.entries, entry{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll runs every checker and reports whether the service as a whole
// is healthy, along with the individual results. One unhealthy dependency
// makes the aggregate unhealthy.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, len(entries))
	for i, e := range entries {
		statuses[i] = e.check(ctx)
		if !statuses[i].Healthy {
			healthy = false
		}
	}
	return healthy, statuses
}

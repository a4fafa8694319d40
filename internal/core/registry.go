package core

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry tracks the handles of currently live agent processes. It is an
// explicit object owned by the Supervisor rather than package-level state,
// so lifetime and concurrency are visible at the construction site.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Add records a handle. Re-adding the same id overwrites, which cannot
// happen in practice because ids are unique per launch.
func (r *Registry) Add(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.ID()] = h
}

// Remove forgets a handle. Removing an unknown id is a no-op, so remove
// racing remove (e.g., explicit Terminate during Shutdown) is harmless.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// Get returns the handle for id, or nil when unknown.
func (r *Registry) Get(id string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[id]
}

// Handles returns a snapshot of all registered handles. The slice is a
// copy; mutating it does not affect the registry.
func (r *Registry) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// TerminateAll runs terminate for every registered handle in parallel.
// Each handle is independent and stopping is I/O-bound, so parallel stops
// reduce worst-case latency from N*StopTimeout to 1*StopTimeout. The
// terminate callback must be idempotent; handles terminated concurrently
// through other paths are skipped by their own state machine.
func (r *Registry) TerminateAll(terminate func(*Handle)) {
	var g errgroup.Group
	for _, h := range r.Handles() {
		h := h
		g.Go(func() error {
			terminate(h)
			return nil
		})
	}
	// The callbacks never return errors; termination failures are logged
	// inside terminate and must not block shutdown.
	_ = g.Wait()
}

package core

import (
	"sync/atomic"
	"testing"
)

func newTestHandle(id string, state ProcessState) *Handle {
	h := &Handle{id: id}
	h.state.Store(uint32(state))
	return h
}

func TestRegistry_AddRemoveGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("new registry Len = %d, want 0", r.Len())
	}

	h := newTestHandle("h-1", StateReady)
	r.Add(h)
	if r.Len() != 1 {
		t.Fatalf("Len after Add = %d, want 1", r.Len())
	}
	if got := r.Get("h-1"); got != h {
		t.Fatal("Get should return the added handle")
	}
	if got := r.Get("unknown"); got != nil {
		t.Fatal("Get of unknown id should return nil")
	}

	r.Remove("h-1")
	if r.Len() != 0 {
		t.Fatalf("Len after Remove = %d, want 0", r.Len())
	}

	// Removing again is a no-op.
	r.Remove("h-1")
}

func TestRegistry_HandlesIsSnapshot(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add(newTestHandle("h-1", StateReady))
	r.Add(newTestHandle("h-2", StateReady))

	snapshot := r.Handles()
	if len(snapshot) != 2 {
		t.Fatalf("Handles len = %d, want 2", len(snapshot))
	}

	r.Remove("h-1")
	if len(snapshot) != 2 {
		t.Error("snapshot should be unaffected by later Remove")
	}
}

func TestRegistry_TerminateAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add(newTestHandle("h-1", StateReady))
	r.Add(newTestHandle("h-2", StateReady))
	r.Add(newTestHandle("h-3", StateReady))

	var calls atomic.Int32
	r.TerminateAll(func(h *Handle) {
		calls.Add(1)
		r.Remove(h.ID())
	})

	if got := calls.Load(); got != 3 {
		t.Errorf("terminate called %d times, want 3", got)
	}
	if r.Len() != 0 {
		t.Errorf("registry Len after TerminateAll = %d, want 0", r.Len())
	}
}

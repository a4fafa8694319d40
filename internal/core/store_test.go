package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenStore(filepath.Join(t.TempDir(), "state.db"), nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_InsertListDelete(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)

	started := time.Now().UTC().Truncate(time.Millisecond)
	rec := LaunchRecord{
		ID:        "launch-1",
		PID:       4242,
		Port:      50123,
		Binary:    "/opt/agent/bin/agentd",
		StartedAt: started,
	}
	if err := st.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	recs, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("List len = %d, want 1", len(recs))
	}
	got := recs[0]
	if got.ID != rec.ID || got.PID != rec.PID || got.Port != rec.Port || got.Binary != rec.Binary {
		t.Errorf("round-tripped record = %+v, want %+v", got, rec)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}

	if err := st.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	recs, err = st.List()
	if err != nil {
		t.Fatalf("List after Delete: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("List len after Delete = %d, want 0", len(recs))
	}

	// Deleting an unknown id is a no-op.
	if err := st.Delete("launch-1"); err != nil {
		t.Fatalf("Delete of unknown id: %v", err)
	}
}

func TestStore_InsertReplacesExistingID(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)

	if err := st.Insert(LaunchRecord{ID: "launch-1", PID: 1000, Port: 50001, Binary: "/a"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := st.Insert(LaunchRecord{ID: "launch-1", PID: 2000, Port: 50002, Binary: "/b"}); err != nil {
		t.Fatalf("Insert replace: %v", err)
	}

	recs, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("List len = %d, want 1", len(recs))
	}
	if recs[0].PID != 2000 {
		t.Errorf("PID = %d, want the replacing row's 2000", recs[0].PID)
	}
}

func TestStore_ReapOrphansPurgesRecords(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)

	// Pids far above any plausible live process, so reaping only needs to
	// purge the rows without killing anything.
	for _, rec := range []LaunchRecord{
		{ID: "stale-1", PID: 1 << 28, Port: 50001, Binary: "/a", StartedAt: time.Now()},
		{ID: "stale-2", PID: 1<<28 + 1, Port: 50002, Binary: "/b", StartedAt: time.Now()},
	} {
		if err := st.Insert(rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	if err := st.ReapOrphans(context.Background()); err != nil {
		t.Fatalf("ReapOrphans: %v", err)
	}

	recs, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("records after reap = %d, want 0", len(recs))
	}
}

func TestStore_ReapOrphansEmptyStore(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	if err := st.ReapOrphans(context.Background()); err != nil {
		t.Fatalf("ReapOrphans on empty store: %v", err)
	}
}

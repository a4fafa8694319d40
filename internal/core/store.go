package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/giantswarm/agentenv/internal/fileutil"
	"github.com/giantswarm/agentenv/internal/process"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// fileLockRetryInterval is the interval between consecutive attempts to
// acquire the store file lock. 50ms balances responsiveness (low wait
// after the holder releases) against CPU overhead from busy-polling.
const fileLockRetryInterval = 50 * time.Millisecond

// LaunchRecord is one row of the launch store: enough identity to find and
// kill an agent process that outlived its host.
type LaunchRecord struct {
	ID        string
	PID       int
	Port      int
	Binary    string
	StartedAt time.Time
}

// Store persists live launch records in a SQLite database so that a host
// restarted after a crash can reap the agent processes the previous run
// left behind. Rows exist only while their agent is considered live: a row
// is inserted when a launch reaches Ready and deleted on termination.
type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenStore opens (creating if necessary) the launch store at path.
func OpenStore(path string, log *slog.Logger) (*Store, error) {
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	// Busy timeout covers concurrent hosts sharing one store file; WAL
	// keeps readers from blocking the writer.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open launch store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS launches (
		id TEXT PRIMARY KEY,
		pid INTEGER NOT NULL,
		port INTEGER NOT NULL,
		binary TEXT NOT NULL,
		started_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create launches table: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, path: path, log: log}, nil
}

// Insert records a launch that reached Ready.
func (s *Store) Insert(rec LaunchRecord) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO launches (id, pid, port, binary, started_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.PID, rec.Port, rec.Binary, rec.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert launch %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a launch record. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM launches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete launch %s: %w", id, err)
	}
	return nil
}

// List returns all recorded launches.
func (s *Store) List() ([]LaunchRecord, error) {
	rows, err := s.db.Query(`SELECT id, pid, port, binary, started_at FROM launches`)
	if err != nil {
		return nil, fmt.Errorf("list launches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []LaunchRecord
	for rows.Next() {
		var rec LaunchRecord
		var startedAt string
		if err := rows.Scan(&rec.ID, &rec.PID, &rec.Port, &rec.Binary, &startedAt); err != nil {
			return nil, fmt.Errorf("scan launch row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			rec.StartedAt = t
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list launches: %w", err)
	}
	return recs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReapOrphans kills agent processes recorded by a previous host run and
// purges their rows. Called once during supervisor initialization, before
// any new launch inserts rows. A cross-process file lock serializes
// concurrent hosts sharing the store so each orphan is reaped exactly once.
//
// Pid reuse caveat: a recorded pid may have been recycled by the OS for an
// unrelated process since the previous host died. The kill is therefore
// best-effort by design; a host whose agents must never be confused with
// other processes should use a dedicated store path per installation.
func (s *Store) ReapOrphans(ctx context.Context) error {
	fl := flock.New(s.path + ".lock")
	locked, err := fl.TryLockContext(ctx, fileLockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire store lock: lock not acquired")
	}
	// The lock file is intentionally left on disk: removing it could
	// invalidate a lock concurrently acquired by another process. Close
	// releases the lock and the descriptor.
	defer func() {
		if err := fl.Close(); err != nil {
			s.log.Debug("release store lock", "path", fl.Path(), "error", err)
		}
	}()

	recs, err := s.List()
	if err != nil {
		return fmt.Errorf("reap orphans: %w", err)
	}

	for _, rec := range recs {
		if process.Alive(rec.PID) {
			s.log.Warn("reaping orphaned agent from previous run",
				"id", rec.ID, "pid", rec.PID, "port", rec.Port, "started_at", rec.StartedAt)
			if err := process.KillTree(rec.PID); err != nil {
				s.log.Warn("failed to kill orphaned agent", "pid", rec.PID, "error", err)
			}
		}
		if err := s.Delete(rec.ID); err != nil {
			s.log.Warn("failed to purge launch record", "id", rec.ID, "error", err)
		}
	}

	return nil
}

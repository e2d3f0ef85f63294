// Package checkpoint persists frontier snapshots to SQLite so a selection
// run can resume after interruption. One row per (run id, generation);
// snapshots travel as JSON and round-trip losslessly.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/logging"
	"github.com/XiaoConstantine/evoselect/pkg/selection"
)

// Store is a SQLite-backed snapshot store. Safe for concurrent use.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

// Open opens or creates the store at path. ":memory:" keeps the database
// in-memory, which the tests use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to open checkpoint database"),
			errors.Fields{"path": path})
	}

	s := &Store{db: db, path: path}
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS checkpoints (
            run_id     TEXT NOT NULL,
            generation INTEGER NOT NULL,
            snapshot   TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (run_id, generation)
        );

        CREATE INDEX IF NOT EXISTS idx_checkpoints_run
        ON checkpoints(run_id, generation DESC);
        `
		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.Wrap(err, errors.Unknown, "failed to initialize checkpoint schema")
		}
	})
	return initErr
}

// Save writes the snapshot for its generation, replacing any existing row
// for the same (run id, generation).
func (s *Store) Save(ctx context.Context, runID string, snap *selection.FrontierSnapshot) error {
	if err := errors.CheckContext(ctx, "checkpoint save"); err != nil {
		return err
	}
	if runID == "" {
		return errors.New(errors.InvalidInput, "run id must not be empty")
	}
	if snap == nil {
		return errors.New(errors.InvalidInput, "snapshot must not be nil")
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to marshal snapshot"),
			errors.Fields{"run_id": runID, "generation": snap.Generation})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
    INSERT INTO checkpoints (run_id, generation, snapshot)
    VALUES (?, ?, ?)
    ON CONFLICT(run_id, generation) DO UPDATE SET
        snapshot = excluded.snapshot,
        created_at = CURRENT_TIMESTAMP
    `
	if _, err := s.db.ExecContext(ctx, query, runID, snap.Generation, string(payload)); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to save checkpoint"),
			errors.Fields{"run_id": runID, "generation": snap.Generation})
	}

	logging.GetLogger().Debug(ctx, "Saved checkpoint: run=%s, generation=%d, bytes=%d",
		runID, snap.Generation, len(payload))
	return nil
}

// Load returns the snapshot for an exact (run id, generation) pair.
func (s *Store) Load(ctx context.Context, runID string, generation int) (*selection.FrontierSnapshot, error) {
	if err := errors.CheckContext(ctx, "checkpoint load"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM checkpoints WHERE run_id = ? AND generation = ?",
		runID, generation).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no checkpoint for generation"),
			errors.Fields{"run_id": runID, "generation": generation})
	}
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to load checkpoint"),
			errors.Fields{"run_id": runID, "generation": generation})
	}
	return decodeSnapshot(payload, runID)
}

// Latest returns the highest-generation snapshot for the run.
func (s *Store) Latest(ctx context.Context, runID string) (*selection.FrontierSnapshot, error) {
	if err := errors.CheckContext(ctx, "checkpoint load"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM checkpoints WHERE run_id = ? ORDER BY generation DESC LIMIT 1",
		runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no checkpoints for run"),
			errors.Fields{"run_id": runID})
	}
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to load latest checkpoint"),
			errors.Fields{"run_id": runID})
	}
	return decodeSnapshot(payload, runID)
}

// Generations lists the stored generations for a run in ascending order.
func (s *Store) Generations(ctx context.Context, runID string) ([]int, error) {
	if err := errors.CheckContext(ctx, "checkpoint list"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT generation FROM checkpoints WHERE run_id = ? ORDER BY generation ASC", runID)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to list checkpoints"),
			errors.Fields{"run_id": runID})
	}
	defer rows.Close()

	var generations []int
	for rows.Next() {
		var g int
		if err := rows.Scan(&g); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan checkpoint row")
		}
		generations = append(generations, g)
	}
	return generations, rows.Err()
}

// Prune deletes all but the keep most recent snapshots for the run.
func (s *Store) Prune(ctx context.Context, runID string, keep int) error {
	if err := errors.CheckContext(ctx, "checkpoint prune"); err != nil {
		return err
	}
	if keep < 0 {
		return errors.New(errors.InvalidInput, "keep must be non-negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
    DELETE FROM checkpoints
    WHERE run_id = ? AND generation NOT IN (
        SELECT generation FROM checkpoints
        WHERE run_id = ? ORDER BY generation DESC LIMIT ?
    )
    `
	result, err := s.db.ExecContext(ctx, query, runID, runID, keep)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to prune checkpoints"),
			errors.Fields{"run_id": runID, "keep": keep})
	}

	if deleted, err := result.RowsAffected(); err == nil && deleted > 0 {
		logging.GetLogger().Debug(ctx, "Pruned checkpoints: run=%s, deleted=%d, kept=%d",
			runID, deleted, keep)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to close checkpoint database")
	}
	return nil
}

func decodeSnapshot(payload, runID string) (*selection.FrontierSnapshot, error) {
	var snap selection.FrontierSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ValidationFailed, "stored checkpoint is not valid JSON"),
			errors.Fields{"run_id": runID})
	}
	return &snap, nil
}

// Package checkpoint persists WorkflowState snapshots keyed by thread id in
// an embedded SQLite database, so an interrupted run can resume from its
// last completed step. Grounded on the checkpoint.State phase/type/resume
// shape retrieved from the pack's reference material, and on the original
// implementation's use of langgraph's SqliteSaver for the same purpose.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aldermoor/governor/internal/state"
)

// Phase records where in its lifecycle a checkpointed thread sits.
type Phase string

const (
	PhaseRunning   Phase = "running"
	PhaseAwaiting  Phase = "awaiting_input" // paused at a human gate
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Snapshot is one persisted checkpoint row.
type Snapshot struct {
	ThreadID  string
	Node      string
	Phase     Phase
	State     state.WorkflowState
	UpdatedAt time.Time
}

// Store is a SQLite-backed checkpoint store, one row per thread id (latest
// snapshot only — this is a resume point, not a full history).
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a checkpoint store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: opening %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id  TEXT PRIMARY KEY,
	node       TEXT NOT NULL,
	phase      TEXT NOT NULL,
	state_json TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts the snapshot for threadID.
func (s *Store) Save(ctx context.Context, threadID, node string, phase Phase, st state.WorkflowState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("checkpoint: encoding state: %w", err)
	}

	const stmt = `
INSERT INTO checkpoints (thread_id, node, phase, state_json, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(thread_id) DO UPDATE SET
	node = excluded.node,
	phase = excluded.phase,
	state_json = excluded.state_json,
	updated_at = excluded.updated_at;`
	_, err = s.db.ExecContext(ctx, stmt, threadID, node, string(phase), string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("checkpoint: saving thread %s: %w", threadID, err)
	}
	return nil
}

// Load retrieves the latest snapshot for threadID, or (Snapshot{}, false, nil)
// if none exists.
func (s *Store) Load(ctx context.Context, threadID string) (Snapshot, bool, error) {
	const query = `SELECT node, phase, state_json, updated_at FROM checkpoints WHERE thread_id = ?;`
	row := s.db.QueryRowContext(ctx, query, threadID)

	var node, phase, stateJSON string
	var updatedAt time.Time
	if err := row.Scan(&node, &phase, &stateJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("checkpoint: loading thread %s: %w", threadID, err)
	}

	var st state.WorkflowState
	if err := json.Unmarshal([]byte(stateJSON), &st); err != nil {
		return Snapshot{}, false, fmt.Errorf("checkpoint: decoding state for thread %s: %w", threadID, err)
	}

	return Snapshot{ThreadID: threadID, Node: node, Phase: Phase(phase), State: st, UpdatedAt: updatedAt}, true, nil
}

// Delete removes a thread's checkpoint, e.g. once a workflow completes.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?;`, threadID)
	if err != nil {
		return fmt.Errorf("checkpoint: deleting thread %s: %w", threadID, err)
	}
	return nil
}

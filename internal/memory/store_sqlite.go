// store_sqlite.go implements optional SQLite persistence for the snapshot
// history, so context memory survives restarts.
package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql

	"github.com/normanking/glimpse/pkg/types"
)

// SnapshotStore persists context snapshots.
type SnapshotStore interface {
	Save(snap types.ContextSnapshot) error
	Delete(contextID string) error
	Load() ([]types.ContextSnapshot, error)
	Prune(before time.Time) error
	Close() error
}

// SQLiteSnapshotStore stores snapshots as JSON rows keyed by context ID.
type SQLiteSnapshotStore struct {
	db *sql.DB
}

// OpenSQLiteSnapshotStore opens (creating if needed) the store at path.
func OpenSQLiteSnapshotStore(path string) (*SQLiteSnapshotStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			context_id TEXT PRIMARY KEY,
			captured_at DATETIME NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_captured_at
			ON snapshots(captured_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}

	return &SQLiteSnapshotStore{db: db}, nil
}

// Save inserts or replaces one snapshot row.
func (s *SQLiteSnapshotStore) Save(snap types.ContextSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO snapshots (context_id, captured_at, payload) VALUES (?, ?, ?)`,
		snap.Context.ID, snap.Context.Timestamp.UTC(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot with the given context ID.
func (s *SQLiteSnapshotStore) Delete(contextID string) error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE context_id = ?`, contextID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Load returns all snapshots ordered oldest first.
func (s *SQLiteSnapshotStore) Load() ([]types.ContextSnapshot, error) {
	rows, err := s.db.Query(`SELECT payload FROM snapshots ORDER BY captured_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []types.ContextSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap types.ContextSnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Prune deletes snapshots captured before the cutoff.
func (s *SQLiteSnapshotStore) Prune(before time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE captured_at < ?`, before.UTC()); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}

// compile-time interface check
var _ SnapshotStore = (*SQLiteSnapshotStore)(nil)

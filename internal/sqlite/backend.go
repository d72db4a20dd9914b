package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/scenariolist/pkg/canonical"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "scenariolist.db"

// Backend manages the SQLite database holding scenario lists. It hands out
// per-list Store instances via List and provides the whole-list admin
// operations (create, delete, snapshot) plus the restricted SQL explorer.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewBackend creates a new SQLite backend instance. The backend is not
// attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (or creates) the database in the configured data directory
// and applies the schema. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return err
	}
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent: multiple calls succeed. After
// Detach, operations on stores return ErrStoreDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// conn returns the open database handle, or ErrStoreDetached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.db, nil
}

// CreateList inserts a new, empty list at version 0 and returns its ID.
func (b *Backend) CreateList() (int64, error) {
	db, err := b.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.Exec(
		"INSERT INTO scenario_lists (version, created_at) VALUES (0, ?)",
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("creating list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("creating list: %w", err)
	}
	return id, nil
}

// List returns the Store bound to the given list ID.
// Returns ErrListNotFound if no such list exists.
func (b *Backend) List(listID int64) (types.Store, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	var one int
	err = db.QueryRow("SELECT 1 FROM scenario_lists WHERE list_id = ?", listID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, types.ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up list %d: %w", listID, err)
	}
	return &listStore{backend: b, listID: listID}, nil
}

// DeleteList hard-deletes every row belonging to the list, in one
// transaction. Returns ErrListNotFound if no such list exists.
func (b *Backend) DeleteList(listID int64) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM scenario_lists WHERE list_id = ?", listID)
	if err != nil {
		return fmt.Errorf("deleting list %d: %w", listID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrListNotFound
	}
	for _, table := range []string{
		"scenarios",
		"scenario_list_meta",
		"scenario_list_overrides",
		"scenario_list_history",
		"scenario_list_snapshots",
	} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE list_id = ?", table), listID); err != nil {
			return fmt.Errorf("deleting %s rows for list %d: %w", table, listID, err)
		}
	}
	return tx.Commit()
}

// CreateSnapshot materializes the list's current state and caches it in the
// snapshots table for faster future loads. Returns the snapshot ID and the
// version it captures.
func (b *Backend) CreateSnapshot(listID int64) (string, int, error) {
	store, err := b.List(listID)
	if err != nil {
		return "", 0, err
	}
	version, err := store.Version()
	if err != nil {
		return "", 0, err
	}
	scenarios, err := store.GetMaterializedList(version)
	if err != nil {
		return "", 0, err
	}
	blob, err := canonical.Marshal(scenarios)
	if err != nil {
		return "", 0, err
	}

	db, err := b.conn()
	if err != nil {
		return "", 0, err
	}
	snapshotID := generateUUID()
	_, err = db.Exec(
		"INSERT INTO scenario_list_snapshots (snapshot_id, list_id, version, scenarios, created_at) VALUES (?, ?, ?, ?, ?)",
		snapshotID, listID, version, string(blob), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", 0, fmt.Errorf("creating snapshot: %w", err)
	}
	return snapshotID, version, nil
}

// Snapshot returns the cached materialized state for the list at exactly
// the given version, or false if no snapshot captures that version.
func (b *Backend) Snapshot(listID int64, version int) ([]types.Scenario, bool, error) {
	db, err := b.conn()
	if err != nil {
		return nil, false, err
	}
	var blob string
	err = db.QueryRow(
		"SELECT scenarios FROM scenario_list_snapshots WHERE list_id = ? AND version = ? ORDER BY created_at DESC LIMIT 1",
		listID, version,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading snapshot: %w", err)
	}
	scenarios, err := decodeScenarioSlice(blob)
	if err != nil {
		return nil, false, err
	}
	return scenarios, true, nil
}

// generateUUID generates a new UUID v7 for snapshot IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

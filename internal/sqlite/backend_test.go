// Tests for the SQLite backend lifecycle and admin operations.
package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

func newAttachedBackend(t *testing.T) *Backend {
	t.Helper()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	err := b.Attach(config)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	// Verify database file created
	dbPath := filepath.Join(tmpDir, DBFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("%s not created", DBFileName)
	}

	// Verify double attach fails
	err = b.Attach(config)
	if err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}

	b.Detach()
}

func TestBackend_AttachRejectsBadConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "bolt"})
	if err != types.ErrBackendUnknown {
		t.Errorf("expected ErrBackendUnknown, got %v", err)
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	// Verify idempotent
	if err := b.Detach(); err != nil {
		t.Errorf("second Detach should not error, got %v", err)
	}

	// Verify operations fail after detach
	_, err := b.CreateList()
	if err != types.ErrStoreDetached {
		t.Errorf("expected ErrStoreDetached, got %v", err)
	}
}

func TestBackend_AttachIsDurable(t *testing.T) {
	tmpDir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}

	b := NewBackend()
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	id, err := b.CreateList()
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	store, err := b.List(id)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if err := store.InsertScenario(0, types.Scenario{"k": "v"}, 1); err != nil {
		t.Fatalf("InsertScenario failed: %v", err)
	}
	if err := store.SetVersion(1); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	b.Detach()

	// Reattaching to the same data dir must see the persisted rows.
	b2 := NewBackend()
	if err := b2.Attach(config); err != nil {
		t.Fatalf("second Attach failed: %v", err)
	}
	defer b2.Detach()

	store, err = b2.List(id)
	if err != nil {
		t.Fatalf("List after reattach failed: %v", err)
	}
	length, err := store.GetLength(types.Latest)
	if err != nil {
		t.Fatalf("GetLength failed: %v", err)
	}
	if length != 1 {
		t.Errorf("expected length 1 after reattach, got %d", length)
	}
}

func TestBackend_ListNotFound(t *testing.T) {
	b := newAttachedBackend(t)

	_, err := b.List(99)
	if err != types.ErrListNotFound {
		t.Errorf("expected ErrListNotFound, got %v", err)
	}
}

func TestBackend_DeleteList(t *testing.T) {
	b := newAttachedBackend(t)

	id, err := b.CreateList()
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if err := b.DeleteList(id); err != nil {
		t.Fatalf("DeleteList failed: %v", err)
	}
	if _, err := b.List(id); err != types.ErrListNotFound {
		t.Errorf("expected ErrListNotFound after delete, got %v", err)
	}
	if err := b.DeleteList(id); err != types.ErrListNotFound {
		t.Errorf("expected ErrListNotFound on double delete, got %v", err)
	}
}

func TestBackend_Snapshot(t *testing.T) {
	b := newAttachedBackend(t)

	id, err := b.CreateList()
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	store, err := b.List(id)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	payload := types.Scenario{"persona": "Alice"}
	digest, err := payload.Digest()
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	withDigest := payload.Clone()
	withDigest["_digest"] = digest
	if err := store.InsertScenario(0, withDigest, 1); err != nil {
		t.Fatalf("InsertScenario failed: %v", err)
	}
	if err := store.SetVersion(1); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	snapshotID, version, err := b.CreateSnapshot(id)
	if err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}
	if snapshotID == "" {
		t.Error("expected non-empty snapshot ID")
	}
	if version != 1 {
		t.Errorf("expected snapshot at version 1, got %d", version)
	}

	scenarios, hit, err := b.Snapshot(id, 1)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !hit {
		t.Fatal("expected snapshot hit at version 1")
	}
	if len(scenarios) != 1 || scenarios[0]["persona"] != "Alice" {
		t.Errorf("unexpected snapshot contents: %v", scenarios)
	}

	// No snapshot captures version 0.
	_, hit, err = b.Snapshot(id, 0)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if hit {
		t.Error("expected no snapshot at version 0")
	}
}

func TestBackend_QueryAllowList(t *testing.T) {
	b := newAttachedBackend(t)

	if _, _, err := b.Query("DELETE FROM scenario_lists"); err != ErrQueryNotAllowed {
		t.Errorf("expected ErrQueryNotAllowed for DELETE, got %v", err)
	}
	if _, _, err := b.Query("  drop table scenarios"); err != ErrQueryNotAllowed {
		t.Errorf("expected ErrQueryNotAllowed for DROP, got %v", err)
	}
	if _, _, err := b.Query("SELECT 1; DELETE FROM scenario_lists"); err != ErrQueryNotAllowed {
		t.Errorf("expected ErrQueryNotAllowed for chained statement, got %v", err)
	}
	if _, _, err := b.Query("SELECT 1;; DROP TABLE scenarios"); err != ErrQueryNotAllowed {
		t.Errorf("expected ErrQueryNotAllowed for double separator, got %v", err)
	}

	if _, err := b.CreateList(); err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	columns, rows, err := b.Query("SELECT list_id, version FROM scenario_lists")
	if err != nil {
		t.Fatalf("SELECT failed: %v", err)
	}
	if len(columns) != 2 {
		t.Errorf("expected 2 columns, got %v", columns)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}

	if _, _, err := b.Query("PRAGMA table_info(scenarios)"); err != nil {
		t.Errorf("PRAGMA should be allowed, got %v", err)
	}
	if _, _, err := b.Query("SELECT list_id FROM scenario_lists;"); err != nil {
		t.Errorf("trailing semicolon should be allowed, got %v", err)
	}
}

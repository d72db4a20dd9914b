package sqlite

import (
	"testing"

	"github.com/mesh-intelligence/scenariolist/internal/storetest"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

func TestListStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store {
		b := newAttachedBackend(t)
		id, err := b.CreateList()
		if err != nil {
			t.Fatalf("CreateList failed: %v", err)
		}
		store, err := b.List(id)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		return store
	})
}

func TestListStore_IsolatedPerList(t *testing.T) {
	b := newAttachedBackend(t)

	id1, err := b.CreateList()
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	id2, err := b.CreateList()
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}

	s1, err := b.List(id1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	s2, err := b.List(id2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if err := s1.InsertScenario(0, types.Scenario{"k": "v"}, 1); err != nil {
		t.Fatalf("InsertScenario failed: %v", err)
	}
	if err := s1.SetVersion(1); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	length, err := s2.GetLength(types.Latest)
	if err != nil {
		t.Fatalf("GetLength failed: %v", err)
	}
	if length != 0 {
		t.Errorf("expected empty second list, got length %d", length)
	}
	version, err := s2.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on second list, got %d", version)
	}
}

func TestListStore_ApplyDeltaIsAtomic(t *testing.T) {
	b := newAttachedBackend(t)

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

	// A delta whose scenario collides on position fails mid-apply; the
	// transaction must roll everything back, including earlier rows.
	bad := &types.Delta{
		FromVersion: 1,
		ToVersion:   3,
		Scenarios: []types.StoredScenario{
			{Position: 1, VersionAdded: 2, Payload: types.Scenario{"k": "w"}},
			{Position: 0, VersionAdded: 3, Payload: types.Scenario{"k": "x"}},
		},
	}
	if err := store.ApplyDelta(bad); err == nil {
		t.Fatal("expected ApplyDelta to fail on position collision")
	}

	length, err := store.GetLength(types.Latest)
	if err != nil {
		t.Fatalf("GetLength failed: %v", err)
	}
	if length != 1 {
		t.Errorf("expected length 1 after failed apply, got %d", length)
	}
	version, err := store.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1 after failed apply, got %d", version)
	}
}

// Package scenariolist provides the user-facing collection type: a
// versioned, append-only list of scenario records backed by a pluggable
// Store, with version-scoped read-only views and delta-based push/pull
// synchronization against a remote server.
package scenariolist

import (
	"github.com/mesh-intelligence/scenariolist/internal/memory"
	"github.com/mesh-intelligence/scenariolist/internal/plan"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// Mutating method names as recorded in the history log.
const (
	MethodAppend    = "append"
	MethodRename    = "rename"
	MethodDropKey   = "drop_key"
	MethodAddValues = "add_values"
)

// ScenarioList wraps one Store and tracks mutation history. Every mutating
// method routes through the same dispatch path: run the mutation's plan
// against the next version, commit the version bump only on success, then
// append a history record.
type ScenarioList struct {
	store types.Store
}

// New wraps an existing store.
func New(store types.Store) *ScenarioList {
	return &ScenarioList{store: store}
}

// NewInMemory creates an empty list on a fresh in-memory store.
func NewInMemory() *ScenarioList {
	return New(memory.NewStore())
}

// Store exposes the underlying store, for sync and debugging. Ordinary
// reads should go through At.
func (l *ScenarioList) Store() types.Store {
	return l.store
}

// Version returns the current version counter.
func (l *ScenarioList) Version() (int, error) {
	return l.store.Version()
}

// Len returns the current number of records.
func (l *ScenarioList) Len() (int, error) {
	return l.store.GetLength(types.Latest)
}

// Append adds one record to the end of the list. Fails with ErrKeyDropped,
// before any state mutation, if the payload contains a dropped key.
func (l *ScenarioList) Append(payload types.Scenario) error {
	return l.mutate(MethodAppend, []any{map[string]any(payload)}, nil, plan.Append(payload))
}

// Rename registers a key rename applied at read time and to future appends.
// Already-stored rows are not touched.
func (l *ScenarioList) Rename(oldKey, newKey string) error {
	return l.mutate(MethodRename, []any{oldKey, newKey}, nil, plan.Rename(oldKey, newKey))
}

// DropKey registers a key drop applied at read time. Future appends
// containing the key are rejected.
func (l *ScenarioList) DropKey(key string) error {
	return l.mutate(MethodDropKey, []any{key}, nil, plan.DropKey(key))
}

// AddValues merges {key: values[i]} into the override of the record at
// position i. A shorter values slice leaves later positions untouched. The
// history record compacts the values to a count.
func (l *ScenarioList) AddValues(key string, values []any) error {
	args := []any{key, map[string]any{"_count": len(values)}}
	return l.mutate(MethodAddValues, args, nil, plan.AddValues(key, values))
}

// mutate is the single dispatch path for all mutating methods: version
// bump, plan execution, and history logging are applied here uniformly
// instead of being coded into each method. The version is committed only
// after the plan succeeds, so a failed validation leaves the list
// unchanged.
func (l *ScenarioList) mutate(method string, args []any, kwargs map[string]any, p *plan.Plan) error {
	current, err := l.store.Version()
	if err != nil {
		return err
	}
	next := current + 1

	ctx := &plan.Context{Version: next}
	if err := p.Run(l.store, ctx); err != nil {
		return err
	}
	if err := l.store.SetVersion(next); err != nil {
		return err
	}
	return l.store.AppendHistory(types.HistoryEntry{
		Version: next,
		Method:  method,
		Args:    args,
		Kwargs:  kwargs,
	})
}

// History returns the audit trail of mutating calls with version >
// fromVersion. Pass 0 for the full history.
func (l *ScenarioList) History(fromVersion int) ([]types.HistoryEntry, error) {
	return l.store.GetHistory(fromVersion)
}

// Scenarios returns the materialized list at the current version.
func (l *ScenarioList) Scenarios() ([]types.Scenario, error) {
	return l.store.GetMaterializedList(types.Latest)
}

// At returns a read-only view bound to a fixed version.
func (l *ScenarioList) At(version int) *View {
	return &View{store: l.store, version: version}
}

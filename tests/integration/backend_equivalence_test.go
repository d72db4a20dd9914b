// Cross-backend integration tests: the in-memory and SQLite backends must
// produce identical versions, digests, and materialized views for the same
// mutation sequence, and deltas exported by one must apply cleanly to the
// other.
package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/scenariolist/internal/sqlite"
	"github.com/mesh-intelligence/scenariolist/pkg/scenariolist"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// newSQLiteList creates a list on a fresh SQLite backend in a temp dir.
func newSQLiteList(t *testing.T) *scenariolist.ScenarioList {
	t.Helper()

	backend := sqlite.NewBackend()
	require.NoError(t, backend.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { _ = backend.Detach() })

	id, err := backend.CreateList()
	require.NoError(t, err)
	store, err := backend.List(id)
	require.NoError(t, err)
	return scenariolist.New(store)
}

// mutationStep applies one mutation to a list.
type mutationStep func(l *scenariolist.ScenarioList) error

// referenceSequence is the shared mutation script: appends, a rename, a
// drop, positional overrides, and an append after the rename. Number values
// are float64 so the in-memory backend matches SQLite's JSON round trip.
func referenceSequence() []mutationStep {
	return []mutationStep{
		func(l *scenariolist.ScenarioList) error {
			return l.Append(types.Scenario{"persona": "Alice", "likes": "sailing", "age": float64(30)})
		},
		func(l *scenariolist.ScenarioList) error {
			return l.Append(types.Scenario{"persona": "Bob", "likes": "chess", "age": float64(40)})
		},
		func(l *scenariolist.ScenarioList) error {
			return l.Rename("persona", "first_name")
		},
		func(l *scenariolist.ScenarioList) error {
			return l.Append(types.Scenario{"persona": "Carol", "age": float64(50)})
		},
		func(l *scenariolist.ScenarioList) error {
			return l.DropKey("likes")
		},
		func(l *scenariolist.ScenarioList) error {
			return l.AddValues("city", []any{"Lisbon", "Porto"})
		},
		func(l *scenariolist.ScenarioList) error {
			return l.AddValues("city", []any{"Faro"})
		},
	}
}

func TestBackends_MaterializeIdentically(t *testing.T) {
	mem := scenariolist.NewInMemory()
	sql := newSQLiteList(t)

	for i, step := range referenceSequence() {
		require.NoError(t, step(mem), "memory step %d", i)
		require.NoError(t, step(sql), "sqlite step %d", i)
	}

	memVersion, err := mem.Version()
	require.NoError(t, err)
	sqlVersion, err := sql.Version()
	require.NoError(t, err)
	require.Equal(t, memVersion, sqlVersion)

	// Every version checkpoint materializes identically, not just the head.
	for v := 0; v <= memVersion; v++ {
		memView, err := mem.At(v).Scenarios()
		require.NoError(t, err)
		sqlView, err := sql.At(v).Scenarios()
		require.NoError(t, err)
		assert.Equal(t, memView, sqlView, "version %d", v)

		memDigests, err := mem.Store().GetAllDigests(v)
		require.NoError(t, err)
		sqlDigests, err := sql.Store().GetAllDigests(v)
		require.NoError(t, err)
		require.Equal(t, len(memDigests), len(sqlDigests), "digest count at version %d", v)
		for i := range memDigests {
			assert.Equal(t, memDigests[i], sqlDigests[i], "digest %d at version %d", i, v)
		}
	}
}

func TestBackends_DeltaCrossApplies(t *testing.T) {
	mem := scenariolist.NewInMemory()
	for i, step := range referenceSequence() {
		require.NoError(t, step(mem), "step %d", i)
	}
	memVersion, err := mem.Version()
	require.NoError(t, err)

	delta, err := mem.Store().GetDelta(0, memVersion)
	require.NoError(t, err)

	// A memory-exported delta applied to a fresh SQLite list reproduces the
	// state exactly.
	sql := newSQLiteList(t)
	require.NoError(t, sql.Store().ApplyDelta(delta))

	sqlVersion, err := sql.Version()
	require.NoError(t, err)
	assert.Equal(t, memVersion, sqlVersion)

	want, err := mem.Scenarios()
	require.NoError(t, err)
	got, err := sql.Scenarios()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// And back: the SQLite copy round-trips to a second memory list.
	back, err := sql.Store().GetDelta(0, sqlVersion)
	require.NoError(t, err)
	mem2 := scenariolist.NewInMemory()
	require.NoError(t, mem2.Store().ApplyDelta(back))
	got2, err := mem2.Scenarios()
	require.NoError(t, err)
	assert.Equal(t, want, got2)
}

func TestBackends_HistoryMatches(t *testing.T) {
	mem := scenariolist.NewInMemory()
	sql := newSQLiteList(t)
	for i, step := range referenceSequence() {
		require.NoError(t, step(mem), "memory step %d", i)
		require.NoError(t, step(sql), "sqlite step %d", i)
	}

	memHistory, err := mem.History(0)
	require.NoError(t, err)
	sqlHistory, err := sql.History(0)
	require.NoError(t, err)

	require.Equal(t, len(memHistory), len(sqlHistory))
	for i := range memHistory {
		assert.Equal(t, memHistory[i].Version, sqlHistory[i].Version, "entry %d", i)
		assert.Equal(t, memHistory[i].Method, sqlHistory[i].Method, "entry %d", i)
	}
}

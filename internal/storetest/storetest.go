// Package storetest provides the shared contract test suite for Store
// implementations. Both backends run the same suite, which is what enforces
// the cross-backend equivalence guarantee: the op-plan layer defines
// mutation semantics, so two stores that satisfy this contract materialize
// identical views for identical mutation sequences.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// Factory creates a fresh, empty store for one subtest.
type Factory func(t *testing.T) types.Store

// Run executes the Store contract suite against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, factory(t)) })
	t.Run("VersionCounter", func(t *testing.T) { testVersionCounter(t, factory(t)) })
	t.Run("MetaSparseVersioning", func(t *testing.T) { testMetaSparseVersioning(t, factory(t)) })
	t.Run("InsertAndRead", func(t *testing.T) { testInsertAndRead(t, factory(t)) })
	t.Run("DigestRecomputed", func(t *testing.T) { testDigestRecomputed(t, factory(t)) })
	t.Run("DeltaDigestRecomputed", func(t *testing.T) { testDeltaDigestRecomputed(t, factory(t)) })
	t.Run("VersionedLength", func(t *testing.T) { testVersionedLength(t, factory(t)) })
	t.Run("OverrideResolution", func(t *testing.T) { testOverrideResolution(t, factory(t)) })
	t.Run("MaterializedView", func(t *testing.T) { testMaterializedView(t, factory(t)) })
	t.Run("History", func(t *testing.T) { testHistory(t, factory(t)) })
	t.Run("DeltaRoundTrip", func(t *testing.T) { testDeltaRoundTrip(t, factory(t), factory(t)) })
	t.Run("DeltaConflict", func(t *testing.T) { testDeltaConflict(t, factory(t)) })
}

func testEmptyStore(t *testing.T, s types.Store) {
	version, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	length, err := s.GetLength(types.Latest)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	meta, err := s.GetMeta(types.Latest)
	require.NoError(t, err)
	assert.Empty(t, meta.Rename)
	assert.Empty(t, meta.Drop)

	_, err = s.GetScenario(0, types.Latest)
	assert.ErrorIs(t, err, types.ErrPositionOutOfRange)
}

func testVersionCounter(t *testing.T, s types.Store) {
	require.NoError(t, s.SetVersion(1))
	version, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func testMetaSparseVersioning(t *testing.T, s types.Store) {
	m1 := types.NewMeta()
	m1.Rename["a"] = "b"
	require.NoError(t, s.SetMeta(m1, 1))

	m2 := m1.Clone()
	m2.Drop = append(m2.Drop, "c")
	require.NoError(t, s.SetMeta(m2, 4))
	require.NoError(t, s.SetVersion(5))

	// Versions between stored rows resolve to the highest row <= query.
	for _, at := range []int{1, 2, 3} {
		meta, err := s.GetMeta(at)
		require.NoError(t, err)
		assert.Equal(t, "b", meta.Rename["a"], "at version %d", at)
		assert.Empty(t, meta.Drop, "at version %d", at)
	}
	meta, err := s.GetMeta(types.Latest)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, meta.Drop)

	// Before the first row: empty meta.
	meta, err = s.GetMeta(0)
	require.NoError(t, err)
	assert.Empty(t, meta.Rename)
}

func testInsertAndRead(t *testing.T, s types.Store) {
	payload := types.Scenario{"persona": "Alice", "likes": "sailing"}
	require.NoError(t, s.InsertScenario(0, payload, 1))
	require.NoError(t, s.SetVersion(1))

	got, digest, err := s.GetScenarioWithDigest(0, types.Latest)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got["persona"])
	assert.NotEmpty(t, digest)

	wantDigest, err := payload.Digest()
	require.NoError(t, err)
	assert.Equal(t, wantDigest, digest)

	atPos, err := s.GetDigestAtPosition(0, types.Latest)
	require.NoError(t, err)
	assert.Equal(t, digest, atPos)

	digests, err := s.GetAllDigests(types.Latest)
	require.NoError(t, err)
	assert.Equal(t, []string{digest}, digests)

	all, err := s.GetAllScenarios(types.Latest)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "sailing", all[0]["likes"])
}

func testDigestRecomputed(t *testing.T, s types.Store) {
	// A forged embedded digest is silently corrected: the backend indexes
	// by the digest recomputed from the payload.
	payload := types.Scenario{"persona": "Alice", "_digest": "forged"}
	require.NoError(t, s.InsertScenario(0, payload, 1))
	require.NoError(t, s.SetVersion(1))

	digest, err := s.GetDigestAtPosition(0, types.Latest)
	require.NoError(t, err)
	want, err := types.Scenario{"persona": "Alice"}.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, digest)
}

func testDeltaDigestRecomputed(t *testing.T, s types.Store) {
	// Deltas arrive over the wire, so their digests are as untrusted as an
	// embedded one: applying a delta whose digest does not match its payload
	// must store the recomputed digest.
	delta := &types.Delta{
		FromVersion: 0,
		ToVersion:   1,
		Scenarios: []types.StoredScenario{
			{Position: 0, Digest: "forged", VersionAdded: 1, Payload: types.Scenario{"persona": "Alice"}},
		},
	}
	require.NoError(t, s.ApplyDelta(delta))

	digest, err := s.GetDigestAtPosition(0, types.Latest)
	require.NoError(t, err)
	want, err := types.Scenario{"persona": "Alice"}.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, digest)
}

func testVersionedLength(t *testing.T, s types.Store) {
	require.NoError(t, s.InsertScenario(0, types.Scenario{"n": float64(1)}, 1))
	require.NoError(t, s.InsertScenario(1, types.Scenario{"n": float64(2)}, 2))
	require.NoError(t, s.SetVersion(2))

	for at, want := range map[int]int{0: 0, 1: 1, 2: 2} {
		length, err := s.GetLength(at)
		require.NoError(t, err)
		assert.Equal(t, want, length, "at version %d", at)
	}

	// Reading position 1 at version 1 is out of range.
	_, err := s.GetScenario(1, 1)
	assert.ErrorIs(t, err, types.ErrPositionOutOfRange)
}

func testOverrideResolution(t *testing.T, s types.Store) {
	digest := "d0"
	require.NoError(t, s.SetOverride(digest, types.Scenario{"k": "v1"}, 2))
	require.NoError(t, s.SetOverride(digest, types.Scenario{"k": "v2"}, 5))
	require.NoError(t, s.SetVersion(5))

	_, ok, err := s.GetOverride(digest, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, at := range []int{2, 3, 4} {
		ov, ok, err := s.GetOverride(digest, at)
		require.NoError(t, err)
		require.True(t, ok, "at version %d", at)
		assert.Equal(t, "v1", ov["k"], "at version %d", at)
	}

	ov, ok, err := s.GetOverride(digest, types.Latest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", ov["k"])

	_, ok, err = s.GetOverride("unknown", types.Latest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testMaterializedView(t *testing.T, s types.Store) {
	payload := types.Scenario{"persona": "Alice", "likes": "sailing"}
	digest, err := payload.Digest()
	require.NoError(t, err)
	withDigest := payload.Clone()
	withDigest["_digest"] = digest

	require.NoError(t, s.InsertScenario(0, withDigest, 1))

	meta := types.NewMeta()
	meta.Rename["persona"] = "first_name"
	meta.Drop = append(meta.Drop, "likes")
	require.NoError(t, s.SetMeta(meta, 2))
	require.NoError(t, s.SetOverride(digest, types.Scenario{"age": float64(30)}, 3))
	require.NoError(t, s.SetVersion(3))

	// At version 1: raw record, digest stripped, no transforms yet.
	got, err := s.GetMaterializedScenario(0, 1)
	require.NoError(t, err)
	assert.Equal(t, types.Scenario{"persona": "Alice", "likes": "sailing"}, got)

	// At version 2: rename and drop applied.
	got, err = s.GetMaterializedScenario(0, 2)
	require.NoError(t, err)
	assert.Equal(t, types.Scenario{"first_name": "Alice"}, got)

	// At version 3: override merged on top.
	got, err = s.GetMaterializedScenario(0, types.Latest)
	require.NoError(t, err)
	assert.Equal(t, types.Scenario{"first_name": "Alice", "age": float64(30)}, got)

	list, err := s.GetMaterializedList(types.Latest)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, got, list[0])
}

func testHistory(t *testing.T, s types.Store) {
	entries := []types.HistoryEntry{
		{Version: 1, Method: "append", Args: []any{map[string]any{"k": "v"}}},
		{Version: 2, Method: "rename", Args: []any{"old", "new"}},
		{Version: 3, Method: "add_values", Args: []any{"k", map[string]any{"_count": float64(2)}}},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendHistory(e))
	}
	require.NoError(t, s.SetVersion(3))

	all, err := s.GetHistory(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "append", all[0].Method)
	assert.Equal(t, "rename", all[1].Method)

	tail, err := s.GetHistory(2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "add_values", tail[0].Method)
	assert.Equal(t, 3, tail[0].Version)
}

// testDeltaRoundTrip checks the delta law: applying get_delta(v1, v2) to a
// store at v1 reproduces the source's materialized output at v2.
func testDeltaRoundTrip(t *testing.T, source, target types.Store) {
	seedStore(t, source)

	version, err := source.Version()
	require.NoError(t, err)

	delta, err := source.GetDelta(0, version)
	require.NoError(t, err)
	assert.Equal(t, 0, delta.FromVersion)
	assert.Equal(t, version, delta.ToVersion)

	require.NoError(t, target.ApplyDelta(delta))

	targetVersion, err := target.Version()
	require.NoError(t, err)
	assert.Equal(t, version, targetVersion)

	for at := 0; at <= version; at++ {
		want, err := source.GetMaterializedList(at)
		require.NoError(t, err)
		got, err := target.GetMaterializedList(at)
		require.NoError(t, err)
		assert.Equal(t, want, got, "materialized mismatch at version %d", at)
	}

	wantHistory, err := source.GetHistory(0)
	require.NoError(t, err)
	gotHistory, err := target.GetHistory(0)
	require.NoError(t, err)
	assert.Equal(t, wantHistory, gotHistory)
}

func testDeltaConflict(t *testing.T, s types.Store) {
	delta := &types.Delta{FromVersion: 3, ToVersion: 4}
	err := s.ApplyDelta(delta)
	assert.ErrorIs(t, err, types.ErrVersionConflict)

	// The store is untouched.
	version, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

// seedStore drives a store through a representative mutation sequence using
// raw store calls (one version per step, like the facade would).
func seedStore(t *testing.T, s types.Store) {
	t.Helper()

	insert := func(position, version int, payload types.Scenario) {
		digest, err := payload.Digest()
		require.NoError(t, err)
		withDigest := payload.Clone()
		withDigest["_digest"] = digest
		require.NoError(t, s.InsertScenario(position, withDigest, version))
		require.NoError(t, s.SetVersion(version))
		require.NoError(t, s.AppendHistory(types.HistoryEntry{
			Version: version,
			Method:  "append",
			Args:    []any{map[string]any(payload)},
		}))
	}

	insert(0, 1, types.Scenario{"persona": "Alice", "likes": "sailing"})
	insert(1, 2, types.Scenario{"persona": "Bob", "likes": "chickens"})

	meta := types.NewMeta()
	meta.Rename["persona"] = "first_name"
	require.NoError(t, s.SetMeta(meta, 3))
	require.NoError(t, s.SetVersion(3))
	require.NoError(t, s.AppendHistory(types.HistoryEntry{
		Version: 3,
		Method:  "rename",
		Args:    []any{"persona", "first_name"},
	}))

	digest, err := s.GetDigestAtPosition(0, types.Latest)
	require.NoError(t, err)
	require.NoError(t, s.SetOverride(digest, types.Scenario{"likes": "rowing"}, 4))
	require.NoError(t, s.SetVersion(4))
	require.NoError(t, s.AppendHistory(types.HistoryEntry{
		Version: 4,
		Method:  "add_values",
		Args:    []any{"likes", map[string]any{"_count": float64(1)}},
	}))
}

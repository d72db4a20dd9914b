package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/scenariolist/internal/memory"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// run executes a plan at the store's next version and, on success, commits
// the version bump the way the facade does.
func run(t *testing.T, s types.Store, p *Plan) error {
	t.Helper()

	current, err := s.Version()
	require.NoError(t, err)
	ctx := &Context{Version: current + 1}
	if err := p.Run(s, ctx); err != nil {
		return err
	}
	require.NoError(t, s.SetVersion(current+1))
	return nil
}

func TestAppendPlan(t *testing.T) {
	s := memory.NewStore()

	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Alice"})))
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Bob"})))

	length, err := s.GetLength(types.Latest)
	require.NoError(t, err)
	assert.Equal(t, 2, length)

	// Positions are assigned append-only and the payload carries its digest.
	raw, digest, err := s.GetScenarioWithDigest(1, types.Latest)
	require.NoError(t, err)
	assert.Equal(t, "Bob", raw["persona"])
	assert.Equal(t, digest, raw["_digest"])

	want, err := types.Scenario{"persona": "Bob"}.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, digest)
}

func TestAppendPlan_AppliesPendingRename(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, run(t, s, Rename("persona", "first_name")))

	// A record appended after the rename is stored under the new key.
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Alice"})))

	raw, err := s.GetScenario(0, types.Latest)
	require.NoError(t, err)
	assert.Equal(t, "Alice", raw["first_name"])
	assert.NotContains(t, raw, "persona")

	// Its digest matches the renamed content, so it joins override history
	// with records appended under the new key directly.
	want, err := types.Scenario{"first_name": "Alice"}.Digest()
	require.NoError(t, err)
	digest, err := s.GetDigestAtPosition(0, types.Latest)
	require.NoError(t, err)
	assert.Equal(t, want, digest)
}

func TestAppendPlan_RejectsDroppedKey(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, run(t, s, DropKey("likes")))

	err := run(t, s, Append(types.Scenario{"persona": "Alice", "likes": "sailing"}))
	require.ErrorIs(t, err, types.ErrKeyDropped)

	// Validation precedes persistence: nothing was stored and the version
	// is unchanged.
	length, err := s.GetLength(types.Latest)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
	version, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestRenamePlan_DoesNotTouchStoredRows(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Alice"})))
	require.NoError(t, run(t, s, Rename("persona", "first_name")))

	// Raw storage still carries the old key; only reads transform.
	raw, err := s.GetScenario(0, types.Latest)
	require.NoError(t, err)
	assert.Contains(t, raw, "persona")

	got, err := s.GetMaterializedScenario(0, types.Latest)
	require.NoError(t, err)
	assert.Equal(t, types.Scenario{"first_name": "Alice"}, got)
}

func TestAddValuesPlan(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Alice"})))
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Bob"})))
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Carol"})))

	// Shorter values only override the first len(values) positions.
	require.NoError(t, run(t, s, AddValues("age", []any{float64(30), float64(40)})))

	got, err := s.GetMaterializedList(types.Latest)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, float64(30), got[0]["age"])
	assert.Equal(t, float64(40), got[1]["age"])
	assert.NotContains(t, got[2], "age")
}

func TestAddValuesPlan_LastWriteWins(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Alice"})))

	require.NoError(t, run(t, s, AddValues("age", []any{float64(30)})))
	require.NoError(t, run(t, s, AddValues("age", []any{float64(31)})))

	got, err := s.GetMaterializedScenario(0, types.Latest)
	require.NoError(t, err)
	assert.Equal(t, float64(31), got["age"])

	// The earlier override is still visible at its own version.
	got, err = s.GetMaterializedScenario(0, 2)
	require.NoError(t, err)
	assert.Equal(t, float64(30), got["age"])
}

func TestAddValuesPlan_SharedDigest(t *testing.T) {
	s := memory.NewStore()

	// Two records with identical content share a digest and therefore
	// share override history.
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Alice"})))
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Alice"})))

	require.NoError(t, run(t, s, AddValues("age", []any{float64(30)})))

	got, err := s.GetMaterializedList(types.Latest)
	require.NoError(t, err)
	assert.Equal(t, float64(30), got[0]["age"])
	assert.Equal(t, float64(30), got[1]["age"])
}

func TestAddValuesPlan_ExtraValuesIgnored(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, run(t, s, Append(types.Scenario{"persona": "Alice"})))

	require.NoError(t, run(t, s, AddValues("age", []any{float64(30), float64(40), float64(50)})))

	got, err := s.GetMaterializedList(types.Latest)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, float64(30), got[0]["age"])
}

func TestDropKeyPlan_Idempotent(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, run(t, s, DropKey("likes")))
	require.NoError(t, run(t, s, DropKey("likes")))

	meta, err := s.GetMeta(types.Latest)
	require.NoError(t, err)
	assert.Equal(t, []string{"likes"}, meta.Drop)
}

package scenariolist_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/scenariolist/internal/logger"
	"github.com/mesh-intelligence/scenariolist/internal/server"
	"github.com/mesh-intelligence/scenariolist/internal/sqlite"
	"github.com/mesh-intelligence/scenariolist/pkg/scenariolist"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// newSyncServer starts an HTTP sync server over a fresh SQLite backend and
// returns a client pointed at it.
func newSyncServer(t *testing.T) *scenariolist.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := sqlite.NewBackend()
	require.NoError(t, backend.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { _ = backend.Detach() })

	ts := httptest.NewServer(server.New(backend, logger.NewNop()).Router())
	t.Cleanup(ts.Close)
	return scenariolist.NewClient(ts.URL)
}

func TestClient_CreateListAndInfo(t *testing.T) {
	client := newSyncServer(t)
	ctx := context.Background()

	info, err := client.CreateList(ctx, []types.Scenario{
		{"persona": "Alice"},
		{"persona": "Bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, info.Version)
	assert.Equal(t, 2, info.Length)

	got, err := client.Info(ctx, info.ListID)
	require.NoError(t, err)
	assert.Equal(t, info.ListID, got.ListID)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 2, got.Length)
}

func TestPushPull_RoundTrip(t *testing.T) {
	client := newSyncServer(t)
	ctx := context.Background()

	info, err := client.CreateList(ctx, nil)
	require.NoError(t, err)

	local := scenariolist.NewInMemory()
	require.NoError(t, local.Append(types.Scenario{"persona": "Alice"}))
	require.NoError(t, local.Append(types.Scenario{"persona": "Bob"}))
	require.NoError(t, local.Rename("persona", "first_name"))
	require.NoError(t, local.AddValues("age", []any{float64(30)}))

	status, err := local.Push(ctx, client, info.ListID, 0)
	require.NoError(t, err)
	assert.Equal(t, scenariolist.StatusSuccess, status)

	// A fresh replica pulled from the remote materializes identically.
	replica, err := scenariolist.FromRemote(ctx, client, info.ListID)
	require.NoError(t, err)

	want, err := local.Scenarios()
	require.NoError(t, err)
	got, err := replica.Scenarios()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	localVersion, err := local.Version()
	require.NoError(t, err)
	replicaVersion, err := replica.Version()
	require.NoError(t, err)
	assert.Equal(t, localVersion, replicaVersion)
}

func TestPull_UpToDate(t *testing.T) {
	client := newSyncServer(t)
	ctx := context.Background()

	info, err := client.CreateList(ctx, []types.Scenario{{"persona": "Alice"}})
	require.NoError(t, err)

	replica, err := scenariolist.FromRemote(ctx, client, info.ListID)
	require.NoError(t, err)

	status, err := replica.Pull(ctx, client, info.ListID)
	require.NoError(t, err)
	assert.Equal(t, scenariolist.StatusUpToDate, status)
}

func TestPush_ConflictThenRetry(t *testing.T) {
	client := newSyncServer(t)
	ctx := context.Background()

	info, err := client.CreateList(ctx, nil)
	require.NoError(t, err)

	alice, err := scenariolist.FromRemote(ctx, client, info.ListID)
	require.NoError(t, err)
	bob, err := scenariolist.FromRemote(ctx, client, info.ListID)
	require.NoError(t, err)

	require.NoError(t, alice.Append(types.Scenario{"persona": "Alice"}))
	status, err := alice.Push(ctx, client, info.ListID, 0)
	require.NoError(t, err)
	require.Equal(t, scenariolist.StatusSuccess, status)

	// Bob pushes from a stale base: the server reports a conflict instead
	// of applying anything.
	require.NoError(t, bob.Append(types.Scenario{"persona": "Bob"}))
	status, err = bob.Push(ctx, client, info.ListID, 0)
	require.NoError(t, err)
	assert.Equal(t, scenariolist.StatusConflict, status)

	remote, err := client.Info(ctx, info.ListID)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.Version)
}

func TestPush_MissingListFails(t *testing.T) {
	client := newSyncServer(t)
	ctx := context.Background()

	local := scenariolist.NewInMemory()
	require.NoError(t, local.Append(types.Scenario{"persona": "Alice"}))

	_, err := local.Push(ctx, client, 999, 0)
	require.Error(t, err)
}

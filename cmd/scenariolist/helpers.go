// Shared helpers for scenariolist CLI commands.
package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/scenariolist/internal/paths"
	"github.com/mesh-intelligence/scenariolist/internal/sqlite"
	"github.com/mesh-intelligence/scenariolist/pkg/scenariolist"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// localListID is the ID of the CLI's local working list inside the
// database. Created by "scenariolist init".
const localListID int64 = 1

// resolveConfig loads config.yaml from the resolved config directory.
func resolveConfig() (*viper.Viper, error) {
	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return loadConfig(configDir)
}

// attachBackend resolves the data directory, creates a SQLite backend, and
// attaches it. The caller must defer backend.Detach().
func attachBackend() (*sqlite.Backend, error) {
	v, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.ResolveDataDir(flagDataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	backend := sqlite.NewBackend()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dataDir}
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return backend, nil
}

// openLocalList attaches the backend and opens the local working list.
// The caller must defer backend.Detach().
func openLocalList() (*sqlite.Backend, *scenariolist.ScenarioList, error) {
	backend, err := attachBackend()
	if err != nil {
		return nil, nil, err
	}
	store, err := backend.List(localListID)
	if err != nil {
		backend.Detach()
		if err == types.ErrListNotFound {
			return nil, nil, fmt.Errorf("no local list found; run \"scenariolist init\" first")
		}
		return nil, nil, err
	}
	return backend, scenariolist.New(store), nil
}

// remoteClient builds the sync client from config or the --remote flag
// value, flag winning.
func remoteClient(flagRemote string) (*scenariolist.Client, error) {
	if flagRemote != "" {
		return scenariolist.NewClient(flagRemote), nil
	}
	v, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	url := v.GetString(cfgKeyRemoteURL)
	if url == "" {
		return nil, fmt.Errorf("no remote URL; set remote_url in config.yaml or pass --remote")
	}
	return scenariolist.NewClient(url), nil
}

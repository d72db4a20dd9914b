// Package sqlite implements the SQLite storage backend for scenario lists.
// One database file holds any number of lists keyed by integer list_id;
// every table carries the version column that joins scenarios, meta,
// overrides, and history.
package sqlite

// Schema DDL for all tables.
const (
	createScenarioLists = `CREATE TABLE IF NOT EXISTS scenario_lists (
    list_id INTEGER PRIMARY KEY AUTOINCREMENT,
    version INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);`

	createScenarios = `CREATE TABLE IF NOT EXISTS scenarios (
    list_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    digest TEXT NOT NULL,
    version_added INTEGER NOT NULL,
    payload TEXT NOT NULL,
    PRIMARY KEY (list_id, position),
    FOREIGN KEY (list_id) REFERENCES scenario_lists(list_id)
);`

	createMeta = `CREATE TABLE IF NOT EXISTS scenario_list_meta (
    list_id INTEGER NOT NULL,
    version INTEGER NOT NULL,
    meta TEXT NOT NULL,
    PRIMARY KEY (list_id, version),
    FOREIGN KEY (list_id) REFERENCES scenario_lists(list_id)
);`

	createOverrides = `CREATE TABLE IF NOT EXISTS scenario_list_overrides (
    list_id INTEGER NOT NULL,
    digest TEXT NOT NULL,
    version INTEGER NOT NULL,
    payload TEXT NOT NULL,
    PRIMARY KEY (list_id, digest, version),
    FOREIGN KEY (list_id) REFERENCES scenario_lists(list_id)
);`

	createHistory = `CREATE TABLE IF NOT EXISTS scenario_list_history (
    list_id INTEGER NOT NULL,
    version INTEGER NOT NULL,
    method_name TEXT NOT NULL,
    args TEXT NOT NULL,
    kwargs TEXT NOT NULL,
    PRIMARY KEY (list_id, version),
    FOREIGN KEY (list_id) REFERENCES scenario_lists(list_id)
);`

	createSnapshots = `CREATE TABLE IF NOT EXISTS scenario_list_snapshots (
    snapshot_id TEXT PRIMARY KEY,
    list_id INTEGER NOT NULL,
    version INTEGER NOT NULL,
    scenarios TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (list_id) REFERENCES scenario_lists(list_id)
);`

	createScenariosVersionIndex = `CREATE INDEX IF NOT EXISTS idx_scenarios_list_version
    ON scenarios(list_id, version_added);`
)

// schemaStatements lists the DDL in execution order.
var schemaStatements = []string{
	createScenarioLists,
	createScenarios,
	createMeta,
	createOverrides,
	createHistory,
	createSnapshots,
	createScenariosVersionIndex,
}

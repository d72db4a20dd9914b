package types

// StoredScenario is one raw record as persisted: its append position, the
// digest the backend computed for it, the version at which it was added,
// and the payload (which carries its own "_digest" entry).
type StoredScenario struct {
	Position     int      `json:"position"`
	Digest       string   `json:"digest"`
	VersionAdded int      `json:"version_added"`
	Payload      Scenario `json:"payload"`
}

// MetaChange is one versioned meta row. Meta is stored sparsely: one row per
// version in which it changed.
type MetaChange struct {
	Version int  `json:"version"`
	Meta    Meta `json:"meta"`
}

// OverrideChange is one versioned override row: a digest-keyed partial
// record recorded at a specific version.
type OverrideChange struct {
	Digest  string   `json:"digest"`
	Version int      `json:"version"`
	Payload Scenario `json:"payload"`
}

// HistoryEntry is the audit record of one mutating call.
// For add_values the args are compacted to (key, {"_count": n}) so large
// value lists are not stored twice.
type HistoryEntry struct {
	Version int            `json:"version"`
	Method  string         `json:"method_name"`
	Args    []any          `json:"args"`
	Kwargs  map[string]any `json:"kwargs"`
}

// Delta is the flat set of versioned changes between two versions, used for
// push/pull synchronization. It contains every scenario, meta change,
// override, and history entry whose version falls in
// (FromVersion, ToVersion].
type Delta struct {
	FromVersion int              `json:"from_version"`
	ToVersion   int              `json:"to_version"`
	Scenarios   []StoredScenario `json:"scenarios"`
	MetaChanges []MetaChange     `json:"meta_changes"`
	Overrides   []OverrideChange `json:"overrides"`
	History     []HistoryEntry   `json:"history"`
}

// Empty reports whether the delta carries no changes.
func (d *Delta) Empty() bool {
	return len(d.Scenarios) == 0 && len(d.MetaChanges) == 0 &&
		len(d.Overrides) == 0 && len(d.History) == 0
}

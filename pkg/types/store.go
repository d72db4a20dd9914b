package types

import "errors"

// Latest selects the current version in read calls that take an atVersion
// parameter.
const Latest = -1

// Store is the backend contract for one scenario list. Two implementations
// exist (in-memory and SQLite); the op-plan layer is the single source of
// truth for mutation semantics, and backends only persist. All reads are
// parameterized by "as of version"; pass Latest for the current version.
type Store interface {
	// Version returns the current version counter. A new list starts at 0.
	Version() (int, error)

	// SetVersion records v as the current version. Callers bump the version
	// by exactly 1 per mutating call, after the mutation's plan succeeds.
	SetVersion(v int) error

	// GetMeta returns the meta active at the given version: the stored meta
	// with the highest version <= atVersion, or an empty Meta if none.
	GetMeta(atVersion int) (Meta, error)

	// SetMeta stores meta as the meta row for the given version.
	SetMeta(meta Meta, version int) error

	// InsertScenario persists a raw record at the given position and
	// version. The payload already carries its computed "_digest"; the
	// backend recomputes the digest from the payload for storage.
	InsertScenario(position int, payload Scenario, version int) error

	// GetScenario returns the raw payload at position, as of atVersion.
	// Returns ErrPositionOutOfRange if no record with
	// version_added <= atVersion exists at that position.
	GetScenario(position, atVersion int) (Scenario, error)

	// GetScenarioWithDigest returns the raw payload and its stored digest.
	GetScenarioWithDigest(position, atVersion int) (Scenario, string, error)

	// GetDigestAtPosition returns the stored digest at position.
	GetDigestAtPosition(position, atVersion int) (string, error)

	// GetAllDigests returns the stored digests in position order.
	GetAllDigests(atVersion int) ([]string, error)

	// GetAllScenarios returns the raw payloads in position order.
	GetAllScenarios(atVersion int) ([]Scenario, error)

	// GetLength returns the number of records with version_added <= atVersion.
	GetLength(atVersion int) (int, error)

	// SetOverride records payload as the override for digest at version.
	SetOverride(digest string, payload Scenario, version int) error

	// GetOverride returns the override for digest with the highest version
	// <= atVersion. The second return is false if no override applies.
	GetOverride(digest string, atVersion int) (Scenario, bool, error)

	// GetMaterializedScenario composes raw record, meta, and override into
	// the final view returned to callers.
	GetMaterializedScenario(position, atVersion int) (Scenario, error)

	// GetMaterializedList materializes every position as of atVersion.
	GetMaterializedList(atVersion int) ([]Scenario, error)

	// AppendHistory records one mutating call in the audit trail.
	AppendHistory(entry HistoryEntry) error

	// GetHistory returns history entries with version > fromVersion.
	GetHistory(fromVersion int) ([]HistoryEntry, error)

	// GetDelta exports every change whose version is in
	// (fromVersion, toVersion].
	GetDelta(fromVersion, toVersion int) (*Delta, error)

	// ApplyDelta applies a delta exported by GetDelta. Returns
	// ErrVersionConflict if the store's current version does not equal the
	// delta's FromVersion; no partial or reordered application is supported.
	ApplyDelta(delta *Delta) error
}

// Store operation errors.
var (
	ErrKeyDropped         = errors.New("key is registered as dropped")
	ErrVersionConflict    = errors.New("delta from_version does not match current version")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrListNotFound       = errors.New("list not found")
)

// Backend lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

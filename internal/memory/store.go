// Package memory implements the process-local, in-memory Store backend.
// It keeps every versioned row in plain slices and maps, mirroring the
// SQLite schema shape so both backends materialize identical views.
package memory

import (
	"sort"
	"sync"

	"github.com/mesh-intelligence/scenariolist/pkg/canonical"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// Compile-time interface check: Store must implement types.Store.
var _ types.Store = (*Store)(nil)

// Store holds one scenario list entirely in memory. Safe for concurrent
// readers and writers; mutation semantics still assume one writer at a time
// (version bumps are managed by the facade, not the store).
type Store struct {
	mu        sync.RWMutex
	version   int
	scenarios []types.StoredScenario
	metas     []types.MetaChange
	overrides map[string][]types.OverrideChange
	history   []types.HistoryEntry
}

// NewStore returns an empty store at version 0.
func NewStore() *Store {
	return &Store{overrides: make(map[string][]types.OverrideChange)}
}

// Version returns the current version counter.
func (s *Store) Version() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

// SetVersion records v as the current version.
func (s *Store) SetVersion(v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
	return nil
}

// resolveLocked maps the Latest sentinel to the current version.
// The caller must hold s.mu.
func (s *Store) resolveLocked(atVersion int) int {
	if atVersion == types.Latest {
		return s.version
	}
	return atVersion
}

// GetMeta returns the meta with the highest version <= atVersion, or an
// empty meta if none has been stored yet.
func (s *Store) GetMeta(atVersion int) (types.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at := s.resolveLocked(atVersion)
	best := types.NewMeta()
	bestVersion := -1
	for _, mc := range s.metas {
		if mc.Version <= at && mc.Version > bestVersion {
			best = mc.Meta
			bestVersion = mc.Version
		}
	}
	return best.Clone(), nil
}

// SetMeta stores meta as the row for the given version, replacing any row
// already stored at that version.
func (s *Store) SetMeta(meta types.Meta, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, mc := range s.metas {
		if mc.Version == version {
			s.metas[i].Meta = meta.Clone()
			return nil
		}
	}
	s.metas = append(s.metas, types.MetaChange{Version: version, Meta: meta.Clone()})
	return nil
}

// InsertScenario persists a raw record. The digest is recomputed from the
// payload (excluding "_digest") rather than trusting the embedded value.
func (s *Store) InsertScenario(position int, payload types.Scenario, version int) error {
	digest, err := canonical.Digest(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, types.StoredScenario{
		Position:     position,
		Digest:       digest,
		VersionAdded: version,
		Payload:      payload.Clone(),
	})
	return nil
}

// rowAtLocked finds the stored record at position visible at the resolved
// version. The caller must hold s.mu.
func (s *Store) rowAtLocked(position, at int) (types.StoredScenario, bool) {
	for _, sc := range s.scenarios {
		if sc.Position == position && sc.VersionAdded <= at {
			return sc, true
		}
	}
	return types.StoredScenario{}, false
}

// GetScenario returns the raw payload at position as of atVersion.
func (s *Store) GetScenario(position, atVersion int) (types.Scenario, error) {
	sc, _, err := s.GetScenarioWithDigest(position, atVersion)
	return sc, err
}

// GetScenarioWithDigest returns the raw payload and stored digest.
func (s *Store) GetScenarioWithDigest(position, atVersion int) (types.Scenario, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rowAtLocked(position, s.resolveLocked(atVersion))
	if !ok {
		return nil, "", types.ErrPositionOutOfRange
	}
	return row.Payload.Clone(), row.Digest, nil
}

// GetDigestAtPosition returns the stored digest at position.
func (s *Store) GetDigestAtPosition(position, atVersion int) (string, error) {
	_, digest, err := s.GetScenarioWithDigest(position, atVersion)
	return digest, err
}

// GetAllDigests returns stored digests in position order.
func (s *Store) GetAllDigests(atVersion int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.rowsLocked(s.resolveLocked(atVersion))
	digests := make([]string, len(rows))
	for i, row := range rows {
		digests[i] = row.Digest
	}
	return digests, nil
}

// GetAllScenarios returns raw payloads in position order.
func (s *Store) GetAllScenarios(atVersion int) ([]types.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.rowsLocked(s.resolveLocked(atVersion))
	out := make([]types.Scenario, len(rows))
	for i, row := range rows {
		out[i] = row.Payload.Clone()
	}
	return out, nil
}

// rowsLocked returns the visible rows sorted by position.
// The caller must hold s.mu.
func (s *Store) rowsLocked(at int) []types.StoredScenario {
	var rows []types.StoredScenario
	for _, sc := range s.scenarios {
		if sc.VersionAdded <= at {
			rows = append(rows, sc)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	return rows
}

// GetLength returns the number of records visible at atVersion.
func (s *Store) GetLength(atVersion int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at := s.resolveLocked(atVersion)
	count := 0
	for _, sc := range s.scenarios {
		if sc.VersionAdded <= at {
			count++
		}
	}
	return count, nil
}

// SetOverride records payload as the override for digest at version.
func (s *Store) SetOverride(digest string, payload types.Scenario, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.overrides[digest]
	for i, rec := range recs {
		if rec.Version == version {
			recs[i].Payload = payload.Clone()
			return nil
		}
	}
	s.overrides[digest] = append(recs, types.OverrideChange{
		Digest:  digest,
		Version: version,
		Payload: payload.Clone(),
	})
	return nil
}

// GetOverride returns the override for digest with the highest version
// <= atVersion, or false if none applies.
func (s *Store) GetOverride(digest string, atVersion int) (types.Scenario, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at := s.resolveLocked(atVersion)
	var best types.Scenario
	bestVersion := -1
	for _, rec := range s.overrides[digest] {
		if rec.Version <= at && rec.Version > bestVersion {
			best = rec.Payload
			bestVersion = rec.Version
		}
	}
	if bestVersion < 0 {
		return nil, false, nil
	}
	return best.Clone(), true, nil
}

// GetMaterializedScenario composes raw record, meta, and override into the
// final view.
func (s *Store) GetMaterializedScenario(position, atVersion int) (types.Scenario, error) {
	raw, digest, err := s.GetScenarioWithDigest(position, atVersion)
	if err != nil {
		return nil, err
	}
	meta, err := s.GetMeta(atVersion)
	if err != nil {
		return nil, err
	}
	override, _, err := s.GetOverride(digest, atVersion)
	if err != nil {
		return nil, err
	}
	return types.Materialize(raw, meta, override), nil
}

// GetMaterializedList materializes every position as of atVersion.
func (s *Store) GetMaterializedList(atVersion int) ([]types.Scenario, error) {
	length, err := s.GetLength(atVersion)
	if err != nil {
		return nil, err
	}
	out := make([]types.Scenario, 0, length)
	for i := 0; i < length; i++ {
		sc, err := s.GetMaterializedScenario(i, atVersion)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// AppendHistory records one mutating call.
func (s *Store) AppendHistory(entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	return nil
}

// GetHistory returns entries with version > fromVersion, in order.
func (s *Store) GetHistory(fromVersion int) ([]types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.HistoryEntry
	for _, e := range s.history {
		if e.Version > fromVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetDelta exports every change whose version is in (fromVersion, toVersion].
func (s *Store) GetDelta(fromVersion, toVersion int) (*types.Delta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delta := &types.Delta{FromVersion: fromVersion, ToVersion: toVersion}
	for _, sc := range s.scenarios {
		if sc.VersionAdded > fromVersion && sc.VersionAdded <= toVersion {
			row := sc
			row.Payload = sc.Payload.Clone()
			delta.Scenarios = append(delta.Scenarios, row)
		}
	}
	for _, mc := range s.metas {
		if mc.Version > fromVersion && mc.Version <= toVersion {
			delta.MetaChanges = append(delta.MetaChanges, types.MetaChange{
				Version: mc.Version,
				Meta:    mc.Meta.Clone(),
			})
		}
	}
	digests := make([]string, 0, len(s.overrides))
	for digest := range s.overrides {
		digests = append(digests, digest)
	}
	sort.Strings(digests)
	for _, digest := range digests {
		for _, rec := range s.overrides[digest] {
			if rec.Version > fromVersion && rec.Version <= toVersion {
				row := rec
				row.Payload = rec.Payload.Clone()
				delta.Overrides = append(delta.Overrides, row)
			}
		}
	}
	for _, e := range s.history {
		if e.Version > fromVersion && e.Version <= toVersion {
			delta.History = append(delta.History, e)
		}
	}
	sortDelta(delta)
	return delta, nil
}

// ApplyDelta applies a delta exported by GetDelta. The store's current
// version must equal the delta's FromVersion.
func (s *Store) ApplyDelta(delta *types.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version != delta.FromVersion {
		return types.ErrVersionConflict
	}
	for _, sc := range delta.Scenarios {
		// The delta's digest is untrusted; recompute from the payload, as
		// InsertScenario does.
		digest, err := canonical.Digest(sc.Payload)
		if err != nil {
			return err
		}
		row := sc
		row.Digest = digest
		row.Payload = sc.Payload.Clone()
		s.scenarios = append(s.scenarios, row)
	}
	for _, mc := range delta.MetaChanges {
		s.metas = append(s.metas, types.MetaChange{Version: mc.Version, Meta: mc.Meta.Clone()})
	}
	for _, ov := range delta.Overrides {
		row := ov
		row.Payload = ov.Payload.Clone()
		s.overrides[ov.Digest] = append(s.overrides[ov.Digest], row)
	}
	s.history = append(s.history, delta.History...)
	s.version = delta.ToVersion
	return nil
}

// sortDelta orders delta rows by version so application order is
// deterministic across backends.
func sortDelta(d *types.Delta) {
	sort.Slice(d.Scenarios, func(i, j int) bool {
		return d.Scenarios[i].VersionAdded < d.Scenarios[j].VersionAdded
	})
	sort.Slice(d.MetaChanges, func(i, j int) bool {
		return d.MetaChanges[i].Version < d.MetaChanges[j].Version
	})
	sort.Slice(d.Overrides, func(i, j int) bool {
		if d.Overrides[i].Version != d.Overrides[j].Version {
			return d.Overrides[i].Version < d.Overrides[j].Version
		}
		return d.Overrides[i].Digest < d.Overrides[j].Digest
	})
	sort.Slice(d.History, func(i, j int) bool {
		return d.History[i].Version < d.History[j].Version
	})
}

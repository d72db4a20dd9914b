package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/scenariolist/pkg/canonical"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// Compile-time interface check: listStore must implement types.Store.
var _ types.Store = (*listStore)(nil)

// listStore is the Store for one list inside the shared database.
type listStore struct {
	backend *Backend
	listID  int64
}

// Version returns the list's current version counter.
func (s *listStore) Version() (int, error) {
	db, err := s.backend.conn()
	if err != nil {
		return 0, err
	}
	var v int
	err = db.QueryRow("SELECT version FROM scenario_lists WHERE list_id = ?", s.listID).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, types.ErrListNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reading version: %w", err)
	}
	return v, nil
}

// SetVersion records v as the list's current version.
func (s *listStore) SetVersion(v int) error {
	db, err := s.backend.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec("UPDATE scenario_lists SET version = ? WHERE list_id = ?", v, s.listID)
	if err != nil {
		return fmt.Errorf("setting version: %w", err)
	}
	return nil
}

// resolve maps the Latest sentinel to the current version.
func (s *listStore) resolve(atVersion int) (int, error) {
	if atVersion == types.Latest {
		return s.Version()
	}
	return atVersion, nil
}

// GetMeta returns the meta with the highest version <= atVersion.
func (s *listStore) GetMeta(atVersion int) (types.Meta, error) {
	db, err := s.backend.conn()
	if err != nil {
		return types.Meta{}, err
	}
	at, err := s.resolve(atVersion)
	if err != nil {
		return types.Meta{}, err
	}

	var blob string
	err = db.QueryRow(
		"SELECT meta FROM scenario_list_meta WHERE list_id = ? AND version <= ? ORDER BY version DESC LIMIT 1",
		s.listID, at,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return types.NewMeta(), nil
	}
	if err != nil {
		return types.Meta{}, fmt.Errorf("reading meta: %w", err)
	}
	return decodeMeta(blob)
}

// SetMeta stores meta as the row for the given version.
func (s *listStore) SetMeta(meta types.Meta, version int) error {
	db, err := s.backend.conn()
	if err != nil {
		return err
	}
	blob, err := canonical.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT OR REPLACE INTO scenario_list_meta (list_id, version, meta) VALUES (?, ?, ?)",
		s.listID, version, string(blob),
	)
	if err != nil {
		return fmt.Errorf("persisting meta: %w", err)
	}
	return nil
}

// InsertScenario persists a raw record. The digest is recomputed from the
// payload (excluding "_digest") rather than trusting the embedded value.
func (s *listStore) InsertScenario(position int, payload types.Scenario, version int) error {
	db, err := s.backend.conn()
	if err != nil {
		return err
	}
	digest, err := canonical.Digest(payload)
	if err != nil {
		return err
	}
	blob, err := canonical.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT INTO scenarios (list_id, position, digest, version_added, payload) VALUES (?, ?, ?, ?, ?)",
		s.listID, position, digest, version, string(blob),
	)
	if err != nil {
		return fmt.Errorf("persisting scenario at position %d: %w", position, err)
	}
	return nil
}

// GetScenario returns the raw payload at position as of atVersion.
func (s *listStore) GetScenario(position, atVersion int) (types.Scenario, error) {
	sc, _, err := s.GetScenarioWithDigest(position, atVersion)
	return sc, err
}

// GetScenarioWithDigest returns the raw payload and stored digest.
func (s *listStore) GetScenarioWithDigest(position, atVersion int) (types.Scenario, string, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, "", err
	}
	at, err := s.resolve(atVersion)
	if err != nil {
		return nil, "", err
	}

	var blob, digest string
	err = db.QueryRow(
		"SELECT payload, digest FROM scenarios WHERE list_id = ? AND position = ? AND version_added <= ?",
		s.listID, position, at,
	).Scan(&blob, &digest)
	if err == sql.ErrNoRows {
		return nil, "", types.ErrPositionOutOfRange
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading scenario at position %d: %w", position, err)
	}
	payload, err := decodeScenario(blob)
	if err != nil {
		return nil, "", err
	}
	return payload, digest, nil
}

// GetDigestAtPosition returns the stored digest at position.
func (s *listStore) GetDigestAtPosition(position, atVersion int) (string, error) {
	_, digest, err := s.GetScenarioWithDigest(position, atVersion)
	return digest, err
}

// GetAllDigests returns stored digests in position order.
func (s *listStore) GetAllDigests(atVersion int) ([]string, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}
	at, err := s.resolve(atVersion)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT digest FROM scenarios WHERE list_id = ? AND version_added <= ? ORDER BY position",
		s.listID, at,
	)
	if err != nil {
		return nil, fmt.Errorf("reading digests: %w", err)
	}
	defer rows.Close()

	var digests []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}
	return digests, rows.Err()
}

// GetAllScenarios returns raw payloads in position order.
func (s *listStore) GetAllScenarios(atVersion int) ([]types.Scenario, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}
	at, err := s.resolve(atVersion)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT payload FROM scenarios WHERE list_id = ? AND version_added <= ? ORDER BY position",
		s.listID, at,
	)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios: %w", err)
	}
	defer rows.Close()

	var out []types.Scenario
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		payload, err := decodeScenario(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	return out, rows.Err()
}

// GetLength returns the number of records visible at atVersion.
func (s *listStore) GetLength(atVersion int) (int, error) {
	db, err := s.backend.conn()
	if err != nil {
		return 0, err
	}
	at, err := s.resolve(atVersion)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRow(
		"SELECT COUNT(*) FROM scenarios WHERE list_id = ? AND version_added <= ?",
		s.listID, at,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting scenarios: %w", err)
	}
	return count, nil
}

// SetOverride records payload as the override for digest at version.
func (s *listStore) SetOverride(digest string, payload types.Scenario, version int) error {
	db, err := s.backend.conn()
	if err != nil {
		return err
	}
	blob, err := canonical.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT OR REPLACE INTO scenario_list_overrides (list_id, digest, version, payload) VALUES (?, ?, ?, ?)",
		s.listID, digest, version, string(blob),
	)
	if err != nil {
		return fmt.Errorf("persisting override for digest %s: %w", digest, err)
	}
	return nil
}

// GetOverride returns the override for digest with the highest version
// <= atVersion, or false if none applies.
func (s *listStore) GetOverride(digest string, atVersion int) (types.Scenario, bool, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, false, err
	}
	at, err := s.resolve(atVersion)
	if err != nil {
		return nil, false, err
	}

	var blob string
	err = db.QueryRow(
		"SELECT payload FROM scenario_list_overrides WHERE list_id = ? AND digest = ? AND version <= ? ORDER BY version DESC LIMIT 1",
		s.listID, digest, at,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading override for digest %s: %w", digest, err)
	}
	payload, err := decodeScenario(blob)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// GetMaterializedScenario composes raw record, meta, and override into the
// final view.
func (s *listStore) GetMaterializedScenario(position, atVersion int) (types.Scenario, error) {
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
func (s *listStore) GetMaterializedList(atVersion int) ([]types.Scenario, error) {
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
func (s *listStore) AppendHistory(entry types.HistoryEntry) error {
	db, err := s.backend.conn()
	if err != nil {
		return err
	}
	args, err := canonical.Marshal(entry.Args)
	if err != nil {
		return err
	}
	kwargs, err := canonical.Marshal(entry.Kwargs)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT OR REPLACE INTO scenario_list_history (list_id, version, method_name, args, kwargs) VALUES (?, ?, ?, ?, ?)",
		s.listID, entry.Version, entry.Method, string(args), string(kwargs),
	)
	if err != nil {
		return fmt.Errorf("persisting history entry: %w", err)
	}
	return nil
}

// GetHistory returns entries with version > fromVersion, in version order.
func (s *listStore) GetHistory(fromVersion int) ([]types.HistoryEntry, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(
		"SELECT version, method_name, args, kwargs FROM scenario_list_history WHERE list_id = ? AND version > ? ORDER BY version",
		s.listID, fromVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var out []types.HistoryEntry
	for rows.Next() {
		var entry types.HistoryEntry
		var args, kwargs string
		if err := rows.Scan(&entry.Version, &entry.Method, &args, &kwargs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(args), &entry.Args); err != nil {
			return nil, fmt.Errorf("decoding history args: %w", err)
		}
		if err := json.Unmarshal([]byte(kwargs), &entry.Kwargs); err != nil {
			return nil, fmt.Errorf("decoding history kwargs: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// GetDelta exports every change whose version is in (fromVersion, toVersion].
func (s *listStore) GetDelta(fromVersion, toVersion int) (*types.Delta, error) {
	delta := &types.Delta{FromVersion: fromVersion, ToVersion: toVersion}

	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT position, digest, version_added, payload FROM scenarios WHERE list_id = ? AND version_added > ? AND version_added <= ? ORDER BY version_added, position",
		s.listID, fromVersion, toVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("exporting scenarios: %w", err)
	}
	for rows.Next() {
		var sc types.StoredScenario
		var blob string
		if err := rows.Scan(&sc.Position, &sc.Digest, &sc.VersionAdded, &blob); err != nil {
			rows.Close()
			return nil, err
		}
		if sc.Payload, err = decodeScenario(blob); err != nil {
			rows.Close()
			return nil, err
		}
		delta.Scenarios = append(delta.Scenarios, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(
		"SELECT version, meta FROM scenario_list_meta WHERE list_id = ? AND version > ? AND version <= ? ORDER BY version",
		s.listID, fromVersion, toVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("exporting meta changes: %w", err)
	}
	for rows.Next() {
		var mc types.MetaChange
		var blob string
		if err := rows.Scan(&mc.Version, &blob); err != nil {
			rows.Close()
			return nil, err
		}
		if mc.Meta, err = decodeMeta(blob); err != nil {
			rows.Close()
			return nil, err
		}
		delta.MetaChanges = append(delta.MetaChanges, mc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(
		"SELECT digest, version, payload FROM scenario_list_overrides WHERE list_id = ? AND version > ? AND version <= ? ORDER BY version, digest",
		s.listID, fromVersion, toVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("exporting overrides: %w", err)
	}
	for rows.Next() {
		var ov types.OverrideChange
		var blob string
		if err := rows.Scan(&ov.Digest, &ov.Version, &blob); err != nil {
			rows.Close()
			return nil, err
		}
		if ov.Payload, err = decodeScenario(blob); err != nil {
			rows.Close()
			return nil, err
		}
		delta.Overrides = append(delta.Overrides, ov)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	history, err := s.GetHistory(fromVersion)
	if err != nil {
		return nil, err
	}
	for _, e := range history {
		if e.Version <= toVersion {
			delta.History = append(delta.History, e)
		}
	}
	return delta, nil
}

// ApplyDelta applies a delta exported by GetDelta, in one transaction: a
// crash or failure mid-apply leaves no partial inserts. The list's current
// version must equal the delta's FromVersion.
func (s *listStore) ApplyDelta(delta *types.Delta) error {
	db, err := s.backend.conn()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRow("SELECT version FROM scenario_lists WHERE list_id = ?", s.listID).Scan(&current)
	if err == sql.ErrNoRows {
		return types.ErrListNotFound
	}
	if err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	if current != delta.FromVersion {
		return types.ErrVersionConflict
	}

	for _, sc := range delta.Scenarios {
		blob, err := canonical.Marshal(sc.Payload)
		if err != nil {
			return err
		}
		digest, err := canonical.Digest(sc.Payload)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO scenarios (list_id, position, digest, version_added, payload) VALUES (?, ?, ?, ?, ?)",
			s.listID, sc.Position, digest, sc.VersionAdded, string(blob),
		); err != nil {
			return fmt.Errorf("applying scenario at position %d: %w", sc.Position, err)
		}
	}
	for _, mc := range delta.MetaChanges {
		blob, err := canonical.Marshal(mc.Meta)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO scenario_list_meta (list_id, version, meta) VALUES (?, ?, ?)",
			s.listID, mc.Version, string(blob),
		); err != nil {
			return fmt.Errorf("applying meta change at version %d: %w", mc.Version, err)
		}
	}
	for _, ov := range delta.Overrides {
		blob, err := canonical.Marshal(ov.Payload)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO scenario_list_overrides (list_id, digest, version, payload) VALUES (?, ?, ?, ?)",
			s.listID, ov.Digest, ov.Version, string(blob),
		); err != nil {
			return fmt.Errorf("applying override at version %d: %w", ov.Version, err)
		}
	}
	for _, e := range delta.History {
		args, err := canonical.Marshal(e.Args)
		if err != nil {
			return err
		}
		kwargs, err := canonical.Marshal(e.Kwargs)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO scenario_list_history (list_id, version, method_name, args, kwargs) VALUES (?, ?, ?, ?, ?)",
			s.listID, e.Version, e.Method, string(args), string(kwargs),
		); err != nil {
			return fmt.Errorf("applying history entry at version %d: %w", e.Version, err)
		}
	}
	if _, err := tx.Exec(
		"UPDATE scenario_lists SET version = ? WHERE list_id = ?",
		delta.ToVersion, s.listID,
	); err != nil {
		return fmt.Errorf("setting version: %w", err)
	}
	return tx.Commit()
}

// decodeScenario unmarshals a stored payload blob.
func decodeScenario(blob string) (types.Scenario, error) {
	var payload types.Scenario
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return payload, nil
}

// decodeScenarioSlice unmarshals a stored snapshot blob.
func decodeScenarioSlice(blob string) ([]types.Scenario, error) {
	var scenarios []types.Scenario
	if err := json.Unmarshal([]byte(blob), &scenarios); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return scenarios, nil
}

// decodeMeta unmarshals a stored meta blob.
func decodeMeta(blob string) (types.Meta, error) {
	var meta types.Meta
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return types.Meta{}, fmt.Errorf("decoding meta: %w", err)
	}
	if meta.Rename == nil {
		meta.Rename = map[string]string{}
	}
	if meta.Drop == nil {
		meta.Drop = []string{}
	}
	return meta, nil
}

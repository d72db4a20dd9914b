// Package types defines the Store contract, record and delta types, and
// standard errors for the scenario-list storage system.
package types

import (
	"sort"

	"github.com/mesh-intelligence/scenariolist/pkg/canonical"
)

// Scenario is one stored record: a mapping of string keys to
// JSON-serializable values. Identity is derived, not assigned: the digest of
// a scenario is the SHA-256 of its canonical JSON with the reserved
// "_digest" key excluded.
type Scenario map[string]any

// Clone returns a shallow copy of the scenario.
func (s Scenario) Clone() Scenario {
	out := make(Scenario, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Digest computes the content digest of the scenario.
func (s Scenario) Digest() (string, error) {
	return canonical.Digest(s)
}

// Meta describes the rename and drop transforms applied at read time to raw
// records and, at write time, to future appends. Meta is versioned like
// everything else: registering a rename does not touch already-stored rows.
type Meta struct {
	Rename map[string]string `json:"rename"`
	Drop   []string          `json:"drop"`
}

// NewMeta returns an empty Meta with initialized fields.
func NewMeta() Meta {
	return Meta{Rename: map[string]string{}, Drop: []string{}}
}

// Clone returns a deep copy of the meta.
func (m Meta) Clone() Meta {
	out := NewMeta()
	for k, v := range m.Rename {
		out.Rename[k] = v
	}
	out.Drop = append(out.Drop, m.Drop...)
	return out
}

// IsDropped reports whether key is in the drop set.
func (m Meta) IsDropped(key string) bool {
	for _, k := range m.Drop {
		if k == key {
			return true
		}
	}
	return false
}

// ApplyRenames returns a copy of s with the rename transforms applied.
// Keys not present in the rename map pass through unchanged. Rename targets
// are applied in sorted old-key order so the result is deterministic.
func (m Meta) ApplyRenames(s Scenario) Scenario {
	if len(m.Rename) == 0 {
		return s.Clone()
	}
	out := s.Clone()
	olds := make([]string, 0, len(m.Rename))
	for old := range m.Rename {
		olds = append(olds, old)
	}
	sort.Strings(olds)
	for _, old := range olds {
		if v, ok := out[old]; ok {
			delete(out, old)
			out[m.Rename[old]] = v
		}
	}
	return out
}

// Materialize composes the final view of a stored record: the raw payload
// with renames applied, dropped keys removed, the override (if any) merged
// on top, and the reserved digest key stripped. The override merges after
// the drop step, so an override may reintroduce a dropped key.
func Materialize(raw Scenario, meta Meta, override Scenario) Scenario {
	out := meta.ApplyRenames(raw)
	delete(out, canonical.DigestKey)
	for _, key := range meta.Drop {
		delete(out, key)
	}
	for k, v := range override {
		if k == canonical.DigestKey {
			continue
		}
		out[k] = v
	}
	return out
}

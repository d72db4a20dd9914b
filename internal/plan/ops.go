package plan

import (
	"fmt"

	"github.com/mesh-intelligence/scenariolist/pkg/canonical"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// loadMeta reads the meta active at the current version into the context.
type loadMeta struct{}

func (loadMeta) Name() string { return "load_meta" }

func (loadMeta) Run(store types.Store, ctx *Context) error {
	meta, err := store.GetMeta(types.Latest)
	if err != nil {
		return err
	}
	ctx.Meta = meta
	return nil
}

// validateNoDroppedKeys rejects a payload containing any key currently in
// the drop set. This is checked before anything is persisted.
type validateNoDroppedKeys struct{}

func (validateNoDroppedKeys) Name() string { return "validate_no_dropped_keys" }

func (validateNoDroppedKeys) Run(_ types.Store, ctx *Context) error {
	for key := range ctx.Payload {
		if ctx.Meta.IsDropped(key) {
			return fmt.Errorf("key %q: %w", key, types.ErrKeyDropped)
		}
	}
	return nil
}

// applyRenames rewrites incoming payload keys per the active rename map, so
// records appended after a rename are stored under the new key.
type applyRenames struct{}

func (applyRenames) Name() string { return "apply_renames" }

func (applyRenames) Run(_ types.Store, ctx *Context) error {
	ctx.Payload = ctx.Meta.ApplyRenames(ctx.Payload)
	return nil
}

// computeDigest computes the content digest of the (renamed) payload.
type computeDigest struct{}

func (computeDigest) Name() string { return "compute_digest" }

func (computeDigest) Run(_ types.Store, ctx *Context) error {
	digest, err := ctx.Payload.Digest()
	if err != nil {
		return err
	}
	ctx.Digest = digest
	return nil
}

// assignPosition assigns the append-only position: the current length.
type assignPosition struct{}

func (assignPosition) Name() string { return "assign_position" }

func (assignPosition) Run(store types.Store, ctx *Context) error {
	length, err := store.GetLength(types.Latest)
	if err != nil {
		return err
	}
	ctx.Position = length
	return nil
}

// persistScenario embeds the digest in the payload and persists the record
// at the target version.
type persistScenario struct{}

func (persistScenario) Name() string { return "persist_scenario" }

func (persistScenario) Run(store types.Store, ctx *Context) error {
	payload := ctx.Payload.Clone()
	payload[canonical.DigestKey] = ctx.Digest
	return store.InsertScenario(ctx.Position, payload, ctx.Version)
}

// addRename registers OldKey -> NewKey in the context meta.
type addRename struct{}

func (addRename) Name() string { return "add_rename" }

func (addRename) Run(_ types.Store, ctx *Context) error {
	meta := ctx.Meta.Clone()
	meta.Rename[ctx.OldKey] = ctx.NewKey
	ctx.Meta = meta
	return nil
}

// addDrop registers Key in the context drop set. Idempotent.
type addDrop struct{}

func (addDrop) Name() string { return "add_drop" }

func (addDrop) Run(_ types.Store, ctx *Context) error {
	if ctx.Meta.IsDropped(ctx.Key) {
		return nil
	}
	meta := ctx.Meta.Clone()
	meta.Drop = append(meta.Drop, ctx.Key)
	ctx.Meta = meta
	return nil
}

// addValues merges {Key: Values[i]} into the override of the digest at
// position i, recorded at the target version. Records sharing a digest
// share override history, so a duplicate row picks up the same correction.
// A later call for the same key fully overwrites the earlier value
// (last-write-wins).
type addValues struct{}

func (addValues) Name() string { return "add_values" }

func (addValues) Run(store types.Store, ctx *Context) error {
	length, err := store.GetLength(types.Latest)
	if err != nil {
		return err
	}
	n := len(ctx.Values)
	if n > length {
		n = length
	}
	for i := 0; i < n; i++ {
		digest, err := store.GetDigestAtPosition(i, types.Latest)
		if err != nil {
			return err
		}
		// Read as of the target version so that positions sharing a digest
		// see overrides written earlier in this same call.
		existing, ok, err := store.GetOverride(digest, ctx.Version)
		if err != nil {
			return err
		}
		merged := types.Scenario{}
		if ok {
			merged = existing.Clone()
		}
		merged[ctx.Key] = ctx.Values[i]
		if err := store.SetOverride(digest, merged, ctx.Version); err != nil {
			return err
		}
	}
	return nil
}

// persistMeta stores the context meta as the meta row for the target
// version.
type persistMeta struct{}

func (persistMeta) Name() string { return "persist_meta" }

func (persistMeta) Run(store types.Store, ctx *Context) error {
	return store.SetMeta(ctx.Meta, ctx.Version)
}

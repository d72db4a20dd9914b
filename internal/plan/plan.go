// Package plan implements the operation pipeline that gives every mutation
// its meaning. A Plan is a fixed, ordered sequence of named ops executed
// against an injected Store; the plan is the single source of truth for
// mutation semantics, and backends only persist. Running the same plans
// against the in-memory and SQLite backends yields identical digests and
// identical materialized views by construction.
package plan

import (
	"fmt"

	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// Context carries the mutable state threaded through a plan's ops. Ops read
// fields written by earlier ops and write fields for later ones.
type Context struct {
	// Version is the target version for this mutation (current + 1). The
	// facade sets it before running the plan and commits it only after the
	// plan succeeds, so a failed plan leaves the version untouched.
	Version int

	Payload  types.Scenario
	Meta     types.Meta
	Digest   string
	Position int

	OldKey string
	NewKey string
	Key    string
	Values []any
}

// Op is one unit step of a plan.
type Op interface {
	// Name identifies the op in error messages.
	Name() string

	// Run executes the step against the store, reading from and writing to
	// the context.
	Run(store types.Store, ctx *Context) error
}

// Plan is an ordered list of ops plus a seed that primes the context with
// the mutation's inputs.
type Plan struct {
	ops  []Op
	seed func(*Context)
}

// Run seeds the context and executes each op in order. The first op error
// aborts the plan; the error is wrapped with the op name.
func (p *Plan) Run(store types.Store, ctx *Context) error {
	if p.seed != nil {
		p.seed(ctx)
	}
	for _, op := range p.ops {
		if err := op.Run(store, ctx); err != nil {
			return fmt.Errorf("%s: %w", op.Name(), err)
		}
	}
	return nil
}

// Append builds the plan for appending one record: load meta, reject
// dropped keys, apply pending renames to the incoming payload, compute the
// digest, assign the next position, persist.
func Append(payload types.Scenario) *Plan {
	return &Plan{
		seed: func(c *Context) { c.Payload = payload.Clone() },
		ops: []Op{
			loadMeta{},
			validateNoDroppedKeys{},
			applyRenames{},
			computeDigest{},
			assignPosition{},
			persistScenario{},
		},
	}
}

// Rename builds the plan registering a future key rename. Existing stored
// rows are not touched; the rename applies at read time and to future
// appends.
func Rename(oldKey, newKey string) *Plan {
	return &Plan{
		seed: func(c *Context) { c.OldKey, c.NewKey = oldKey, newKey },
		ops:  []Op{loadMeta{}, addRename{}, persistMeta{}},
	}
}

// DropKey builds the plan registering a future key drop.
func DropKey(key string) *Plan {
	return &Plan{
		seed: func(c *Context) { c.Key = key },
		ops:  []Op{loadMeta{}, addDrop{}, persistMeta{}},
	}
}

// AddValues builds the plan recording positional overrides: value i is
// merged as {key: values[i]} into the override of the digest stored at
// position i. Positions past len(values) are untouched; values past the
// list length are ignored.
func AddValues(key string, values []any) *Plan {
	return &Plan{
		seed: func(c *Context) { c.Key, c.Values = key, values },
		ops:  []Op{loadMeta{}, addValues{}, persistMeta{}},
	}
}

package scenariolist

import "github.com/mesh-intelligence/scenariolist/pkg/types"

// View is a read-only projection of a list at a fixed version. Reads
// materialize against that version regardless of later mutations.
type View struct {
	store   types.Store
	version int
}

// Version returns the version the view is bound to.
func (v *View) Version() int {
	return v.version
}

// Len returns the number of records visible at the view's version.
func (v *View) Len() (int, error) {
	return v.store.GetLength(v.version)
}

// Scenario returns the materialized record at position.
func (v *View) Scenario(position int) (types.Scenario, error) {
	return v.store.GetMaterializedScenario(position, v.version)
}

// Scenarios returns the materialized list.
func (v *View) Scenarios() ([]types.Scenario, error) {
	return v.store.GetMaterializedList(v.version)
}

// ToList materializes the view into a fresh, independent in-memory
// ScenarioList with its own version counter and history.
func (v *View) ToList() (*ScenarioList, error) {
	scenarios, err := v.Scenarios()
	if err != nil {
		return nil, err
	}
	list := NewInMemory()
	for _, sc := range scenarios {
		if err := list.Append(sc); err != nil {
			return nil, err
		}
	}
	return list, nil
}

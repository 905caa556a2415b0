package s2e

import (
	"sort"

	"github.com/soypat/geometry/md3"
	"gonum.org/v1/gonum/num/quat"
)

// ReferenceSpacecraft is a spacecraft other spacecraft may orbit relative to.
// Its state is only read, after it has been propagated for the current tick.
type ReferenceSpacecraft interface {
	PositionI() md3.Vec            // Inertial position.
	VelocityI() md3.Vec            // Inertial velocity.
	QuaternionI2LVLH() quat.Number // Rotation from the inertial frame to its LVLH frame.
}

// RelativeInformation maps spacecraft identifiers to reference spacecraft.
type RelativeInformation struct {
	refs map[int]ReferenceSpacecraft
}

// NewRelativeInformation returns an empty registry.
func NewRelativeInformation() *RelativeInformation {
	return &RelativeInformation{refs: make(map[int]ReferenceSpacecraft)}
}

// Register adds sc under id. Identifiers are unique.
func (ri *RelativeInformation) Register(id int, sc ReferenceSpacecraft) error {
	if sc == nil {
		return &ConfigurationError{"reference spacecraft", id, "may not be nil"}
	}
	if _, exists := ri.refs[id]; exists {
		return &ConfigurationError{"reference spacecraft", id, "identifier already registered"}
	}
	ri.refs[id] = sc
	return nil
}

// ReferenceSpacecraft returns the spacecraft registered under id.
func (ri *RelativeInformation) ReferenceSpacecraft(id int) (ReferenceSpacecraft, error) {
	sc, ok := ri.refs[id]
	if !ok {
		return nil, &ConfigurationError{"reference spacecraft", id, "unknown identifier"}
	}
	return sc, nil
}

// IDs returns the registered identifiers in increasing order.
func (ri *RelativeInformation) IDs() []int {
	ids := make([]int, 0, len(ri.refs))
	for id := range ri.refs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

package spatial

import "github.com/jwebster45206/world-engine/pkg/world"

const (
	MsgSourceNotFound      = "source location not found"
	MsgTargetNotFound      = "target location not found"
	MsgSelfExit            = "a location cannot have an exit to itself"
	MsgSourceNoCoordinates = "source location has no coordinates"
	MsgNotAdjacent         = "target location is not adjacent to source location"
	MsgNoValidDirections   = "no valid directions available (subgraph conflicts)"
)

// DirectionOption is one direction an exit may take. A fixed option is the
// only possibility, dictated by coordinates already on the grid.
type DirectionOption struct {
	Direction         world.Direction   `json:"direction"`
	IsFixed           bool              `json:"isFixed"`
	TargetCoordinates world.Coordinates `json:"targetCoordinates"`
}

// ExitValidation is the answer to "may source get an exit to target, and which way?".
type ExitValidation struct {
	CanCreateExit        bool              `json:"canCreateExit"`
	ValidDirections      []DirectionOption `json:"validDirections"`
	ErrorMessage         string            `json:"errorMessage,omitempty"`
	TargetHasCoordinates bool              `json:"targetHasCoordinates"`
	TargetIsConnected    bool              `json:"targetIsConnected"`
}

func (v ExitValidation) fail(msg string) ExitValidation {
	v.CanCreateExit = false
	v.ValidDirections = []DirectionOption{}
	v.ErrorMessage = msg
	return v
}

// ValidateExit decides which directions an exit from source to target may use.
// It never writes; coordinates are committed later by the Cascader once the
// exit exists.
func ValidateExit(snap *world.Snapshot, sourceID, targetID world.LocationID) ExitValidation {
	var result ExitValidation

	source := snap.Get(sourceID)
	if source == nil {
		return result.fail(MsgSourceNotFound)
	}
	target := snap.Get(targetID)
	if target == nil {
		return result.fail(MsgTargetNotFound)
	}
	if sourceID == targetID {
		return result.fail(MsgSelfExit)
	}

	members := ConnectedSubgraph(snap, targetID)
	result.TargetHasCoordinates = target.HasCoordinates()
	result.TargetIsConnected = members.Size() > 1

	if !source.HasCoordinates() {
		return result.fail(MsgSourceNoCoordinates)
	}

	if target.HasCoordinates() {
		d, ok := AdjacentDirection(*source.Coordinates, *target.Coordinates)
		if !ok {
			return result.fail(MsgNotAdjacent)
		}
		result.CanCreateExit = true
		result.ValidDirections = []DirectionOption{{
			Direction:         d,
			IsFixed:           true,
			TargetCoordinates: *target.Coordinates,
		}}
		return result
	}

	positions := RelativePositions(snap, targetID, members)
	options := []DirectionOption{}
	for _, d := range world.CompassDirections() {
		candidate := source.Coordinates.Step(d.Offset())
		if CanPlace(snap, candidate, positions, members) {
			options = append(options, DirectionOption{Direction: d, TargetCoordinates: candidate})
		}
	}
	if len(options) == 0 {
		return result.fail(MsgNoValidDirections)
	}
	result.CanCreateExit = true
	result.ValidDirections = options
	return result
}

// AdjacentDirection returns the compass direction leading from one cell to a
// neighbouring cell of the same area, diagonals included.
func AdjacentDirection(from, to world.Coordinates) (world.Direction, bool) {
	o, ok := from.OffsetTo(to)
	if !ok {
		return world.DirectionUnknown, false
	}
	return world.DirectionForOffset(o)
}

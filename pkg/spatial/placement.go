package spatial

import (
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/zyedidia/generic/mapset"
)

// CanPlace reports whether the laid-out subgraph fits with its anchor at
// anchor: no projected cell may hold a location outside the subgraph.
// Members may sit on their own projected cells.
func CanPlace(snap *world.Snapshot, anchor world.Coordinates, positions *PositionMap, members mapset.Set[world.LocationID]) bool {
	for _, id := range positions.Order() {
		o, _ := positions.Offset(id)
		for _, occupant := range snap.OccupantsAt(anchor.Step(o)) {
			if !members.Has(occupant) {
				return false
			}
		}
	}
	return true
}

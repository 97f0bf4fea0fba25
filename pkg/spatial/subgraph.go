// Package spatial keeps the exit graph of the world consistent with the grid:
// it lays out connected locations relative to each other, decides where a new
// connection may go, commits coordinates and fills empty neighbouring cells
// with wilderness.
//
// Every function works against a world.Snapshot loaded once per request.
package spatial

import (
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/zyedidia/generic/mapset"
)

// ConnectedSubgraph returns every location reachable from seed when exits are
// treated as undirected edges. The seed is always a member. Exits to locations
// missing from the snapshot are not followed.
func ConnectedSubgraph(snap *world.Snapshot, seed world.LocationID) mapset.Set[world.LocationID] {
	members := mapset.New[world.LocationID]()
	members.Put(seed)

	queue := []world.LocationID{seed}
	visit := func(id world.LocationID) {
		if members.Has(id) || snap.Get(id) == nil {
			return
		}
		members.Put(id)
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		loc := snap.Get(current)
		if loc == nil {
			continue
		}
		for _, e := range loc.Exits {
			visit(e.TargetID)
		}
		for _, in := range snap.Incoming(current) {
			visit(in.SourceID)
		}
	}
	return members
}

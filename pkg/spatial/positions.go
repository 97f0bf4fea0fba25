package spatial

import (
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/zyedidia/generic/mapset"
)

// PositionMap holds grid offsets of subgraph members relative to an anchor.
type PositionMap struct {
	Anchor  world.LocationID
	offsets map[world.LocationID]world.Offset
	order   []world.LocationID
}

// Offset returns the position of id relative to the anchor.
func (p *PositionMap) Offset(id world.LocationID) (world.Offset, bool) {
	o, ok := p.offsets[id]
	return o, ok
}

// Order returns positioned ids in BFS discovery order, anchor first.
func (p *PositionMap) Order() []world.LocationID {
	return p.order
}

func (p *PositionMap) Len() int {
	return len(p.order)
}

func (p *PositionMap) set(id world.LocationID, o world.Offset) {
	p.offsets[id] = o
	p.order = append(p.order, id)
}

// RelativePositions lays out members around anchor by walking exits breadth
// first. An outgoing exit places its target at current+Offset(d); an incoming
// exit places its source at current+Offset(Opposite(d)).
//
// The first position found for a member wins. Later paths that disagree are
// ignored here; use CheckConsistency to find them.
func RelativePositions(snap *world.Snapshot, anchor world.LocationID, members mapset.Set[world.LocationID]) *PositionMap {
	positions := &PositionMap{
		Anchor:  anchor,
		offsets: make(map[world.LocationID]world.Offset),
	}
	positions.set(anchor, world.Offset{})

	queue := []world.LocationID{anchor}
	place := func(id world.LocationID, o world.Offset) {
		if !members.Has(id) {
			return
		}
		if _, done := positions.offsets[id]; done {
			return
		}
		positions.set(id, o)
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		loc := snap.Get(current)
		if loc == nil {
			continue
		}
		here := positions.offsets[current]
		for _, e := range loc.Exits {
			place(e.TargetID, here.Add(e.Direction.Offset()))
		}
		for _, in := range snap.Incoming(current) {
			place(in.SourceID, here.Add(in.Direction.Opposite().Offset()))
		}
	}
	return positions
}

// Divergence is an exit whose label disagrees with the computed layout.
type Divergence struct {
	SourceID  world.LocationID `json:"source_id"`
	TargetID  world.LocationID `json:"target_id"`
	Direction world.Direction  `json:"direction"`
	Expected  world.Offset     `json:"expected"`
	Actual    world.Offset     `json:"actual"`
}

// CheckConsistency lists every exit between positioned members whose direction
// does not match the offset between them in positions.
func CheckConsistency(snap *world.Snapshot, positions *PositionMap) []Divergence {
	var out []Divergence
	for _, id := range positions.Order() {
		loc := snap.Get(id)
		if loc == nil {
			continue
		}
		from := positions.offsets[id]
		for _, e := range loc.Exits {
			to, ok := positions.offsets[e.TargetID]
			if !ok {
				continue
			}
			actual := world.Offset{DX: to.DX - from.DX, DY: to.DY - from.DY}
			if expected := e.Direction.Offset(); actual != expected {
				out = append(out, Divergence{
					SourceID:  id,
					TargetID:  e.TargetID,
					Direction: e.Direction,
					Expected:  expected,
					Actual:    actual,
				})
			}
		}
	}
	return out
}

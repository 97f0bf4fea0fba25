package spatial

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/world-engine/pkg/storage"
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/zyedidia/generic/mapset"
)

// CascadeResult lists what a cascade changed.
type CascadeResult struct {
	Placed     []world.LocationID
	Wilderness []*world.Location
}

func (r *CascadeResult) merge(other *CascadeResult) {
	if other == nil {
		return
	}
	r.Placed = append(r.Placed, other.Placed...)
	r.Wilderness = append(r.Wilderness, other.Wilderness...)
}

// Empty reports whether nothing was written.
func (r *CascadeResult) Empty() bool {
	return len(r.Placed) == 0 && len(r.Wilderness) == 0
}

// Cascader commits coordinates to a whole subgraph once its anchor has a cell.
type Cascader struct {
	locations  storage.LocationRepository
	wilderness *WildernessGenerator
	logger     *slog.Logger
}

func NewCascader(locations storage.LocationRepository, wilderness *WildernessGenerator, logger *slog.Logger) *Cascader {
	return &Cascader{
		locations:  locations,
		wilderness: wilderness,
		logger:     logger,
	}
}

// Cascade places anchorID at coord and every uncoordinated member of its
// subgraph at coord plus its relative offset. Members that already have
// coordinates keep them.
//
// The layout is checked before anything is written: if any pending member
// would land on a taken cell, or two pending members share a cell, nothing
// is placed. A versioned write that loses to a concurrent change mid-way
// is skipped.
//
// All coordinates are committed before any wilderness is generated, so
// fillers never land on cells the same cascade is about to use.
func (c *Cascader) Cascade(ctx context.Context, snap *world.Snapshot, anchorID world.LocationID, coord world.Coordinates, actor world.Actor) (*CascadeResult, error) {
	result := &CascadeResult{}
	if snap.Get(anchorID) == nil {
		return result, nil
	}

	members := ConnectedSubgraph(snap, anchorID)
	positions := RelativePositions(snap, anchorID, members)
	if divergent := CheckConsistency(snap, positions); len(divergent) > 0 {
		c.logger.Warn("Subgraph exits disagree with its layout",
			"anchor_id", anchorID,
			"divergent_exits", len(divergent))
	}

	pending, pendingIDs := pendingPositions(snap, positions)
	if pending.Len() == 0 {
		return result, nil
	}
	ok, err := c.fits(ctx, snap, anchorID, coord, pending, pendingIDs)
	if err != nil {
		return result, err
	}
	if !ok {
		return result, nil
	}

	for _, id := range pending.Order() {
		loc := snap.Get(id)
		o, _ := pending.Offset(id)
		cell := coord.Step(o)

		updated := loc.Clone()
		updated.Coordinates = &cell
		committed, err := c.locations.Update(ctx, updated)
		if err != nil {
			return result, fmt.Errorf("failed to commit coordinates for %s: %w", id, err)
		}
		if !committed {
			c.logger.Warn("Coordinate commit rejected", "location_id", id, "cell", cell.String())
			continue
		}
		snap.Put(updated)
		result.Placed = append(result.Placed, id)
	}

	if c.wilderness != nil {
		for _, id := range result.Placed {
			created, err := c.wilderness.Generate(ctx, snap, id, actor)
			result.Wilderness = append(result.Wilderness, created...)
			if err != nil {
				return result, err
			}
		}
	}

	if len(result.Placed) > 0 {
		c.logger.Info("Coordinates cascaded",
			"anchor_id", anchorID,
			"anchor", coord.String(),
			"placed", len(result.Placed),
			"wilderness", len(result.Wilderness))
	}
	return result, nil
}

// fits reports whether every pending member can take its projected cell.
// The anchor cell is checked against the store as well as the snapshot.
func (c *Cascader) fits(ctx context.Context, snap *world.Snapshot, anchorID world.LocationID, coord world.Coordinates, pending *PositionMap, pendingIDs mapset.Set[world.LocationID]) (bool, error) {
	if !CanPlace(snap, coord, pending, pendingIDs) {
		c.logger.Warn("Cascade blocked by occupied cell",
			"anchor_id", anchorID,
			"anchor", coord.String())
		return false, nil
	}

	claimed := make(map[world.Offset]world.LocationID, pending.Len())
	for _, id := range pending.Order() {
		o, _ := pending.Offset(id)
		if other, taken := claimed[o]; taken {
			c.logger.Warn("Cascade blocked by overlapping members",
				"anchor_id", anchorID,
				"location_id", id,
				"overlaps", other)
			return false, nil
		}
		claimed[o] = id
	}

	if !pendingIDs.Has(anchorID) {
		return true, nil
	}
	holder, err := c.locations.FindByCoordinates(ctx, coord)
	if err != nil {
		return false, fmt.Errorf("failed to look up cell %s: %w", coord.String(), err)
	}
	if holder != nil && holder.ID != anchorID {
		c.logger.Warn("Cascade anchor cell already occupied",
			"anchor_id", anchorID,
			"anchor", coord.String(),
			"occupant_id", holder.ID)
		return false, nil
	}
	return true, nil
}

// pendingPositions keeps only the members that still lack coordinates.
func pendingPositions(snap *world.Snapshot, positions *PositionMap) (*PositionMap, mapset.Set[world.LocationID]) {
	pending := &PositionMap{
		Anchor:  positions.Anchor,
		offsets: make(map[world.LocationID]world.Offset),
	}
	ids := mapset.New[world.LocationID]()
	for _, id := range positions.Order() {
		loc := snap.Get(id)
		if loc == nil || loc.HasCoordinates() {
			continue
		}
		o, _ := positions.Offset(id)
		pending.set(id, o)
		ids.Put(id)
	}
	return pending, ids
}

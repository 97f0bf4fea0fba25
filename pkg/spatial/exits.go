package spatial

import (
	"context"
	"log/slog"

	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/zyedidia/generic/mapset"
)

// ExitChangeProcessor places the targets of newly added exits.
type ExitChangeProcessor struct {
	cascader *Cascader
	logger   *slog.Logger
}

func NewExitChangeProcessor(cascader *Cascader, logger *slog.Logger) *ExitChangeProcessor {
	return &ExitChangeProcessor{
		cascader: cascader,
		logger:   logger,
	}
}

// Process runs after source was saved with newExits in place of oldExits.
// Every added exit to an uncoordinated target anchors a cascade at the cell
// one step from source in the exit's direction. Exits without a compass
// direction carry no geometry and are ignored. Nothing happens when source
// has no coordinates.
//
// snap must already contain source with its new exits.
func (p *ExitChangeProcessor) Process(ctx context.Context, snap *world.Snapshot, source *world.Location, newExits, oldExits []world.Exit, actor world.Actor) (*CascadeResult, error) {
	result := &CascadeResult{}
	if !source.HasCoordinates() {
		return result, nil
	}

	for _, e := range AddedExits(newExits, oldExits) {
		if !e.Direction.IsCompass() {
			p.logger.Debug("Skipping exit without grid direction", "source_id", source.ID, "direction", e.Direction)
			continue
		}
		// Re-read each time: an earlier cascade may already have placed this target.
		target := snap.Get(e.TargetID)
		if target == nil || target.HasCoordinates() {
			continue
		}
		cell := source.Coordinates.Step(e.Direction.Offset())
		r, err := p.cascader.Cascade(ctx, snap, target.ID, cell, actor)
		result.merge(r)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// AddedExits returns the exits in newExits whose target no exit in oldExits points at.
func AddedExits(newExits, oldExits []world.Exit) []world.Exit {
	before := mapset.New[world.LocationID]()
	for _, e := range oldExits {
		before.Put(e.TargetID)
	}
	var added []world.Exit
	for _, e := range newExits {
		if !before.Has(e.TargetID) {
			added = append(added, e)
		}
	}
	return added
}

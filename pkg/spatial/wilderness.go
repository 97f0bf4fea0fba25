package spatial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/jwebster45206/world-engine/pkg/storage"
	"github.com/jwebster45206/world-engine/pkg/world"
)

// AuditLogger receives one entry per record the engine creates.
type AuditLogger interface {
	Record(ctx context.Context, entry world.AuditEntry) error
}

// WildernessGenerator fills the empty neighbouring cells of a placed location.
type WildernessGenerator struct {
	locations storage.LocationRepository
	features  storage.FeatureRepository
	audit     AuditLogger
	rules     *WildernessRules
	logger    *slog.Logger
}

// NewWildernessGenerator wires a generator. A nil rules value uses DefaultWildernessRules;
// a nil audit logger disables auditing.
func NewWildernessGenerator(locations storage.LocationRepository, features storage.FeatureRepository, audit AuditLogger, rules *WildernessRules, logger *slog.Logger) *WildernessGenerator {
	if rules == nil {
		rules = DefaultWildernessRules()
	}
	return &WildernessGenerator{
		locations: locations,
		features:  features,
		audit:     audit,
		rules:     rules,
		logger:    logger,
	}
}

// Generate creates a Wilderness location in every free cell around parentID,
// each with one exit back to the parent, then gives the parent outward exits
// for the new fillers. Existing parent exits are never replaced. Running it
// again with no new free cells creates nothing.
func (g *WildernessGenerator) Generate(ctx context.Context, snap *world.Snapshot, parentID world.LocationID, actor world.Actor) ([]*world.Location, error) {
	parent := snap.Get(parentID)
	if !parent.HasCoordinates() {
		return nil, nil
	}
	origin := *parent.Coordinates

	var free []world.Direction
	for _, d := range world.CompassDirections() {
		if !snap.IsOccupied(origin.Step(d.Offset())) {
			free = append(free, d)
		}
	}
	if len(free) == 0 {
		return nil, nil
	}

	description, err := g.describe(ctx, parent)
	if err != nil {
		return nil, err
	}

	var created []*world.Location
	for _, d := range free {
		cell := origin.Step(d.Offset())
		filler := &world.Location{
			ID:           uuid.New(),
			Name:         world.WildernessName,
			Description:  description,
			Exits:        []world.Exit{{Direction: d.Opposite(), TargetID: parent.ID}},
			Coordinates:  &cell,
			FeatureIDs:   slices.Clone(parent.FeatureIDs),
			IsWilderness: true,
		}
		if err := g.locations.Create(ctx, filler); err != nil {
			if errors.Is(err, storage.ErrCoordinatesOccupied) {
				g.logger.Debug("Wilderness cell claimed concurrently", "parent_id", parent.ID, "cell", cell.String())
				continue
			}
			return created, fmt.Errorf("failed to create wilderness at %s: %w", cell, err)
		}
		snap.Put(filler)
		created = append(created, filler)
		g.record(ctx, world.NewLocationAudit(filler, world.AuditCreate, actor))
	}
	if len(created) == 0 {
		return nil, nil
	}

	// The parent may have been replaced in the snapshot while fillers were added.
	updated := snap.Get(parentID).Clone()
	added := 0
	for _, filler := range created {
		d := filler.Exits[0].Direction.Opposite()
		if _, exists := updated.ExitIn(d); exists {
			continue
		}
		updated.Exits = append(updated.Exits, world.Exit{Direction: d, TargetID: filler.ID})
		added++
	}
	if added > 0 {
		ok, err := g.locations.Update(ctx, updated)
		if err != nil {
			return created, fmt.Errorf("failed to add wilderness exits to %s: %w", parent.ID, err)
		}
		if !ok {
			g.logger.Warn("Location changed while adding wilderness exits", "location_id", parent.ID)
		} else {
			snap.Put(updated)
		}
	}

	g.logger.Debug("Wilderness generated",
		"parent_id", parent.ID,
		"created", len(created),
		"exits_added", added)
	return created, nil
}

func (g *WildernessGenerator) describe(ctx context.Context, parent *world.Location) (string, error) {
	names := make([]string, 0, len(parent.FeatureIDs))
	for _, id := range parent.FeatureIDs {
		f, err := g.features.FindFeatureByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to load feature %s: %w", id, err)
		}
		if f == nil {
			continue
		}
		names = append(names, f.Name)
	}
	return g.rules.Describe(names), nil
}

func (g *WildernessGenerator) record(ctx context.Context, entry world.AuditEntry) {
	if g.audit == nil {
		return
	}
	if err := g.audit.Record(ctx, entry); err != nil {
		g.logger.Warn("Failed to record audit entry", "record_id", entry.RecordID, "error", err)
	}
}

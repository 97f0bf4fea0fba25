package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/jwebster45206/world-engine/internal/services/events"
	"github.com/jwebster45206/world-engine/pkg/spatial"
	"github.com/jwebster45206/world-engine/pkg/storage"
	"github.com/jwebster45206/world-engine/pkg/world"
)

// ExitInput is an exit as submitted by a client. Direction accepts full
// names and short aliases ("n", "ne", "in").
type ExitInput struct {
	Direction string    `json:"direction"`
	TargetID  uuid.UUID `json:"target_id"`
}

// LocationInput carries the editable fields of a location. Coordinates is
// honoured on create only; Version, when non-zero, must match the stored
// version on update.
type LocationInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Exits       []ExitInput        `json:"exits"`
	FeatureIDs  []uuid.UUID        `json:"feature_ids"`
	Coordinates *world.Coordinates `json:"coordinates,omitempty"`
	LockedBy    *string            `json:"locked_by,omitempty"`
	Version     int64              `json:"version,omitempty"`
}

// LocationChange is the outcome of a create or update: the saved location
// and everything the engine placed or generated as a consequence.
type LocationChange struct {
	Location   *world.Location    `json:"location"`
	Placed     []world.LocationID `json:"placed"`
	Wilderness []world.LocationID `json:"wilderness"`
}

type LocationServiceConfig struct {
	Store       storage.Storage
	Audit       spatial.AuditLogger
	History     HistoryReader
	Events      EventPublisher
	Rules       *spatial.WildernessRules
	DefaultArea string
	Logger      *slog.Logger
}

// LocationService orchestrates location edits: validation, persistence,
// placement through the spatial engine, audit and events.
type LocationService struct {
	store       storage.Storage
	audit       spatial.AuditLogger
	history     HistoryReader
	events      EventPublisher
	cascader    *spatial.Cascader
	processor   *spatial.ExitChangeProcessor
	defaultArea string
	logger      *slog.Logger
}

func NewLocationService(cfg LocationServiceConfig) *LocationService {
	area := cfg.DefaultArea
	if area == "" {
		area = world.DefaultArea
	}
	wilderness := spatial.NewWildernessGenerator(cfg.Store, cfg.Store, cfg.Audit, cfg.Rules, cfg.Logger)
	cascader := spatial.NewCascader(cfg.Store, wilderness, cfg.Logger)
	return &LocationService{
		store:       cfg.Store,
		audit:       cfg.Audit,
		history:     cfg.History,
		events:      cfg.Events,
		cascader:    cascader,
		processor:   spatial.NewExitChangeProcessor(cascader, cfg.Logger),
		defaultArea: area,
		logger:      cfg.Logger,
	}
}

// Ping checks the backing store.
func (s *LocationService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *LocationService) GetLocation(ctx context.Context, id world.LocationID) (*world.Location, error) {
	loc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, oops.Wrapf(err, "get location %s", id)
	}
	if loc == nil {
		return nil, ErrLocationNotFound
	}
	return loc, nil
}

func (s *LocationService) ListLocations(ctx context.Context) ([]*world.Location, error) {
	locs, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, oops.Wrapf(err, "list locations")
	}
	return locs, nil
}

// CreateLocation stores a new location and places it. The first location
// in a world without coordinates takes the origin. A location created with
// an exit to a placed location is put on the opposite side of that exit.
func (s *LocationService) CreateLocation(ctx context.Context, actor world.Actor, in LocationInput) (*LocationChange, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	loc := &world.Location{ID: uuid.New()}
	if err := s.apply(ctx, snap, loc, in, actor); err != nil {
		return nil, err
	}

	switch {
	case in.Coordinates != nil:
		c := *in.Coordinates
		if c.Area == "" {
			c.Area = s.defaultArea
		}
		loc.Coordinates = &c
	case !snap.HasCoordinatedLocations():
		loc.Coordinates = &world.Coordinates{X: 0, Y: 0, Area: s.defaultArea}
	}

	if err := s.store.Create(ctx, loc); err != nil {
		if errors.Is(err, storage.ErrCoordinatesOccupied) {
			return nil, oops.Wrapf(ErrInvalidLocation, "coordinates %s are taken", loc.Coordinates)
		}
		return nil, oops.Wrapf(err, "create location %s", loc.ID)
	}
	snap.Put(loc)
	log := s.logger.With("location_id", loc.ID, "actor_id", actor.ID)
	log.Info("Location created", "name", loc.Name, "coordinates", coordString(loc.Coordinates))

	s.record(ctx, world.NewLocationAudit(loc, world.AuditCreate, actor))
	s.publish(ctx, events.LocationCreated(loc, actor))

	result, err := s.place(ctx, snap, loc, nil, actor)
	if err != nil {
		return nil, oops.Wrapf(err, "place location %s", loc.ID)
	}
	return s.change(snap, loc.ID, result), nil
}

// UpdateLocation replaces the editable fields of id. Added exits from a
// placed location cascade coordinates into their targets; an unplaced
// location with an exit to a placed one is placed beside it.
func (s *LocationService) UpdateLocation(ctx context.Context, actor world.Actor, id world.LocationID, in LocationInput) (*LocationChange, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	stored := snap.Get(id)
	if stored == nil {
		return nil, ErrLocationNotFound
	}
	if stored.LockedBy != "" && stored.LockedBy != actor.ID {
		return nil, ErrLocked
	}
	if in.Version != 0 && in.Version != stored.Version {
		return nil, ErrVersionConflict
	}

	updated := stored.Clone()
	if err := s.apply(ctx, snap, updated, in, actor); err != nil {
		return nil, err
	}
	if err := checkAddedExits(snap, stored, updated.Exits); err != nil {
		return nil, err
	}

	ok, err := s.store.Update(ctx, updated)
	if err != nil {
		return nil, oops.Wrapf(err, "update location %s", id)
	}
	if !ok {
		return nil, ErrVersionConflict
	}
	snap.Put(updated)
	s.logger.Info("Location updated", "location_id", id, "actor_id", actor.ID, "version", updated.Version)

	s.record(ctx, world.NewLocationAudit(updated, world.AuditUpdate, actor))
	s.publish(ctx, events.LocationUpdated(updated, actor))

	result, err := s.place(ctx, snap, updated, stored.Exits, actor)
	if err != nil {
		return nil, oops.Wrapf(err, "place location %s", id)
	}
	return s.change(snap, id, result), nil
}

// DeleteLocation removes id and drops every exit that pointed at it.
func (s *LocationService) DeleteLocation(ctx context.Context, actor world.Actor, id world.LocationID) error {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	stored := snap.Get(id)
	if stored == nil {
		return ErrLocationNotFound
	}
	if stored.LockedBy != "" && stored.LockedBy != actor.ID {
		return ErrLocked
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return oops.Wrapf(err, "delete location %s", id)
	}
	snap.Remove(id)

	for _, in := range slices.Clone(snap.Incoming(id)) {
		source := snap.Get(in.SourceID)
		if source == nil {
			continue
		}
		pruned := source.Clone()
		pruned.Exits = slices.DeleteFunc(pruned.Exits, func(e world.Exit) bool { return e.TargetID == id })
		if len(pruned.Exits) == len(source.Exits) {
			continue
		}
		ok, err := s.store.Update(ctx, pruned)
		if err != nil {
			return oops.Wrapf(err, "remove exits to %s from %s", id, source.ID)
		}
		if !ok {
			s.logger.Warn("Could not remove exit to deleted location", "location_id", source.ID, "deleted_id", id)
			continue
		}
		snap.Put(pruned)
	}

	s.logger.Info("Location deleted", "location_id", id, "actor_id", actor.ID)
	s.record(ctx, world.NewLocationAudit(stored, world.AuditDelete, actor))
	s.publish(ctx, events.LocationDeleted(id, stored.Name, actor))
	return nil
}

// ValidateExit reports which directions an exit from sourceID to targetID could take.
func (s *LocationService) ValidateExit(ctx context.Context, sourceID, targetID world.LocationID) (spatial.ExitValidation, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return spatial.ExitValidation{}, err
	}
	return spatial.ValidateExit(snap, sourceID, targetID), nil
}

// Diagnose scans the whole world for integrity problems.
func (s *LocationService) Diagnose(ctx context.Context) (*spatial.DiagnosticReport, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	report := spatial.Diagnose(snap)
	if report.HasWarnings() {
		s.logger.Warn("World diagnostics found problems", "warnings", len(report.Warnings))
	}
	return report, nil
}

// History returns the audit trail of a location or feature.
func (s *LocationService) History(ctx context.Context, recordID string) ([]world.AuditEntry, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	entries, err := s.history.History(ctx, recordID)
	if err != nil {
		return nil, oops.Wrapf(err, "history of %s", recordID)
	}
	return entries, nil
}

func (s *LocationService) snapshot(ctx context.Context) (*world.Snapshot, error) {
	locs, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, oops.Wrapf(err, "load world")
	}
	return world.NewSnapshot(locs), nil
}

// apply validates in against snap and copies it onto loc.
func (s *LocationService) apply(ctx context.Context, snap *world.Snapshot, loc *world.Location, in LocationInput, actor world.Actor) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return oops.Wrapf(ErrInvalidLocation, "name is required")
	}
	if name == world.WildernessName && !loc.IsWilderness {
		return oops.Wrapf(ErrInvalidLocation, "%q is reserved for generated locations", world.WildernessName)
	}

	exits := make([]world.Exit, 0, len(in.Exits))
	used := make(map[world.Direction]bool)
	for i, e := range in.Exits {
		d, ok := world.ParseDirection(e.Direction)
		if !ok || d == world.DirectionUnknown {
			return oops.Wrapf(ErrInvalidLocation, "exit %d: unknown direction %q", i, e.Direction)
		}
		if e.TargetID == loc.ID {
			return oops.Wrapf(ErrInvalidLocation, "exit %d: a location cannot lead to itself", i)
		}
		if snap.Get(e.TargetID) == nil {
			return oops.Wrapf(ErrInvalidLocation, "exit %d: target %s does not exist", i, e.TargetID)
		}
		if used[d] {
			return oops.Wrapf(ErrInvalidLocation, "exit %d: more than one %s exit", i, d)
		}
		used[d] = true
		exits = append(exits, world.Exit{Direction: d, TargetID: e.TargetID})
	}

	for _, fid := range in.FeatureIDs {
		f, err := s.store.FindFeatureByID(ctx, fid)
		if err != nil {
			return oops.Wrapf(err, "get feature %s", fid)
		}
		if f == nil {
			return oops.Wrapf(ErrFeatureNotFound, "feature %s", fid)
		}
	}

	if in.LockedBy != nil && *in.LockedBy != "" && *in.LockedBy != actor.ID {
		return oops.Wrapf(ErrInvalidLocation, "a location can only be locked by the acting user")
	}

	loc.Name = name
	loc.Description = strings.TrimSpace(in.Description)
	loc.Exits = exits
	loc.FeatureIDs = slices.Clone(in.FeatureIDs)
	if in.LockedBy != nil {
		loc.LockedBy = *in.LockedBy
	}
	return nil
}

// checkAddedExits rejects a new grid exit from a placed location when the
// target could not take the cell its direction points at. snap must still
// hold the stored version of the location.
func checkAddedExits(snap *world.Snapshot, stored *world.Location, exits []world.Exit) error {
	if !stored.HasCoordinates() {
		return nil
	}
	for _, e := range spatial.AddedExits(exits, stored.Exits) {
		if !e.Direction.IsCompass() {
			continue
		}
		v := spatial.ValidateExit(snap, stored.ID, e.TargetID)
		allowed := slices.ContainsFunc(v.ValidDirections, func(o spatial.DirectionOption) bool {
			return o.Direction == e.Direction
		})
		if allowed {
			continue
		}
		if v.ErrorMessage != "" {
			return oops.Wrapf(ErrInvalidLocation, "exit %s to %s: %s", e.Direction, e.TargetID, v.ErrorMessage)
		}
		return oops.Wrapf(ErrInvalidLocation, "exit %s to %s: target does not fit that way", e.Direction, e.TargetID)
	}
	return nil
}

// place runs the engine after loc was saved with new exits replacing oldExits.
func (s *LocationService) place(ctx context.Context, snap *world.Snapshot, loc *world.Location, oldExits []world.Exit, actor world.Actor) (*spatial.CascadeResult, error) {
	var (
		result *spatial.CascadeResult
		err    error
	)
	if loc.HasCoordinates() {
		result, err = s.processor.Process(ctx, snap, loc, loc.Exits, oldExits, actor)
	} else {
		result, err = s.placeBesideNeighbour(ctx, snap, loc, actor)
	}
	if result != nil && !result.Empty() {
		s.announce(ctx, snap, result, actor)
	}
	return result, err
}

// placeBesideNeighbour anchors an unplaced location next to the first placed
// exit target whose opposite cell is free.
func (s *LocationService) placeBesideNeighbour(ctx context.Context, snap *world.Snapshot, loc *world.Location, actor world.Actor) (*spatial.CascadeResult, error) {
	for _, e := range loc.Exits {
		if !e.Direction.IsCompass() {
			continue
		}
		target := snap.Get(e.TargetID)
		if !target.HasCoordinates() {
			continue
		}
		cell := target.Coordinates.Step(e.Direction.Opposite().Offset())
		if snap.IsOccupied(cell) {
			continue
		}
		return s.cascader.Cascade(ctx, snap, loc.ID, cell, actor)
	}
	s.logger.Debug("Location left without coordinates", "location_id", loc.ID)
	return &spatial.CascadeResult{}, nil
}

func (s *LocationService) announce(ctx context.Context, snap *world.Snapshot, result *spatial.CascadeResult, actor world.Actor) {
	for _, id := range result.Placed {
		if loc := snap.Get(id); loc.HasCoordinates() {
			s.publish(ctx, events.LocationPlaced(id, *loc.Coordinates, actor))
		}
	}
	for _, w := range result.Wilderness {
		s.publish(ctx, events.LocationCreated(w, actor))
	}
}

func (s *LocationService) change(snap *world.Snapshot, id world.LocationID, result *spatial.CascadeResult) *LocationChange {
	c := &LocationChange{
		Location:   snap.Get(id).Clone(),
		Placed:     []world.LocationID{},
		Wilderness: []world.LocationID{},
	}
	if result == nil {
		return c
	}
	c.Placed = append(c.Placed, result.Placed...)
	for _, w := range result.Wilderness {
		c.Wilderness = append(c.Wilderness, w.ID)
	}
	return c
}

func (s *LocationService) record(ctx context.Context, entry world.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("Failed to record audit entry", "record_id", entry.RecordID, "action", entry.Action, "error", err)
	}
}

func (s *LocationService) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "location_id", event.LocationID, "error", err)
	}
}

func coordString(c *world.Coordinates) string {
	if c == nil {
		return "none"
	}
	return c.String()
}

package world

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultArea is the area used when a coordinate is created without one.
const DefaultArea = "overworld"

// WildernessName is the name given to generated filler locations.
const WildernessName = "Wilderness"

// LocationID identifies a location.
type LocationID = uuid.UUID

// Coordinates place a location on the grid of one area.
type Coordinates struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Area string `json:"area"`
}

// Step returns the cell reached by moving o from c, staying in the same area.
func (c Coordinates) Step(o Offset) Coordinates {
	return Coordinates{X: c.X + o.DX, Y: c.Y + o.DY, Area: c.Area}
}

// OffsetTo returns the delta from c to other. ok is false across areas.
func (c Coordinates) OffsetTo(other Coordinates) (Offset, bool) {
	if c.Area != other.Area {
		return Offset{}, false
	}
	return Offset{DX: other.X - c.X, DY: other.Y - c.Y}, true
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%d,%d,%s)", c.X, c.Y, c.Area)
}

// Exit is a directed, labelled edge to another location.
type Exit struct {
	Direction Direction  `json:"direction"`
	TargetID  LocationID `json:"target_id"`
}

// Location represents a place in the game world with exits and optional grid coordinates.
type Location struct {
	ID           LocationID   `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Exits        []Exit       `json:"exits,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"` // nil until placed
	FeatureIDs   []uuid.UUID  `json:"feature_ids,omitempty"`
	LockedBy     string       `json:"locked_by,omitempty"` // editorial lock, user id
	IsWilderness bool         `json:"is_wilderness,omitempty"`
	Version      int64        `json:"version"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasCoordinates reports whether l has been placed on the grid.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Coordinates != nil
}

// ExitIn returns the first exit labelled d.
func (l *Location) ExitIn(d Direction) (Exit, bool) {
	for _, e := range l.Exits {
		if e.Direction == d {
			return e, true
		}
	}
	return Exit{}, false
}

// ExitTo returns the first exit that targets id.
func (l *Location) ExitTo(id LocationID) (Exit, bool) {
	for _, e := range l.Exits {
		if e.TargetID == id {
			return e, true
		}
	}
	return Exit{}, false
}

// Clone returns a deep copy so callers can mutate without touching a shared snapshot.
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	c.Exits = slices.Clone(l.Exits)
	c.FeatureIDs = slices.Clone(l.FeatureIDs)
	if l.Coordinates != nil {
		coords := *l.Coordinates
		c.Coordinates = &coords
	}
	return &c
}

// Feature is a terrain feature a location can reference.
type Feature struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

// Actor is the user on whose behalf a change is made.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SystemActor is used when no user is attached to a change.
var SystemActor = Actor{ID: "system", Name: "System"}

package world

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Direction labels an exit. The eight compass directions move one grid cell;
// DirectionUnknown and DirectionEnter do not move at all.
type Direction string

const (
	North     Direction = "north"
	Northeast Direction = "northeast"
	East      Direction = "east"
	Southeast Direction = "southeast"
	South     Direction = "south"
	Southwest Direction = "southwest"
	West      Direction = "west"
	Northwest Direction = "northwest"

	DirectionUnknown Direction = "unknown"
	DirectionEnter   Direction = "enter"
)

// Offset is a grid delta. North is +Y, east is +X.
type Offset struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

func (o Offset) Add(other Offset) Offset {
	return Offset{DX: o.DX + other.DX, DY: o.DY + other.DY}
}

func (o Offset) Neg() Offset {
	return Offset{DX: -o.DX, DY: -o.DY}
}

func (o Offset) IsZero() bool {
	return o.DX == 0 && o.DY == 0
}

// compassOrder is the fixed iteration order for every exhaustive
// eight-direction scan (placement, wilderness).
var compassOrder = []Direction{North, Northeast, East, Southeast, South, Southwest, West, Northwest}

var offsets = map[Direction]Offset{
	North:            {DX: 0, DY: 1},
	Northeast:        {DX: 1, DY: 1},
	East:             {DX: 1, DY: 0},
	Southeast:        {DX: 1, DY: -1},
	South:            {DX: 0, DY: -1},
	Southwest:        {DX: -1, DY: -1},
	West:             {DX: -1, DY: 0},
	Northwest:        {DX: -1, DY: 1},
	DirectionUnknown: {},
	DirectionEnter:   {},
}

var opposites = map[Direction]Direction{
	North:            South,
	Northeast:        Southwest,
	East:             West,
	Southeast:        Northwest,
	South:            North,
	Southwest:        Northeast,
	West:             East,
	Northwest:        Southeast,
	DirectionUnknown: DirectionUnknown,
	DirectionEnter:   DirectionEnter,
}

var aliases = map[string]Direction{
	"n":  North,
	"ne": Northeast,
	"e":  East,
	"se": Southeast,
	"s":  South,
	"sw": Southwest,
	"w":  West,
	"nw": Northwest,
	"in": DirectionEnter,
}

// CompassDirections returns the eight grid-moving directions in a stable order.
func CompassDirections() []Direction {
	out := make([]Direction, len(compassOrder))
	copy(out, compassOrder)
	return out
}

// ParseDirection accepts full names and the usual abbreviations, case-insensitive.
func ParseDirection(s string) (Direction, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d, ok := aliases[key]; ok {
		return d, true
	}
	d := Direction(key)
	if _, ok := offsets[d]; ok {
		return d, true
	}
	return DirectionUnknown, false
}

// DirectionForOffset returns the compass direction whose offset is exactly o.
func DirectionForOffset(o Offset) (Direction, bool) {
	for _, d := range compassOrder {
		if offsets[d] == o {
			return d, true
		}
	}
	return DirectionUnknown, false
}

// Offset returns the grid delta for d. Unrecognised directions do not move.
func (d Direction) Offset() Offset {
	return offsets[d]
}

// Opposite returns the reverse direction. Unrecognised directions map to DirectionUnknown.
func (d Direction) Opposite() Direction {
	if o, ok := opposites[d]; ok {
		return o
	}
	return DirectionUnknown
}

// IsCompass reports whether d is one of the eight grid-moving directions.
func (d Direction) IsCompass() bool {
	return !offsets[d].IsZero()
}

// IsValid reports whether d is a known direction, DirectionUnknown included.
func (d Direction) IsValid() bool {
	_, ok := offsets[d]
	return ok
}

func (d Direction) String() string {
	return string(d)
}

var titleCaser = cases.Title(language.English)

// Label is the display form, e.g. "Northeast".
func (d Direction) Label() string {
	return titleCaser.String(string(d))
}

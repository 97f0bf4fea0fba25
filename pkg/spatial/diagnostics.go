package spatial

import (
	"fmt"

	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/zyedidia/generic/mapset"
)

type WarningKind string

const (
	WarningDuplicateCoordinates WarningKind = "duplicate_coordinates"
	WarningMissingExitTarget    WarningKind = "missing_exit_target"
	WarningExitOffsetMismatch   WarningKind = "exit_offset_mismatch"
	WarningAsymmetricExit       WarningKind = "asymmetric_exit"
)

// Warning is a data-integrity problem found in stored data. Warnings are
// reported only; nothing repairs them.
type Warning struct {
	Kind        WarningKind        `json:"kind"`
	LocationIDs []world.LocationID `json:"location_ids"`
	Direction   world.Direction    `json:"direction,omitempty"`
	Message     string             `json:"message"`
}

type DiagnosticReport struct {
	LocationCount    int       `json:"location_count"`
	CoordinatedCount int       `json:"coordinated_count"`
	Warnings         []Warning `json:"warnings"`
}

func (r *DiagnosticReport) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Count returns the number of warnings of kind.
func (r *DiagnosticReport) Count(kind WarningKind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Diagnose scans the whole world for duplicate coordinates, exits to missing
// locations, exits whose direction disagrees with the grid, and exits whose
// return exit is absent or mislabelled.
func Diagnose(snap *world.Snapshot) *DiagnosticReport {
	report := &DiagnosticReport{
		LocationCount: snap.Len(),
		Warnings:      []Warning{},
	}
	reportedPairs := mapset.New[pairKey]()

	for _, loc := range snap.All() {
		if loc.HasCoordinates() {
			report.CoordinatedCount++
			occupants := snap.OccupantsAt(*loc.Coordinates)
			if len(occupants) > 1 && occupants[0] == loc.ID {
				report.Warnings = append(report.Warnings, Warning{
					Kind:        WarningDuplicateCoordinates,
					LocationIDs: append([]world.LocationID(nil), occupants...),
					Message:     fmt.Sprintf("%d locations share %s", len(occupants), loc.Coordinates),
				})
			}
		}

		for _, e := range loc.Exits {
			target := snap.Get(e.TargetID)
			if target == nil {
				report.Warnings = append(report.Warnings, Warning{
					Kind:        WarningMissingExitTarget,
					LocationIDs: []world.LocationID{loc.ID, e.TargetID},
					Direction:   e.Direction,
					Message:     fmt.Sprintf("%q has a %s exit to a missing location", loc.Name, e.Direction),
				})
				continue
			}
			if !e.Direction.IsCompass() {
				continue
			}

			if loc.HasCoordinates() && target.HasCoordinates() {
				want := loc.Coordinates.Step(e.Direction.Offset())
				if want != *target.Coordinates {
					report.Warnings = append(report.Warnings, Warning{
						Kind:        WarningExitOffsetMismatch,
						LocationIDs: []world.LocationID{loc.ID, target.ID},
						Direction:   e.Direction,
						Message: fmt.Sprintf("%q %s exit expects %s but %q is at %s",
							loc.Name, e.Direction, want, target.Name, target.Coordinates),
					})
				}
			}

			back, ok := target.ExitTo(loc.ID)
			if ok && hasExit(target, loc.ID, e.Direction.Opposite()) {
				continue
			}
			key := newPairKey(loc.ID, target.ID)
			if reportedPairs.Has(key) {
				continue
			}
			reportedPairs.Put(key)
			msg := fmt.Sprintf("%q has a %s exit to %q with no return exit", loc.Name, e.Direction, target.Name)
			if ok {
				msg = fmt.Sprintf("%q has a %s exit to %q but the return exit is %s, not %s",
					loc.Name, e.Direction, target.Name, back.Direction, e.Direction.Opposite())
			}
			report.Warnings = append(report.Warnings, Warning{
				Kind:        WarningAsymmetricExit,
				LocationIDs: []world.LocationID{loc.ID, target.ID},
				Direction:   e.Direction,
				Message:     msg,
			})
		}
	}
	return report
}

func hasExit(loc *world.Location, target world.LocationID, d world.Direction) bool {
	for _, e := range loc.Exits {
		if e.TargetID == target && e.Direction == d {
			return true
		}
	}
	return false
}

type pairKey struct {
	a, b world.LocationID
}

func newPairKey(x, y world.LocationID) pairKey {
	if x.String() > y.String() {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

package spatial

import (
	"testing"

	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanPlace(t *testing.T) {
	// t -> u east; foreign location at (2,0)
	target, u := newLoc("T"), newLoc("U")
	link(target, world.East, u)
	foreign := at(newLoc("Foreign"), 2, 0)
	snap := world.NewSnapshot([]*world.Location{target, u, foreign})
	members := ConnectedSubgraph(snap, target.ID)
	positions := RelativePositions(snap, target.ID, members)

	assert.False(t, CanPlace(snap, cell(1, 0), positions, members), "u would land on the foreign cell")
	assert.False(t, CanPlace(snap, cell(2, 0), positions, members), "anchor would land on the foreign cell")
	assert.True(t, CanPlace(snap, cell(5, 5), positions, members))
}

func TestCanPlace_MembersMayKeepTheirCells(t *testing.T) {
	target := newLoc("T")
	placed := at(newLoc("Placed"), 1, 0)
	link(target, world.East, placed)
	snap := world.NewSnapshot([]*world.Location{target, placed})
	members := ConnectedSubgraph(snap, target.ID)
	positions := RelativePositions(snap, target.ID, members)

	assert.True(t, CanPlace(snap, cell(0, 0), positions, members))
}

func TestValidateExit_IsolatedTargetOffersAllDirections(t *testing.T) {
	source := at(newLoc("Source"), 0, 0)
	target := newLoc("Target")
	snap := world.NewSnapshot([]*world.Location{source, target})

	v := ValidateExit(snap, source.ID, target.ID)
	require.True(t, v.CanCreateExit)
	assert.Empty(t, v.ErrorMessage)
	assert.False(t, v.TargetHasCoordinates)
	assert.False(t, v.TargetIsConnected)
	require.Len(t, v.ValidDirections, 8)
	for i, d := range world.CompassDirections() {
		opt := v.ValidDirections[i]
		assert.Equal(t, d, opt.Direction)
		assert.False(t, opt.IsFixed)
		assert.Equal(t, cell(0, 0).Step(d.Offset()), opt.TargetCoordinates)
	}
}

func TestValidateExit_CoordinatedNeighbourIsFixed(t *testing.T) {
	source := at(newLoc("Source"), 0, 0)
	target := at(newLoc("Target"), 1, 0)
	snap := world.NewSnapshot([]*world.Location{source, target})

	v := ValidateExit(snap, source.ID, target.ID)
	require.True(t, v.CanCreateExit)
	require.Len(t, v.ValidDirections, 1)
	assert.Equal(t, world.East, v.ValidDirections[0].Direction)
	assert.True(t, v.ValidDirections[0].IsFixed)
	assert.Equal(t, cell(1, 0), v.ValidDirections[0].TargetCoordinates)
	assert.True(t, v.TargetHasCoordinates)
}

func TestValidateExit_DiagonalNeighbour(t *testing.T) {
	source := at(newLoc("Source"), 3, 3)
	target := at(newLoc("Target"), 2, 2)
	snap := world.NewSnapshot([]*world.Location{source, target})

	v := ValidateExit(snap, source.ID, target.ID)
	require.True(t, v.CanCreateExit)
	assert.Equal(t, world.Southwest, v.ValidDirections[0].Direction)
}

func TestValidateExit_Failures(t *testing.T) {
	source := at(newLoc("Source"), 0, 0)
	far := at(newLoc("Far"), 2, 0)
	otherArea := newLoc("Cave")
	otherArea.Coordinates = &world.Coordinates{X: 1, Y: 0, Area: "caves"}
	unplaced := newLoc("Unplaced")
	unplacedTarget, neighbour := newLoc("UnplacedTarget"), newLoc("Neighbour")
	link(unplacedTarget, world.North, neighbour)
	snap := world.NewSnapshot([]*world.Location{source, far, otherArea, unplaced, unplacedTarget, neighbour})

	tests := []struct {
		name          string
		source        *world.Location
		target        *world.Location
		wantMessage   string
		wantHasCoords bool
		wantConnected bool
	}{
		{"not adjacent", source, far, MsgNotAdjacent, true, false},
		{"other area", source, otherArea, MsgNotAdjacent, true, false},
		{"source without coordinates", unplaced, far, MsgSourceNoCoordinates, true, false},
		{"source without coordinates, connected target", unplaced, unplacedTarget, MsgSourceNoCoordinates, false, true},
		{"self", source, source, MsgSelfExit, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateExit(snap, tt.source.ID, tt.target.ID)
			assert.False(t, v.CanCreateExit)
			assert.Empty(t, v.ValidDirections)
			assert.Equal(t, tt.wantMessage, v.ErrorMessage)
			assert.Equal(t, tt.wantHasCoords, v.TargetHasCoordinates)
			assert.Equal(t, tt.wantConnected, v.TargetIsConnected)
		})
	}

	missing := ValidateExit(snap, newLoc("x").ID, far.ID)
	assert.Equal(t, MsgSourceNotFound, missing.ErrorMessage)
	missing = ValidateExit(snap, source.ID, newLoc("x").ID)
	assert.Equal(t, MsgTargetNotFound, missing.ErrorMessage)
}

func TestValidateExit_SubgraphConflictsNarrowDirections(t *testing.T) {
	// Target drags u along one cell east of it. A foreign location at (2,0)
	// rules out east, and the source itself rules out west.
	source := at(newLoc("Source"), 0, 0)
	target, u := newLoc("Target"), newLoc("U")
	link(target, world.East, u)
	foreign := at(newLoc("Foreign"), 2, 0)
	snap := world.NewSnapshot([]*world.Location{source, target, u, foreign})

	v := ValidateExit(snap, source.ID, target.ID)
	require.True(t, v.CanCreateExit)
	assert.True(t, v.TargetIsConnected)

	var got []world.Direction
	for _, opt := range v.ValidDirections {
		got = append(got, opt.Direction)
	}
	assert.Equal(t, []world.Direction{
		world.North, world.Northeast, world.Southeast, world.South, world.Southwest, world.Northwest,
	}, got)
}

func TestValidateExit_NoRoom(t *testing.T) {
	source := at(newLoc("Source"), 0, 0)
	locs := []*world.Location{source}
	for _, d := range world.CompassDirections() {
		o := d.Offset()
		locs = append(locs, at(newLoc(string(d)), o.DX, o.DY))
	}
	target := newLoc("Target")
	locs = append(locs, target)
	snap := world.NewSnapshot(locs)

	v := ValidateExit(snap, source.ID, target.ID)
	assert.False(t, v.CanCreateExit)
	assert.Equal(t, MsgNoValidDirections, v.ErrorMessage)
	assert.Empty(t, v.ValidDirections)
}

func TestValidateExit_DoesNotWrite(t *testing.T) {
	source := at(newLoc("Source"), 0, 0)
	target := newLoc("Target")
	snap := world.NewSnapshot([]*world.Location{source, target})

	ValidateExit(snap, source.ID, target.ID)
	assert.False(t, snap.Get(target.ID).HasCoordinates())
	assert.Equal(t, 2, snap.Len())
}

package spatial

import (
	"context"
	"errors"
	"testing"

	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascade_PlacesWholeSubgraph(t *testing.T) {
	ctx := context.Background()
	// a -> b east, c -> b south (c north of b)
	a, b, c := newLoc("A"), newLoc("B"), newLoc("C")
	link(a, world.East, b)
	link(c, world.South, b)
	e := newEngine(a, b, c)

	result, err := e.cascader.Cascade(ctx, e.snapshot(t), a.ID, cell(10, 10), world.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, []world.LocationID{a.ID, b.ID, c.ID}, result.Placed)

	assert.Equal(t, cell(10, 10), *e.get(t, a.ID).Coordinates)
	assert.Equal(t, cell(11, 10), *e.get(t, b.ID).Coordinates)
	assert.Equal(t, cell(11, 11), *e.get(t, c.ID).Coordinates)

	// Wilderness fills around all three without touching their cells.
	assert.NotEmpty(t, result.Wilderness)
	for _, f := range result.Wilderness {
		assert.NotEqual(t, cell(10, 10), *f.Coordinates)
		assert.NotEqual(t, cell(11, 10), *f.Coordinates)
		assert.NotEqual(t, cell(11, 11), *f.Coordinates)
	}

	report := Diagnose(e.snapshot(t))
	assert.Zero(t, report.Count(WarningDuplicateCoordinates))
	assert.Zero(t, report.Count(WarningExitOffsetMismatch))
}

func TestCascade_NeverOverwritesCoordinates(t *testing.T) {
	ctx := context.Background()
	a := newLoc("A")
	placed := at(newLoc("Placed"), 50, 50) // disagrees with a's exit on purpose
	link(a, world.North, placed)
	e := newEngine(a, placed)

	result, err := e.cascader.Cascade(ctx, e.snapshot(t), a.ID, cell(0, 0), world.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, []world.LocationID{a.ID}, result.Placed)
	assert.Equal(t, cell(50, 50), *e.get(t, placed.ID).Coordinates)
}

func TestCascade_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newLoc("A")
	e := newEngine(a)

	first, err := e.cascader.Cascade(ctx, e.snapshot(t), a.ID, cell(0, 0), world.SystemActor)
	require.NoError(t, err)
	assert.Len(t, first.Placed, 1)
	assert.Len(t, first.Wilderness, 8)

	second, err := e.cascader.Cascade(ctx, e.snapshot(t), a.ID, cell(0, 0), world.SystemActor)
	require.NoError(t, err)
	assert.True(t, second.Empty())
}

func TestCascade_BlockedLayoutPlacesNothing(t *testing.T) {
	tests := []struct {
		name  string
		build func() (anchor *world.Location, pending []*world.Location, all []*world.Location)
	}{
		{
			name: "far member blocked",
			build: func() (*world.Location, []*world.Location, []*world.Location) {
				a, b := newLoc("A"), newLoc("B")
				link(a, world.East, b)
				blocker := at(newLoc("Blocker"), 1, 0)
				return a, []*world.Location{a, b}, []*world.Location{a, b, blocker}
			},
		},
		{
			name: "anchor blocked with far member free",
			build: func() (*world.Location, []*world.Location, []*world.Location) {
				a, b, c := newLoc("A"), newLoc("B"), newLoc("C")
				link(a, world.East, b)
				link(b, world.East, c)
				blocker := at(newLoc("Blocker"), 0, 0)
				return a, []*world.Location{a, b, c}, []*world.Location{a, b, c, blocker}
			},
		},
		{
			name: "members project onto one cell",
			build: func() (*world.Location, []*world.Location, []*world.Location) {
				// b-d and c-e both reach (1,1)
				a, b, c, d, e := newLoc("A"), newLoc("B"), newLoc("C"), newLoc("D"), newLoc("E")
				link(a, world.East, b)
				link(a, world.North, c)
				link(b, world.North, d)
				link(c, world.East, e)
				locs := []*world.Location{a, b, c, d, e}
				return a, locs, locs
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchor, pending, all := tt.build()
			e := newEngine(all...)

			result, err := e.cascader.Cascade(context.Background(), e.snapshot(t), anchor.ID, cell(0, 0), world.SystemActor)
			require.NoError(t, err)
			assert.True(t, result.Empty())
			for _, loc := range pending {
				assert.False(t, e.get(t, loc.ID).HasCoordinates(), loc.Name)
			}
		})
	}
}

func TestCascade_AnchorCellTakenSinceSnapshot(t *testing.T) {
	ctx := context.Background()
	a, other := newLoc("A"), newLoc("Other")
	e := newEngine(a, other)
	stale := e.snapshot(t)

	_, err := e.cascader.Cascade(ctx, e.snapshot(t), other.ID, cell(0, 0), world.SystemActor)
	require.NoError(t, err)

	result, err := e.cascader.Cascade(ctx, stale, a.ID, cell(0, 0), world.SystemActor)
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.False(t, e.get(t, a.ID).HasCoordinates())
}

func TestCascade_StaleSnapshotLosesVersionCheck(t *testing.T) {
	ctx := context.Background()
	a := newLoc("A")
	e := newEngine(a)
	stale := e.snapshot(t)

	// Another request places a first.
	_, err := e.cascader.Cascade(ctx, e.snapshot(t), a.ID, cell(3, 3), world.SystemActor)
	require.NoError(t, err)

	result, err := e.cascader.Cascade(ctx, stale, a.ID, cell(-7, -7), world.SystemActor)
	require.NoError(t, err)
	assert.Empty(t, result.Placed)
	assert.Equal(t, cell(3, 3), *e.get(t, a.ID).Coordinates)
}

func TestCascade_RepositoryErrorPropagates(t *testing.T) {
	a := newLoc("A")
	e := newEngine(a)
	e.store.FailUpdates = errors.New("redis down")

	_, err := e.cascader.Cascade(context.Background(), e.snapshot(t), a.ID, cell(0, 0), world.SystemActor)
	assert.ErrorContains(t, err, "redis down")
}

func TestCascade_UnknownAnchor(t *testing.T) {
	e := newEngine()
	result, err := e.cascader.Cascade(context.Background(), e.snapshot(t), newLoc("ghost").ID, cell(0, 0), world.SystemActor)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

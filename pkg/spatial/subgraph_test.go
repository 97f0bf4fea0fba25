package spatial

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/stretchr/testify/assert"
)

func TestConnectedSubgraph_Singleton(t *testing.T) {
	a := newLoc("A")
	b := newLoc("B")
	snap := world.NewSnapshot([]*world.Location{a, b})

	members := ConnectedSubgraph(snap, a.ID)
	assert.Equal(t, 1, members.Size())
	assert.True(t, members.Has(a.ID))
}

func TestConnectedSubgraph_FollowsExitsBothWays(t *testing.T) {
	// a -> b, c -> b, c -> d ; e is separate
	a, b, c, d, e := newLoc("A"), newLoc("B"), newLoc("C"), newLoc("D"), newLoc("E")
	link(a, world.East, b)
	link(c, world.North, b)
	link(c, world.South, d)
	snap := world.NewSnapshot([]*world.Location{a, b, c, d, e})

	members := ConnectedSubgraph(snap, a.ID)
	assert.Equal(t, 4, members.Size())
	for _, l := range []*world.Location{a, b, c, d} {
		assert.True(t, members.Has(l.ID), l.Name)
	}
	assert.False(t, members.Has(e.ID))
}

func TestConnectedSubgraph_IsSymmetric(t *testing.T) {
	a, b, c, d, e, f := newLoc("A"), newLoc("B"), newLoc("C"), newLoc("D"), newLoc("E"), newLoc("F")
	link(a, world.North, b)
	link(c, world.West, b)
	link(d, world.DirectionEnter, c)
	link(e, world.East, f)
	link(f, world.West, e)
	locs := []*world.Location{a, b, c, d, e, f}
	snap := world.NewSnapshot(locs)

	for _, x := range locs {
		sx := ConnectedSubgraph(snap, x.ID)
		for _, y := range locs {
			sy := ConnectedSubgraph(snap, y.ID)
			assert.Equal(t, sx.Has(y.ID), sy.Has(x.ID), "%s/%s", x.Name, y.Name)
		}
	}
}

func TestConnectedSubgraph_IgnoresMissingTargets(t *testing.T) {
	a := newLoc("A")
	a.Exits = append(a.Exits, world.Exit{Direction: world.North, TargetID: uuid.New()})
	snap := world.NewSnapshot([]*world.Location{a})

	members := ConnectedSubgraph(snap, a.ID)
	assert.Equal(t, 1, members.Size())
}

func TestConnectedSubgraph_Cycle(t *testing.T) {
	a, b, c := newLoc("A"), newLoc("B"), newLoc("C")
	link(a, world.East, b)
	link(b, world.North, c)
	link(c, world.Southwest, a)
	snap := world.NewSnapshot([]*world.Location{a, b, c})

	assert.Equal(t, 3, ConnectedSubgraph(snap, b.ID).Size())
}

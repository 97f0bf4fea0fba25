package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/world-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFeature(ctx, ada, FeatureInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidFeature)

	river, err := f.svc.CreateFeature(ctx, ada, FeatureInput{Name: " River Crossing ", Description: "Shallow ford."})
	require.NoError(t, err)
	assert.Equal(t, "River Crossing", river.Name)
	assert.Equal(t, []world.AuditAction{world.AuditCreate}, f.audit.actions(river.ID.String()))

	got, err := f.svc.GetFeature(ctx, river.ID)
	require.NoError(t, err)
	assert.Equal(t, river, got)

	_, err = f.svc.GetFeature(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrFeatureNotFound)

	list, err := f.svc.ListFeatures(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWildernessDescribedByParentFeatures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	forest, err := f.svc.CreateFeature(ctx, ada, FeatureInput{Name: "Whispering Forest"})
	require.NoError(t, err)
	a := f.create(t, LocationInput{Name: "A"})

	change, err := f.svc.CreateLocation(ctx, ada, LocationInput{
		Name:       "Glade",
		FeatureIDs: []uuid.UUID{forest.ID},
		Exits:      []ExitInput{{Direction: "east", TargetID: a.ID}},
	})
	require.NoError(t, err)
	require.Len(t, change.Wilderness, 7)

	for _, id := range change.Wilderness {
		w, err := f.svc.GetLocation(ctx, id)
		require.NoError(t, err)
		assert.True(t, w.IsWilderness)
		assert.Equal(t, world.WildernessName, w.Name)
		assert.Equal(t, "Sparse trees dot the landscape.", w.Description)
		assert.Equal(t, []uuid.UUID{forest.ID}, w.FeatureIDs)
	}
}

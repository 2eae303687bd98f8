package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

func TestLocationLifecycle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	capacity := 40
	loc, err := CreateLocation(ctx, database, model.Location{
		Name:        "Storage Room A",
		Capacity:    &capacity,
		Responsible: "Ana",
	})
	require.NoError(t, err)
	require.NotNil(t, loc.Capacity)
	assert.Equal(t, 40, *loc.Capacity)

	name := "Storage Room B"
	found, err := UpdateLocation(ctx, database, loc.ID, LocationPatch{Name: &name, ClearCapacity: true}, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, found)

	got, _ := GetLocation(ctx, database, loc.ID)
	assert.Equal(t, "Storage Room B", got.Name)
	assert.Nil(t, got.Capacity)
	assert.Equal(t, "Ana", got.Responsible)

	all, _ := ListLocations(ctx, database)
	assert.Len(t, all, 1)

	require.NoError(t, DeleteLocation(ctx, database, loc.ID))
	gone, err := GetLocation(ctx, database, loc.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCategories(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tools, err := CreateCategory(ctx, database, "Tools")
	require.NoError(t, err)
	CreateCategory(ctx, database, "electronics")

	list, _ := ListCategories(ctx, database)
	require.Len(t, list, 2)
	assert.Equal(t, "electronics", list[0].Name)

	require.NoError(t, PutCategory(ctx, database, model.Category{ID: tools.ID, Name: "Hand tools"}))
	got, _ := GetCategory(ctx, database, tools.ID)
	assert.Equal(t, "Hand tools", got.Name)

	require.NoError(t, DeleteCategory(ctx, database, tools.ID))
	got, _ = GetCategory(ctx, database, tools.ID)
	assert.Nil(t, got)
}

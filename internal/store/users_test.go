package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, model.User{Name: "Ana Lima", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, model.RoleMember, user.Role, "role defaults to member")

	got, err := GetUser(ctx, database, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana Lima", got.Name)
}

func TestGetUserByEmailIgnoresCase(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, model.User{Name: "Rui", Email: "Rui@Example.com", Role: model.RoleAdmin})

	user, err := GetUserByEmail(ctx, database, "rui@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, model.RoleAdmin, user.Role)

	missing, err := GetUserByEmail(ctx, database, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateEmailRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateUser(ctx, database, model.User{Name: "A", Email: "same@example.com"})
	require.NoError(t, err)
	_, err = CreateUser(ctx, database, model.User{Name: "B", Email: "SAME@example.com"})
	assert.Error(t, err)
}

func TestUpdateUserAndPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, model.User{Name: "Old", Email: "old@example.com"})
	require.NoError(t, UpdateUser(ctx, database, user.ID, "New", "new@example.com", model.RoleAdmin))
	require.NoError(t, UpdateUserPassword(ctx, database, user.ID, "hash"))

	got, _ := GetUser(ctx, database, user.ID)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, model.RoleAdmin, got.Role)
	assert.True(t, got.HasPassword())

	users, err := ListUsers(ctx, database)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	count, _ := CountUsers(ctx, database)
	assert.Equal(t, 1, count)
}

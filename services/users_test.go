package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.users.CreateUser(ctx, 123456789, "testuser", "Test", "User")
	require.NoError(t, err)
	assert.NotZero(t, id)

	user, err := env.users.GetUser(ctx, 123456789)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)
	assert.False(t, user.IsMaster)
	assert.False(t, user.IsAdmin)
	assert.False(t, user.Mute)
	assert.Equal(t, "Test User (@testuser)", user.DisplayName())

	_, err = env.users.CreateUser(ctx, 123456789, "again", "", "")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = env.users.CreateUser(ctx, 0, "nobody", "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetUserMissing(t *testing.T) {
	env := newTestEnv(t)
	user, err := env.users.GetUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = env.users.GetUserByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestEnsureUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, created, err := env.users.EnsureUser(ctx, 77, "neo", "Thomas", "Anderson")
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, user)

	again, created, err := env.users.EnsureUser(ctx, 77, "renamed", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "neo", again.Username)
}

func TestUserFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, 5, "gm")

	ok, err := env.users.SetMaster(ctx, 5, true)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.users.SetAdmin(ctx, 5, true)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.users.MuteUser(ctx, 5, true)
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := env.users.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.True(t, user.IsMaster)
	assert.True(t, user.IsAdmin)
	assert.True(t, user.Mute)

	ok, err = env.users.SetMaster(ctx, 5, false)
	require.NoError(t, err)
	assert.True(t, ok)
	user, err = env.users.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.False(t, user.IsMaster)

	ok, err = env.users.SetMaster(ctx, 404, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.user(t, 1, "first")
	env.user(t, 2, "muted")
	third := env.user(t, 3, "third")
	_, err := env.users.MuteUser(ctx, 2, true)
	require.NoError(t, err)

	all, err := env.users.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, first, all[0].ID)

	unmuted, err := env.users.GetUnmutedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, unmuted, 2)
	assert.Equal(t, first, unmuted[0].ID)
	assert.Equal(t, third, unmuted[1].ID)

	byID, err := env.users.GetUsersByIDs(ctx, []uint{third, 999})
	require.NoError(t, err)
	assert.Len(t, byID, 1)
	assert.Equal(t, "third", byID[third].Username)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	master := env.user(t, 1, "gm")
	player := env.user(t, 2, "player")
	table := env.table(t, master, "Tomb", 4)
	_, _, err := env.registrations.CreateRegistration(ctx, table, player)
	require.NoError(t, err)

	_, err = env.users.DeleteUser(ctx, 1)
	assert.ErrorIs(t, err, ErrValidation)

	ok, err := env.users.DeleteUser(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, env.rowsForPair(t, table, player))

	ok, err = env.users.DeleteUser(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

package service

import (
	"context"
	"testing"

	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsersCarriesLastLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice", "secret1", models.RoleAdmin, models.StatusActive)
	testutil.CreateUser(t, env.db, "bob", "secret1", models.RoleUser, models.StatusActive)

	_, err := env.auth.Login(ctx, "alice", "secret1", ClientInfo{IP: "10.0.0.1"})
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "alice", "secret1", ClientInfo{IP: "10.0.0.2"})
	require.NoError(t, err)

	users, total, err := env.users.ListUsers(ctx, repository.UserFilter{}, repository.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	byName := map[string]UserDetail{}
	for _, u := range users {
		byName[u.Username] = u
	}
	require.NotNil(t, byName["alice"].LastLogin)
	require.NotNil(t, byName["alice"].LastLogin.IP)
	assert.Equal(t, "10.0.0.2", *byName["alice"].LastLogin.IP)
	assert.Nil(t, byName["bob"].LastLogin)

	filtered, total, err := env.users.ListUsers(ctx, repository.UserFilter{Role: models.RoleAdmin}, repository.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, alice.ID, filtered[0].ID)
}

func TestDeactivateUserRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "alice", "secret1", models.RoleUser, models.StatusActive)

	login, err := env.auth.Login(ctx, "alice", "secret1", ClientInfo{})
	require.NoError(t, err)

	detail, err := env.users.DeactivateUser(ctx, user.ID, &Actor{ID: 42, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, detail.Status)

	_, err = env.auth.RefreshWithRotation(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = env.auth.Login(ctx, "alice", "secret1", ClientInfo{})
	assert.ErrorIs(t, err, ErrUserDisabled)

	_, err = env.users.DeactivateUser(ctx, 9999, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "alice", "secret1", models.RoleUser, models.StatusActive)
	testutil.CreateUser(t, env.db, "bob", "secret1", models.RoleUser, models.StatusActive)

	role := "external"
	password := "another1"
	detail, err := env.users.UpdateUser(ctx, user.ID, UpdateUserRequest{Role: &role, Password: &password}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoleExternal, detail.Role)

	_, err = env.auth.Login(ctx, "alice", "another1", ClientInfo{})
	assert.NoError(t, err)

	taken := "bob"
	_, err = env.users.UpdateUser(ctx, user.ID, UpdateUserRequest{Username: &taken}, nil)
	assert.ErrorIs(t, err, ErrDuplicate)

	bad := "owner"
	_, err = env.users.UpdateUser(ctx, user.ID, UpdateUserRequest{Role: &bad}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

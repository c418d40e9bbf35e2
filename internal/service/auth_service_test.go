package service

import (
	"context"
	"testing"

	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.db, "alice", "secret1", models.RoleUser, models.StatusActive)

	_, err := env.auth.Login(ctx, "alice", "wrong-pass", ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "nobody", "secret1", ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledUser(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "bob", "secret1", models.RoleUser, models.StatusInactive)

	_, err := env.auth.Login(context.Background(), "bob", "secret1", ClientInfo{})
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.db, "alice", "secret1", models.RoleUser, models.StatusActive)

	login, err := env.auth.Login(ctx, "alice", "secret1", ClientInfo{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)

	pair, err := env.auth.RefreshWithRotation(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	_, err = env.auth.RefreshWithRotation(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = env.auth.RefreshWithRotation(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshChainLinksSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "alice", "secret1", models.RoleUser, models.StatusActive)

	login, err := env.auth.Login(ctx, "alice", "secret1", ClientInfo{})
	require.NoError(t, err)

	const rotations = 4
	token := login.RefreshToken
	for i := 0; i < rotations; i++ {
		pair, err := env.auth.RefreshWithRotation(ctx, token)
		require.NoError(t, err)
		token = pair.RefreshToken
	}

	sessions, err := env.sessions.ListSessionsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, rotations+1)

	byID := map[string]models.RefreshSession{}
	replaced := map[string]bool{}
	active := 0
	for _, s := range sessions {
		byID[s.ID] = s
		if s.ReplacedByID != nil {
			replaced[*s.ReplacedByID] = true
		}
		if !s.Revoked {
			active++
		}
	}
	assert.Equal(t, 1, active)

	// exactly one session is nobody's successor: the login session
	var head *models.RefreshSession
	for i := range sessions {
		if !replaced[sessions[i].ID] {
			require.Nil(t, head, "chain has more than one root")
			head = &sessions[i]
		}
	}
	require.NotNil(t, head)

	steps := 0
	for head.ReplacedByID != nil {
		assert.True(t, head.Revoked)
		next, ok := byID[*head.ReplacedByID]
		require.True(t, ok)
		head = &next
		steps++
	}
	assert.Equal(t, rotations, steps)
	assert.False(t, head.Revoked)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "alice", "secret1", models.RoleUser, models.StatusActive)

	login, err := env.auth.Login(ctx, "alice", "secret1", ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(user).Update("status", models.StatusInactive).Error)

	_, err = env.auth.RefreshWithRotation(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.RefreshWithRotation(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// a well signed token for a session that was never stored
	token, err := env.signer.GenerateRefreshToken(1, "missing-session")
	require.NoError(t, err)
	_, err = env.auth.RefreshWithRotation(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.db, "alice", "secret1", models.RoleUser, models.StatusActive)

	login, err := env.auth.Login(ctx, "alice", "secret1", ClientInfo{})
	require.NoError(t, err)

	revoked, err := env.auth.Revoke(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = env.auth.Revoke(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = env.auth.Revoke(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, revoked)

	_, err = env.auth.RefreshWithRotation(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRegisterRoleGating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, RegisterRequest{Username: "carol", Password: "secret1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = env.auth.Register(ctx, RegisterRequest{Username: "mallory", Password: "secret1", Role: "admin"}, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.auth.Register(ctx, RegisterRequest{Username: "eve", Password: "secret1", Role: "ADMIN"},
		&Actor{ID: user.ID, Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)

	admin, err := env.auth.Register(ctx, RegisterRequest{Username: "dave", Password: "secret1", Role: "admin"},
		&Actor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = env.auth.Register(ctx, RegisterRequest{Username: "carol", Password: "secret1"}, nil)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = env.auth.Register(ctx, RegisterRequest{Username: "zz", Password: "secret1"}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	login, err := env.auth.Login(ctx, "carol", "secret1", ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "carol", login.User.Username)
}

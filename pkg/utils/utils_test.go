package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	signer := NewTokenSigner("access", "refresh", time.Minute, time.Hour)

	access, err := signer.GenerateAccessToken(7, "ADMIN")
	require.NoError(t, err)
	claims, err := signer.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", claims.Role)
	id, err := SubjectUserID(claims)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	refresh, err := signer.GenerateRefreshToken(7, "session-1")
	require.NoError(t, err)
	rc, err := signer.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "session-1", rc.ID)

	// tokens are not interchangeable
	_, err = signer.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = signer.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	signer := NewTokenSigner("access", "refresh", time.Minute, time.Hour)
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }

	token, err := signer.GenerateAccessToken(1, "USER")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(30 * time.Second) }
	_, err = signer.ValidateAccessToken(token)
	assert.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = signer.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenRequiresSession(t *testing.T) {
	signer := NewTokenSigner("access", "refresh", time.Minute, time.Hour)
	token, err := signer.GenerateRefreshToken(1, "")
	require.NoError(t, err)
	_, err = signer.ValidateRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.ValidateRefreshToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, ComparePassword(hash, "hunter22"))
	assert.False(t, ComparePassword(hash, "hunter23"))
	assert.False(t, ComparePassword("not-a-hash", "hunter22"))
}

func TestNewPageMeta(t *testing.T) {
	assert.Equal(t, PageMeta{Total: 21, Page: 2, PageSize: 10, TotalPages: 3}, NewPageMeta(21, 2, 10))
	assert.Equal(t, 0, NewPageMeta(0, 1, 10).TotalPages)
	assert.Equal(t, 0, NewPageMeta(5, 1, 0).TotalPages)
}

func TestPagedResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	PagedResponse(c, []int{1, 2}, NewPageMeta(2, 1, 10))
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool     `json:"success"`
		Data    []int    `json:"data"`
		Meta    PageMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []int{1, 2}, body.Data)
	assert.Equal(t, 1, body.Meta.TotalPages)
}

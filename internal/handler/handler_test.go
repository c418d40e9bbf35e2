package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/internal/testutil"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db := testutil.NewDB(t)
	testutil.CreateUser(t, db, "admin", "secret123", models.RoleAdmin, models.StatusActive)

	log := logrus.New()
	log.SetOutput(io.Discard)
	userRepo := repository.NewUserRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	sink := audit.NewDBSink(auditRepo)
	signer := utils.NewTokenSigner("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	authHandler := NewAuthHandler(service.NewAuthService(userRepo, sessionRepo, signer, sink, log), CookieConfig{MaxAge: 3600})
	areaHandler := NewAreaHandler(service.NewAreaService(repository.NewAreaRepo(db), sink, log))
	authn := middleware.NewAuthenticator(signer, userRepo)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/login", authHandler.Login)
	api.POST("/refresh", middleware.RequireTrustedOrigin([]string{"http://localhost:3000"}, authHandler.ClearRefreshCookie), authHandler.Refresh)
	api.POST("/logout", authHandler.Logout)
	api.GET("/me", authn.RequireAuth(), authHandler.Me)
	api.GET("/areas", authn.RequireAuth(), areaHandler.GetAllAreas)
	api.POST("/areas", authn.RequireAuth(), areaHandler.CreateArea)
	api.DELETE("/areas/:id", authn.RequireAuth(), middleware.RequireRole(models.RoleAdmin), areaHandler.DeleteArea)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}, mutate func(*http.Request)) *httptest.ResponseRecorder {
	var payload io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		payload = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func login(t *testing.T, r http.Handler) (string, *http.Cookie) {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/login", gin.H{"username": "admin", "password": "secret123"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	cookie := refreshCookie(w)
	require.NotNil(t, cookie)
	return data.AccessToken, cookie
}

func TestLoginSetsRefreshCookie(t *testing.T) {
	r := newTestRouter(t)

	token, cookie := login(t, r)
	assert.NotEmpty(t, token)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)

	w := doJSON(r, http.MethodPost, "/api/login", gin.H{"username": "admin", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decode(t, w).Success)

	w = doJSON(r, http.MethodPost, "/api/login", gin.H{"username": "admin"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshRotatesCookie(t *testing.T) {
	r := newTestRouter(t)
	_, cookie := login(t, r)

	fromApp := func(c *http.Cookie) func(*http.Request) {
		return func(req *http.Request) {
			req.Header.Set("Origin", "http://localhost:3000")
			req.AddCookie(c)
		}
	}

	w := doJSON(r, http.MethodPost, "/api/refresh", nil, fromApp(cookie))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := refreshCookie(w)
	require.NotNil(t, rotated)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	// the old token was consumed by the rotation
	w = doJSON(r, http.MethodPost, "/api/refresh", nil, fromApp(cookie))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	cleared := refreshCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestRefreshRejectsForeignOrigin(t *testing.T) {
	r := newTestRouter(t)
	_, cookie := login(t, r)

	w := doJSON(r, http.MethodPost, "/api/refresh", nil, func(req *http.Request) {
		req.Header.Set("Origin", "https://evil.example")
		req.AddCookie(cookie)
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotNil(t, refreshCookie(w))

	w = doJSON(r, http.MethodPost, "/api/refresh", nil, func(req *http.Request) {
		req.AddCookie(cookie)
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	r := newTestRouter(t)
	_, cookie := login(t, r)

	w := doJSON(r, http.MethodPost, "/api/logout", nil, func(req *http.Request) { req.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Revoked bool `json:"revoked"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.True(t, data.Revoked)
	assert.Less(t, refreshCookie(w).MaxAge, 0)

	w = doJSON(r, http.MethodPost, "/api/logout", nil, func(req *http.Request) { req.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.False(t, data.Revoked)

	w = doJSON(r, http.MethodPost, "/api/logout", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeAndAreas(t *testing.T) {
	r := newTestRouter(t)
	token, _ := login(t, r)
	bearer := func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }

	w := doJSON(r, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/api/me", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"username":"admin"`)

	w = doJSON(r, http.MethodPost, "/api/areas", gin.H{"name": "Gudang A"}, bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var area models.Area
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &area))
	assert.Equal(t, "Gudang A", area.Name)

	w = doJSON(r, http.MethodPost, "/api/areas", gin.H{}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodDelete, "/api/areas/abc", nil, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodDelete, fmt.Sprintf("/api/areas/%d", area.ID), nil, bearer)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodDelete, fmt.Sprintf("/api/areas/%d", area.ID), nil, bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidRefreshToken, http.StatusUnauthorized},
		{service.ErrUserDisabled, http.StatusForbidden},
		{fmt.Errorf("%w: title is required", service.ErrValidation), http.StatusBadRequest},
		{&service.FileError{Index: 2, Err: service.ErrInvalidTakenAt}, http.StatusBadRequest},
		{service.ErrCategorySlotTaken, http.StatusConflict},
		{service.ErrAreaInUse, http.StatusConflict},
		{fmt.Errorf("get photo: %w", service.ErrNotFound), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondErrorFileIndex(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, &service.FileError{Index: 1, Err: service.ErrInvalidCategory}, "fallback")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, 1, body["fileIndex"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, errors.New("boom"), "Failed to do it")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to do it")
	assert.Len(t, c.Errors, 1)
}

func TestParseFileMeta(t *testing.T) {
	meta, err := parseFileMeta(`[{"category":"before","takenAt":"2024-01-02","keterangan":"x"}]`)
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, "before", meta[0].Category)

	_, err = parseFileMeta(`[{"category":"before","extra":1}]`)
	assert.Error(t, err)

	_, err = parseFileMeta(`{"category":"before"}`)
	assert.Error(t, err)
}

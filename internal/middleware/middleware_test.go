package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func newAuthenticator() (*Authenticator, *utils.TokenSigner) {
	signer := utils.NewTokenSigner("access", "refresh", time.Minute, time.Hour)
	users := fakeUsers{
		1: {ID: 1, Username: "admin", Role: models.RoleAdmin, Status: models.StatusActive},
		2: {ID: 2, Username: "user", Role: models.RoleUser, Status: models.StatusActive},
		3: {ID: 3, Username: "gone", Role: models.RoleUser, Status: models.StatusInactive},
	}
	return NewAuthenticator(signer, users), signer
}

func TestAuthenticate(t *testing.T) {
	auth, signer := newAuthenticator()
	ctx := context.Background()

	token, err := signer.GenerateAccessToken(1, models.RoleAdmin)
	require.NoError(t, err)
	p, err := auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), p.UserID)
	assert.Equal(t, models.RoleAdmin, p.Role)

	_, err = auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = auth.Authenticate(ctx, "junk")
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh, err := signer.GenerateRefreshToken(1, "session")
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh tokens are signed with another secret")

	inactive, err := signer.GenerateAccessToken(3, models.RoleUser)
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, inactive)
	assert.ErrorIs(t, err, service.ErrUserDisabled)

	unknown, err := signer.GenerateAccessToken(9, models.RoleUser)
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, unknown)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthorize(t *testing.T) {
	user := &Principal{UserID: 2, Role: models.RoleUser}
	assert.NoError(t, Authorize(user))
	assert.NoError(t, Authorize(user, models.RoleAdmin, models.RoleUser))
	assert.ErrorIs(t, Authorize(user, models.RoleAdmin), service.ErrForbidden)
	assert.ErrorIs(t, Authorize(nil), ErrMissingToken)
}

func TestRequireRoleRoutes(t *testing.T) {
	auth, signer := newAuthenticator()
	r := gin.New()
	r.GET("/admin", auth.RequireAuth(), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		require.True(t, ok)
		c.String(http.StatusOK, p.Username)
	})

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	adminToken, _ := signer.GenerateAccessToken(1, models.RoleAdmin)
	userToken, _ := signer.GenerateAccessToken(2, models.RoleUser)
	goneToken, _ := signer.GenerateAccessToken(3, models.RoleUser)

	w := do(adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())
	assert.Equal(t, http.StatusForbidden, do(userToken).Code)
	assert.Equal(t, http.StatusForbidden, do(goneToken).Code)
	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("nope").Code)
}

func TestRequireTrustedOrigin(t *testing.T) {
	rejected := false
	r := gin.New()
	r.POST("/refresh", RequireTrustedOrigin([]string{"https://app.example.com"}, func(*gin.Context) { rejected = true }),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(header, value string) int {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		if header != "" {
			req.Header.Set(header, value)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, do("Origin", "https://app.example.com"))
	assert.Equal(t, http.StatusNoContent, do("Referer", "https://app.example.com/login?next=/"))
	assert.False(t, rejected)
	assert.Equal(t, http.StatusForbidden, do("Origin", "https://evil.example.com"))
	assert.True(t, rejected)
	assert.Equal(t, http.StatusForbidden, do("", ""))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://other")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := l.Take(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second, _ := l.Take(ctx, "ip")
	assert.True(t, second.Allowed)
	denied, _ := l.Take(ctx, "ip")
	assert.False(t, denied.Allowed)
	assert.InDelta(t, float64(30*time.Second), float64(denied.RetryAfter), float64(time.Millisecond))

	other, _ := l.Take(ctx, "other-ip")
	assert.True(t, other.Allowed, "budgets are per key")

	second.Refund()
	again, _ := l.Take(ctx, "ip")
	assert.True(t, again.Allowed)

	now = now.Add(2 * time.Minute)
	l.Sweep()
	assert.Empty(t, l.entries)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewMemoryLimiter(2, time.Minute)
	r := gin.New()
	r.POST("/login", RateLimit(limiter, RateLimitOptions{Name: "auth", SkipSuccessful: true}, logrus.New()), func(c *gin.Context) {
		if c.Query("ok") == "1" {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusUnauthorized)
	})

	do := func(ok bool) *httptest.ResponseRecorder {
		target := "/login"
		if ok {
			target += "?ok=1"
		}
		req := httptest.NewRequest(http.MethodPost, target, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// successful requests are refunded and never exhaust the budget
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(true).Code)
	}
	assert.Equal(t, http.StatusUnauthorized, do(false).Code)
	assert.Equal(t, http.StatusUnauthorized, do(false).Code)

	w := do(false)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	r := gin.New()
	r.GET("/x", RateLimit(NewRedisLimiter(rdb, "rl", 1, time.Minute), RateLimitOptions{Name: "general"}, logrus.New()),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

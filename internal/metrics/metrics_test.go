package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/areas/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/areas/3", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Contains(t, scrape(t), `fad_monitoring_http_requests_total{method="GET",path="/api/areas/:id",status="204"} 1`)
}

func TestDomainCountersAreExposed(t *testing.T) {
	RecordAuth("refresh", "rotated")
	RecordPhotosIngested(3)
	RecordRateLimited("auth")

	body := scrape(t)
	assert.Contains(t, body, `fad_monitoring_auth_events_total{event="refresh",result="rotated"} 1`)
	assert.Contains(t, body, "fad_monitoring_photos_ingested_total 3")
	assert.Contains(t, body, `fad_monitoring_http_rate_limited_total{limiter="auth"} 1`)
}

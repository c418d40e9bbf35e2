package middleware

import (
	"net/http"
	"net/url"

	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RequestOrigin returns the Origin header, falling back to the scheme and host of the Referer
func RequestOrigin(c *gin.Context) string {
	if origin := c.GetHeader("Origin"); origin != "" {
		return origin
	}
	ref, err := url.Parse(c.GetHeader("Referer"))
	if err != nil || ref.Scheme == "" || ref.Host == "" {
		return ""
	}
	return ref.Scheme + "://" + ref.Host
}

// RequireTrustedOrigin rejects cookie-authenticated requests from origins outside the allow list.
// onReject runs before the 403 is written, e.g. to clear a cookie.
func RequireTrustedOrigin(allowedOrigins []string, onReject func(*gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := RequestOrigin(c)
		if origin == "" || !originAllowed(origin, allowedOrigins) {
			if onReject != nil {
				onReject(c)
			}
			utils.ErrorResponse(c, http.StatusForbidden, "Origin not allowed")
			c.Abort()
			return
		}
		c.Next()
	}
}

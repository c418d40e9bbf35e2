package handler

import (
	"net/http"

	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refreshToken"

// CookieConfig controls the refresh token cookie
type CookieConfig struct {
	Path   string
	Secure bool
	MaxAge int
}

type AuthHandler struct {
	authService *service.AuthService
	cookie      CookieConfig
}

func NewAuthHandler(authService *service.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Path == "" {
		cookie.Path = "/api"
	}
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	if h.cookie.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(refreshCookieName, token, h.cookie.MaxAge, h.cookie.Path, "", h.cookie.Secure, true)
}

// ClearRefreshCookie expires the refresh token cookie
func (h *AuthHandler) ClearRefreshCookie(c *gin.Context) {
	if h.cookie.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(refreshCookieName, "", -1, h.cookie.Path, "", h.cookie.Secure, true)
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, service.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err, "Failed to login")
		return
	}

	h.setRefreshCookie(c, response.RefreshToken)
	utils.SuccessResponse(c, response)
}

// Refresh rotates the refresh token cookie and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		h.ClearRefreshCookie(c)
		utils.ErrorResponse(c, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	pair, err := h.authService.RefreshWithRotation(c.Request.Context(), refreshToken)
	if err != nil {
		h.ClearRefreshCookie(c)
		respondError(c, err, "Failed to refresh token")
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	utils.SuccessResponse(c, pair)
}

// Logout revokes the refresh token and always clears the cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	revoked := false
	if refreshToken, err := c.Cookie(refreshCookieName); err == nil && refreshToken != "" {
		if revoked, err = h.authService.Revoke(c.Request.Context(), refreshToken); err != nil {
			h.ClearRefreshCookie(c)
			respondError(c, err, "Failed to logout")
			return
		}
	}

	h.ClearRefreshCookie(c)
	utils.SuccessResponse(c, gin.H{
		"message": "Logged out successfully",
		"revoked": revoked,
	})
}

// Register creates an account. Anyone may create a USER; other roles need an ADMIN token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to register user")
		return
	}

	utils.CreatedResponse(c, user)
}

// Me returns the authenticated principal
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	utils.SuccessResponse(c, gin.H{"user": principal})
}

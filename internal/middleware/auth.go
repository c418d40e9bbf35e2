package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Principal is the authenticated user attached to a request
type Principal struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// Actor converts the principal into the caller passed to services
func (p *Principal) Actor() *service.Actor {
	if p == nil {
		return nil
	}
	return &service.Actor{ID: p.UserID, Role: p.Role}
}

// UserFinder loads the current state of a user
type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Authenticator verifies access tokens against the user table
type Authenticator struct {
	signer *utils.TokenSigner
	users  UserFinder
}

func NewAuthenticator(signer *utils.TokenSigner, users UserFinder) *Authenticator {
	return &Authenticator{signer: signer, users: users}
}

// Authenticate resolves a bearer token to a principal. The user must still exist and be ACTIVE,
// so deactivation takes effect before the access token expires.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := a.signer.ValidateAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := utils.SubjectUserID(claims)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, service.ErrUserDisabled
	}
	return &Principal{UserID: user.ID, Username: user.Username, Role: user.Role, Status: user.Status}, nil
}

// Authorize checks the principal holds one of roles. No roles means any authenticated user.
func Authorize(p *Principal, roles ...string) error {
	if p == nil {
		return ErrMissingToken
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}
	return service.ErrForbidden
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(parts[1]), nil
}

// RequireAuth rejects requests without a valid access token
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortAuth(c, err)
			return
		}
		principal, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, err)
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalAuth attaches a principal when a valid token is present and never rejects
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := bearerToken(c); err == nil {
			if principal, err := a.Authenticate(c.Request.Context(), token); err == nil {
				setPrincipal(c, principal)
			}
		}
		c.Next()
	}
}

// RequireRole must run after RequireAuth
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := CurrentPrincipal(c)
		if err := Authorize(principal, roles...); err != nil {
			abortAuth(c, err)
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the principal set by the auth middleware
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

// CurrentActor returns the caller for service calls, nil when anonymous
func CurrentActor(c *gin.Context) *service.Actor {
	p, _ := CurrentPrincipal(c)
	return p.Actor()
}

func setPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
	c.Set("userID", p.UserID)
	c.Set("role", p.Role)
}

func abortAuth(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserDisabled):
		utils.ErrorResponse(c, http.StatusForbidden, "User not active")
	case errors.Is(err, service.ErrForbidden):
		utils.ErrorResponse(c, http.StatusForbidden, "Access denied")
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidToken):
		utils.ErrorResponse(c, http.StatusUnauthorized, err.Error())
	default:
		_ = c.Error(err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to authenticate")
	}
	c.Abort()
}

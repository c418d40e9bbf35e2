package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/metrics"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// equalizes login timing when the username does not exist
const dummyPasswordHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoO5rJ9Cj3mP6GXz5EbJGpREnhGmcQheMi"

type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	signer      *utils.TokenSigner
	sink        audit.Sink
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewAuthService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	signer *utils.TokenSigner,
	sink audit.Sink,
	log logrus.FieldLogger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		signer:      signer,
		sink:        sink,
		log:         log.WithField("component", "auth"),
		now:         time.Now,
	}
}

// LoginResponse represents the response structure for login
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"-"`
	User         UserResponse `json:"user"`
}

// TokenPair is the result of a refresh rotation
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status,omitempty"`
}

// ClientInfo describes the caller for the audit trail
type ClientInfo struct {
	IP        string
	UserAgent string
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Role: u.Role, Status: u.Status}
}

// Login authenticates a user, opens a new session and returns tokens bound to it
func (s *AuthService) Login(ctx context.Context, username, password string, client ClientInfo) (*LoginResponse, error) {
	user, err := s.userRepo.FindUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		utils.ComparePassword(dummyPasswordHash, password)
		metrics.RecordAuth("login", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !utils.ComparePassword(user.PasswordHash, password) {
		metrics.RecordAuth("login", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		metrics.RecordAuth("login", "disabled")
		return nil, ErrUserDisabled
	}

	session := s.newSession(user.ID)
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	accessToken, refreshToken, err := s.issue(user, session.ID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Entity:    audit.EntityUser,
		Operation: audit.OpLogin,
		UserID:    &user.ID,
		Data: map[string]interface{}{
			"userId":    user.ID,
			"username":  user.Username,
			"ip":        client.IP,
			"userAgent": client.UserAgent,
		},
	})
	metrics.RecordAuth("login", "success")

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         newUserResponse(user),
	}, nil
}

// RefreshWithRotation consumes a refresh token and returns a pair bound to its successor session.
// Every failure mode collapses to ErrInvalidRefreshToken.
func (s *AuthService) RefreshWithRotation(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.signer.ValidateRefreshToken(refreshToken)
	if err != nil {
		metrics.RecordAuth("refresh", "invalid_token")
		return nil, ErrInvalidRefreshToken
	}
	userID, err := utils.SubjectUserID(claims)
	if err != nil {
		metrics.RecordAuth("refresh", "invalid_token")
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.sessionRepo.FindSessionByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordAuth("refresh", "unknown_session")
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.Revoked {
		s.log.WithFields(logrus.Fields{"session_id": session.ID, "user_id": session.UserID}).
			Warn("revoked refresh token presented again")
		metrics.RecordAuth("refresh", "replay")
		return nil, ErrInvalidRefreshToken
	}
	if session.UserID != userID || s.now().After(session.ExpiresAt) {
		metrics.RecordAuth("refresh", "invalid_token")
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil || !user.IsActive() {
		metrics.RecordAuth("refresh", "inactive_user")
		return nil, ErrInvalidRefreshToken
	}

	successor := s.newSession(user.ID)
	if err := s.sessionRepo.Rotate(ctx, session.ID, successor); err != nil {
		if errors.Is(err, repository.ErrSessionRevoked) {
			s.log.WithField("session_id", session.ID).Warn("concurrent refresh lost rotation race")
			metrics.RecordAuth("refresh", "replay")
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	accessToken, newRefresh, err := s.issue(user, successor.ID)
	if err != nil {
		return nil, err
	}
	metrics.RecordAuth("refresh", "rotated")

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Revoke marks the token's session revoked and reports whether a change occurred.
// Invalid or unknown tokens report false without an error.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	claims, err := s.signer.ValidateRefreshToken(refreshToken)
	if err != nil {
		return false, nil
	}

	revoked, err := s.sessionRepo.RevokeSession(ctx, claims.ID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	if revoked {
		var userID *uint
		if id, err := utils.SubjectUserID(claims); err == nil {
			userID = &id
		}
		s.record(ctx, audit.Entry{Entity: audit.EntityUser, Operation: audit.OpLogout, UserID: userID})
		metrics.RecordAuth("logout", "revoked")
	} else {
		metrics.RecordAuth("logout", "noop")
	}
	return revoked, nil
}

// RegisterRequest holds the fields for a new account
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// Register creates a new account. Only an ADMIN actor may assign a role other than USER.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, actor *Actor) (*UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	if err := validateCredentials(username, req.Password); err != nil {
		return nil, err
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, validationf("unknown role %q", req.Role)
	}
	if role != models.RoleUser && (actor == nil || actor.Role != models.RoleAdmin) {
		return nil, ErrForbidden
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Status:       models.StatusActive,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = &email
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("username: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	resp := newUserResponse(user)
	s.record(ctx, audit.Entry{Entity: audit.EntityUser, Operation: audit.OpRegister, UserID: actor.UserID(), Data: resp})
	return &resp, nil
}

func (s *AuthService) newSession(userID uint) *models.RefreshSession {
	return &models.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.signer.RefreshTokenExpiry()),
	}
}

func (s *AuthService) issue(user *models.User, sessionID string) (string, string, error) {
	accessToken, err := s.signer.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.signer.GenerateRefreshToken(user.ID, sessionID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func (s *AuthService) record(ctx context.Context, entry audit.Entry) {
	recordAudit(ctx, s.sink, s.log, entry)
}

func validateCredentials(username, password string) error {
	if len(username) < 3 || len(username) > 50 {
		return validationf("username must be 3-50 characters")
	}
	if len(password) < 6 {
		return validationf("password must be at least 6 characters")
	}
	return nil
}

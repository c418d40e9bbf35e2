package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

type UserService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	auditRepo   *repository.AuditRepository
	sink        audit.Sink
	log         logrus.FieldLogger
}

func NewUserService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	auditRepo *repository.AuditRepository,
	sink audit.Sink,
	log logrus.FieldLogger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		sink:        sink,
		log:         log.WithField("component", "users"),
	}
}

// LastLogin is taken from the newest USER/LOGIN audit entry
type LastLogin struct {
	Timestamp time.Time `json:"timestamp"`
	IP        *string   `json:"ip"`
}

// UserDetail is the admin view of a user
type UserDetail struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Email     *string    `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *LastLogin `json:"last_login"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
	Password *string `json:"password"`
}

func newUserDetail(u *models.User, last *models.AuditLog) UserDetail {
	d := UserDetail{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if last != nil {
		d.LastLogin = &LastLogin{Timestamp: last.CreatedAt}
		var data struct {
			IP string `json:"ip"`
		}
		if err := json.Unmarshal([]byte(last.Data), &data); err == nil && data.IP != "" {
			d.LastLogin.IP = &data.IP
		}
	}
	return d
}

// ListUsers returns a page of users with their last login
func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter, page repository.Page) ([]UserDetail, int64, error) {
	users, total, err := s.userRepo.ListUsers(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	logins, err := s.auditRepo.LatestByUser(ctx, audit.EntityUser, audit.OpLogin, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load last logins: %w", err)
	}

	details := make([]UserDetail, len(users))
	for i := range users {
		var last *models.AuditLog
		if l, ok := logins[users[i].ID]; ok {
			last = &l
		}
		details[i] = newUserDetail(&users[i], last)
	}
	return details, total, nil
}

// GetUser returns one user with last login
func (s *UserService) GetUser(ctx context.Context, id uint) (*UserDetail, error) {
	user, err := s.userRepo.FindUserByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	logins, err := s.auditRepo.LatestByUser(ctx, audit.EntityUser, audit.OpLogin, []uint{id})
	if err != nil {
		return nil, fmt.Errorf("failed to load last login: %w", err)
	}
	var last *models.AuditLog
	if l, ok := logins[id]; ok {
		last = &l
	}
	detail := newUserDetail(user, last)
	return &detail, nil
}

// UpdateUser applies a partial update. Deactivating a user also revokes their sessions.
func (s *UserService) UpdateUser(ctx context.Context, id uint, req UpdateUserRequest, actor *Actor) (*UserDetail, error) {
	fields := map[string]interface{}{}
	var updated []string

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if len(username) < 3 || len(username) > 50 {
			return nil, validationf("username must be 3-50 characters")
		}
		fields["username"] = username
		updated = append(updated, "username")
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			fields["email"] = nil
		} else {
			fields["email"] = email
		}
		updated = append(updated, "email")
	}
	if req.Role != nil {
		role := strings.ToUpper(strings.TrimSpace(*req.Role))
		if !models.ValidRole(role) {
			return nil, validationf("unknown role %q", *req.Role)
		}
		fields["role"] = role
		updated = append(updated, "role")
	}
	if req.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*req.Status))
		if !models.ValidStatus(status) {
			return nil, validationf("unknown status %q", *req.Status)
		}
		fields["status"] = status
		updated = append(updated, "status")
	}
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		if len(*req.Password) < 6 {
			return nil, validationf("password must be at least 6 characters")
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password"] = hash
		updated = append(updated, "password")
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateUser(ctx, id, fields); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, fmt.Errorf("username: %w", ErrDuplicate)
			}
			return nil, mapRepoErr(err)
		}
	}
	if status, ok := fields["status"]; ok && status == models.StatusInactive {
		if _, err := s.sessionRepo.RevokeAllForUser(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}

	detail, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{
		Entity:    audit.EntityUser,
		Operation: audit.OpUpdate,
		UserID:    actor.UserID(),
		Data: map[string]interface{}{
			"id":            detail.ID,
			"username":      detail.Username,
			"role":          detail.Role,
			"status":        detail.Status,
			"updatedFields": updated,
		},
	})
	return detail, nil
}

// DeactivateUser sets the user INACTIVE and revokes every session they hold
func (s *UserService) DeactivateUser(ctx context.Context, id uint, actor *Actor) (*UserDetail, error) {
	if err := s.userRepo.UpdateUser(ctx, id, map[string]interface{}{"status": models.StatusInactive}); err != nil {
		return nil, mapRepoErr(err)
	}
	revoked, err := s.sessionRepo.RevokeAllForUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	detail, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{
		Entity:    audit.EntityUser,
		Operation: audit.OpDelete,
		UserID:    actor.UserID(),
		Data: map[string]interface{}{
			"id":              detail.ID,
			"username":        detail.Username,
			"status":          detail.Status,
			"revokedSessions": revoked,
			"action":          "soft_delete_deactivate",
		},
	})
	return detail, nil
}

func (s *UserService) record(ctx context.Context, entry audit.Entry) {
	recordAudit(ctx, s.sink, s.log, entry)
}

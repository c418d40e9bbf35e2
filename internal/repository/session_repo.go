package repository

import (
	"context"
	"errors"
	"time"

	"fad-monitoring-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSessionRevoked is returned when a guarded update finds the session already revoked
var ErrSessionRevoked = errors.New("session already revoked")

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts a new ACTIVE session
func (r *SessionRepository) CreateSession(ctx context.Context, session *models.RefreshSession) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error)
}

// FindSessionByID returns a session regardless of its revocation state
func (r *SessionRepository) FindSessionByID(ctx context.Context, id string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// Rotate inserts successor and revokes the session identified by currentID in one transaction.
// The revoke is guarded by revoked = false so only one concurrent caller can win; the loser
// gets ErrSessionRevoked and its successor row is rolled back.
func (r *SessionRepository) Rotate(ctx context.Context, currentID string, successor *models.RefreshSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(successor).Error; err != nil {
			return translate(err)
		}

		result := tx.Model(&models.RefreshSession{}).
			Where("id = ? AND revoked = ?", currentID, false).
			Updates(map[string]interface{}{
				"revoked":        true,
				"replaced_by_id": successor.ID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSessionRevoked
		}
		return nil
	})
}

// RevokeSession marks an ACTIVE session revoked and reports whether a change occurred
func (r *SessionRepository) RevokeSession(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.RefreshSession{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevokeAllForUser revokes every ACTIVE session owned by the user
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.RefreshSession{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	return result.RowsAffected, result.Error
}

// ListSessionsByUser returns a user's sessions oldest first
func (r *SessionRepository) ListSessionsByUser(ctx context.Context, userID uint) ([]models.RefreshSession, error) {
	var sessions []models.RefreshSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// PurgeStaleSessions deletes sessions that expired before now or were revoked before cutoff
func (r *SessionRepository) PurgeStaleSessions(ctx context.Context, now, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked = ? AND updated_at < ?)", now, true, cutoff).
		Delete(&models.RefreshSession{})
	return result.RowsAffected, result.Error
}

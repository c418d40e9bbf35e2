package repository

import (
	"context"
	"time"

	"fad-monitoring-backend/internal/models"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilter narrows change log listings. From/To bound created_at inclusively.
type AuditFilter struct {
	Entity    string
	Operation string
	Search    string
	From      *time.Time
	To        *time.Time
}

// CountByKey is one row of a grouped count
type CountByKey struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// AuditStats summarizes the change log
type AuditStats struct {
	Total       int64        `json:"total"`
	ByEntity    []CountByKey `json:"by_entity"`
	ByOperation []CountByKey `json:"by_operation"`
	LastWeek    int64        `json:"last_week"`
	Today       int64        `json:"today"`
}

// CreateAuditLog creates a new audit log entry
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListAuditLogs returns a page of audit entries, newest first
func (r *AuditRepository) ListAuditLogs(ctx context.Context, filter AuditFilter, page Page) ([]models.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.Entity != "" {
		query = query.Where("entity = ?", filter.Entity)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("entity LIKE ? OR operation LIKE ? OR data LIKE ?", like, like, like)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	err := query.Scopes(paginate(page)).Order("created_at DESC").Order("id DESC").Find(&logs).Error
	return logs, total, err
}

// LatestAuditLog returns the most recent entry for an entity
func (r *AuditRepository) LatestAuditLog(ctx context.Context, entity string) (*models.AuditLog, error) {
	var log models.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity = ?", entity).
		Order("created_at DESC").
		Order("id DESC").
		First(&log).Error
	if err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

// LatestByUser returns the newest entry with the given entity and operation for each user id
func (r *AuditRepository) LatestByUser(ctx context.Context, entity, operation string, userIDs []uint) (map[uint]models.AuditLog, error) {
	result := make(map[uint]models.AuditLog, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	latest := r.db.Model(&models.AuditLog{}).
		Select("MAX(id)").
		Where("entity = ? AND operation = ? AND user_id IN ?", entity, operation, userIDs).
		Group("user_id")

	var logs []models.AuditLog
	if err := r.db.WithContext(ctx).Where("id IN (?)", latest).Find(&logs).Error; err != nil {
		return nil, err
	}
	for _, log := range logs {
		if log.UserID != nil {
			result[*log.UserID] = log
		}
	}
	return result, nil
}

// Stats aggregates totals by entity and operation plus recent activity counts
func (r *AuditRepository) Stats(ctx context.Context, now time.Time) (*AuditStats, error) {
	db := r.db.WithContext(ctx).Model(&models.AuditLog{})
	stats := &AuditStats{}

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).
		Select("entity AS `key`, COUNT(*) AS count").
		Group("entity").
		Order("count DESC").
		Scan(&stats.ByEntity).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).
		Select("operation AS `key`, COUNT(*) AS count").
		Group("operation").
		Order("count DESC").
		Scan(&stats.ByOperation).Error; err != nil {
		return nil, err
	}

	weekAgo := now.AddDate(0, 0, -7)
	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", weekAgo).Count(&stats.LastWeek).Error; err != nil {
		return nil, err
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", dayStart).Count(&stats.Today).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

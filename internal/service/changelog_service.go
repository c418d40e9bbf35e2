package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
)

type ChangeLogService struct {
	auditRepo *repository.AuditRepository
	loc       *time.Location
	now       func() time.Time
}

func NewChangeLogService(auditRepo *repository.AuditRepository) *ChangeLogService {
	return &ChangeLogService{auditRepo: auditRepo, loc: time.Local, now: time.Now}
}

// ChangeLogQuery filters the change log. From and To are whole days.
type ChangeLogQuery struct {
	Entity    string
	Operation string
	Search    string
	From      string
	To        string
}

// ChangeLogEntry is an audit row with its payload decoded
type ChangeLogEntry struct {
	ID        uint            `json:"id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	UserID    *uint           `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

func newChangeLogEntry(log models.AuditLog) ChangeLogEntry {
	data := json.RawMessage(log.Data)
	if !json.Valid(data) {
		data, _ = json.Marshal(log.Data)
	}
	return ChangeLogEntry{
		ID:        log.ID,
		Entity:    log.Entity,
		Operation: log.Operation,
		UserID:    log.UserID,
		Data:      data,
		CreatedAt: log.CreatedAt,
	}
}

func (s *ChangeLogService) List(ctx context.Context, q ChangeLogQuery, page repository.Page) ([]ChangeLogEntry, int64, error) {
	from, to, err := dayBounds(strings.TrimSpace(q.From), strings.TrimSpace(q.To), s.loc)
	if err != nil {
		return nil, 0, err
	}
	filter := repository.AuditFilter{
		Entity:    strings.ToUpper(strings.TrimSpace(q.Entity)),
		Operation: strings.ToUpper(strings.TrimSpace(q.Operation)),
		Search:    strings.TrimSpace(q.Search),
		From:      from,
		To:        to,
	}
	logs, total, err := s.auditRepo.ListAuditLogs(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	entries := make([]ChangeLogEntry, len(logs))
	for i, log := range logs {
		entries[i] = newChangeLogEntry(log)
	}
	return entries, total, nil
}

// LastUpdate returns when the entity last changed, nil if it never did
func (s *ChangeLogService) LastUpdate(ctx context.Context, entity string) (*time.Time, error) {
	entity = strings.ToUpper(strings.TrimSpace(entity))
	if entity == "" {
		return nil, validationf("entity is required")
	}
	log, err := s.auditRepo.LatestAuditLog(ctx, entity)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log.CreatedAt, nil
}

func (s *ChangeLogService) Stats(ctx context.Context) (*repository.AuditStats, error) {
	return s.auditRepo.Stats(ctx, s.now().In(s.loc))
}

// Package audit records change-log entries for every mutation.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
)

// Entities
const (
	EntityUser        = "USER"
	EntitySession     = "SESSION"
	EntityArea        = "AREA"
	EntityPhoto       = "PHOTO"
	EntityGroup       = "COMPARISON_GROUP"
	EntityFad         = "FAD"
	EntityVendor      = "VENDOR"
	EntityProgramInfo = "PROGRAM_INFO"
)

// Operations
const (
	OpCreate      = "CREATE"
	OpUpdate      = "UPDATE"
	OpDelete      = "DELETE"
	OpRegister    = "REGISTER"
	OpLogin       = "LOGIN"
	OpLogout      = "LOGOUT"
	OpRefresh     = "REFRESH"
	OpUpload      = "UPLOAD"
	OpUpdateOrder = "UPDATE_ORDER"
)

// Entry is one change-log record before persistence
type Entry struct {
	Entity    string      `json:"entity"`
	Operation string      `json:"operation"`
	UserID    *uint       `json:"user_id,omitempty"`
	Data      interface{} `json:"data"`
	At        time.Time   `json:"at"`
}

// Sink receives change-log entries
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

// DBSink persists entries to the change_logs table
type DBSink struct {
	repo *repository.AuditRepository
}

func NewDBSink(repo *repository.AuditRepository) *DBSink {
	return &DBSink{repo: repo}
}

func (s *DBSink) Record(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return err
	}
	log := &models.AuditLog{
		Entity:    entry.Entity,
		Operation: entry.Operation,
		UserID:    entry.UserID,
		Data:      string(data),
	}
	if !entry.At.IsZero() {
		log.CreatedAt = entry.At
	}
	return s.repo.CreateAuditLog(ctx, log)
}

// Multi fans an entry out to every sink and joins their errors
type Multi []Sink

func (m Multi) Record(ctx context.Context, entry Entry) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every entry
type Discard struct{}

func (Discard) Record(context.Context, Entry) error { return nil }

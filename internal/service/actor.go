package service

import (
	"context"

	"fad-monitoring-backend/internal/audit"

	"github.com/sirupsen/logrus"
)

// Actor is the authenticated caller on whose behalf a mutation runs
type Actor struct {
	ID   uint
	Role string
}

// UserID returns the actor id for audit entries, nil for anonymous callers
func (a *Actor) UserID() *uint {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}

// recordAudit writes an entry best-effort; audit failures never fail the caller
func recordAudit(ctx context.Context, sink audit.Sink, log logrus.FieldLogger, entry audit.Entry) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, entry); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"entity":    entry.Entity,
			"operation": entry.Operation,
		}).Warn("failed to record audit entry")
	}
}

func stringPtr(s string) *string {
	return &s
}

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ err error }

func (f failingSink) Record(context.Context, Entry) error { return f.err }

func TestDBSinkStoresJSON(t *testing.T) {
	db := testutil.NewDB(t)
	sink := NewDBSink(repository.NewAuditRepo(db))

	userID := uint(7)
	err := sink.Record(context.Background(), Entry{
		Entity:    EntityUser,
		Operation: OpLogin,
		UserID:    &userID,
		Data:      map[string]string{"ip": "10.0.0.1"},
	})
	require.NoError(t, err)

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, EntityUser, logs[0].Entity)
	assert.Equal(t, OpLogin, logs[0].Operation)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, userID, *logs[0].UserID)

	var data map[string]string
	require.NoError(t, json.Unmarshal([]byte(logs[0].Data), &data))
	assert.Equal(t, "10.0.0.1", data["ip"])
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := Multi{Discard{}, failingSink{err: boom}, Discard{}}

	err := m.Record(context.Background(), Entry{Entity: EntityArea, Operation: OpCreate})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, Multi{Discard{}}.Record(context.Background(), Entry{}))
}

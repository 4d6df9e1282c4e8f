// internal/bot/store/conversations_test.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"orderbot/internal/common/logger"
	"orderbot/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ConversationStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewConversationStore(db, logger.NewNoOpLogger()), mock
}

type captureLogger struct {
	errors []string
}

func (c *captureLogger) Info(msg string, fields map[string]interface{}) {}
func (c *captureLogger) Warn(msg string, fields map[string]interface{}) {}
func (c *captureLogger) Error(msg string, fields map[string]interface{}) {
	c.errors = append(c.errors, msg)
}

func TestSaveFailureIsLogged(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	captured := &captureLogger{}
	s := NewConversationStore(db, captured)

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("cust-9", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(assert.AnError)

	err = s.Save(context.Background(), models.NewConversationState("cust-9", time.Now()))
	require.Error(t, err)
	assert.Contains(t, captured.errors, "conversation save failed")
}

func TestSaveUpserts(t *testing.T) {
	s, mock := newTestStore(t)

	state := models.NewConversationState("cust-1", time.Now())
	state.Stage = models.StageRequirementExtract

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("cust-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Save(context.Background(), state))
	assert.False(t, state.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRoundTrip(t *testing.T) {
	s, mock := newTestStore(t)

	state := models.NewConversationState("cust-2", time.Now())
	state.Stage = models.StageAwaitingConfirmation
	state.Requirements = &models.RequirementRecord{Quantity: models.IntPtr(500)}
	state.HasGreeted = true
	doc, err := json.Marshal(state)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT state FROM conversations").
		WithArgs("cust-2").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(doc))

	got, err := s.Load(context.Background(), "cust-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cust-2", got.CustomerID)
	assert.Equal(t, models.StageAwaitingConfirmation, got.Stage)
	require.NotNil(t, got.Requirements.Quantity)
	assert.Equal(t, 500, *got.Requirements.Quantity)
	assert.True(t, got.HasGreeted)
}

func TestLoadMissingReturnsNil(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT state FROM conversations").
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	got, err := s.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM conversations").
		WithArgs("cust-3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), "cust-3"))
	require.NoError(t, mock.ExpectationsWereMet())
}

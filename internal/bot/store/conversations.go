// internal/bot/store/conversations.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"orderbot/internal/models"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ConversationStore persists the full conversation state as one JSONB
// document per customer. The state is small and always read and written
// whole, so a document column beats a normalized schema here.
type ConversationStore struct {
	db     *sql.DB
	logger Logger
}

func NewConversationStore(db *sql.DB, log Logger) *ConversationStore {
	return &ConversationStore{db: db, logger: log}
}

const upsertQuery = `
		INSERT INTO conversations (customer_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`

func (s *ConversationStore) Save(ctx context.Context, state *models.ConversationState) error {
	state.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, upsertQuery, state.CustomerID, doc, state.UpdatedAt); err != nil {
		s.logger.Error("conversation save failed", map[string]interface{}{
			"customerId": state.CustomerID,
			"error":      err.Error(),
		})
		return fmt.Errorf("save conversation %s: %w", state.CustomerID, err)
	}
	return nil
}

// Load returns nil with no error when the customer has no conversation
// yet; callers start a fresh state in that case.
func (s *ConversationStore) Load(ctx context.Context, customerID string) (*models.ConversationState, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM conversations WHERE customer_id = $1`, customerID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("conversation load failed", map[string]interface{}{
			"customerId": customerID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("load conversation %s: %w", customerID, err)
	}

	var state models.ConversationState
	if err := json.Unmarshal(doc, &state); err != nil {
		s.logger.Error("conversation state corrupt", map[string]interface{}{
			"customerId": customerID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("unmarshal conversation %s: %w", customerID, err)
	}
	return &state, nil
}

func (s *ConversationStore) Delete(ctx context.Context, customerID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE customer_id = $1`, customerID,
	); err != nil {
		s.logger.Error("conversation delete failed", map[string]interface{}{
			"customerId": customerID,
			"error":      err.Error(),
		})
		return fmt.Errorf("delete conversation %s: %w", customerID, err)
	}
	return nil
}

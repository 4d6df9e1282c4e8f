// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"orderbot/internal/bot/store"
	apperrors "orderbot/internal/common/errors"
	"orderbot/internal/common/logger"
	"orderbot/internal/common/metrics"
	"orderbot/internal/common/observability"
	"orderbot/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// TurnProcessor runs one conversation turn.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, customerID, message string) *models.TurnResult
}

// Locker is the operator takeover surface.
type Locker interface {
	Lock(ctx context.Context, customerID string) error
	Unlock(ctx context.Context, customerID string) error
	IsLocked(ctx context.Context, customerID string) (bool, error)
}

// TurnLimiter serializes turns per customer.
type TurnLimiter interface {
	Acquire(ctx context.Context, customerID string) (func(), error)
}

// StateDeleter wipes a customer's persisted conversation.
type StateDeleter interface {
	Delete(ctx context.Context, customerID string) error
}

var chatSchema = gojsonschema.NewGoLoader(map[string]interface{}{
	"type":     "object",
	"required": []string{"user_id", "message"},
	"properties": map[string]interface{}{
		"user_id": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"message": map[string]interface{}{
			"type": "string",
		},
	},
})

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type customerRequest struct {
	UserID string `json:"user_id"`
}

// chatResponse is a TurnResult plus the locked marker for conversations an
// operator has taken over.
type chatResponse struct {
	models.TurnResult
	Locked bool `json:"locked,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
	UserID string `json:"user_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP front door for the bot.
type Server struct {
	processor TurnProcessor
	locks     Locker
	turns     TurnLimiter
	states    StateDeleter
	obs       *observability.Observability
	logger    logger.Logger
}

func New(processor TurnProcessor, locks Locker, turns TurnLimiter, states StateDeleter, obs *observability.Observability, log logger.Logger) *Server {
	return &Server{
		processor: processor,
		locks:     locks,
		turns:     turns,
		states:    states,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "server"}),
	}
}

// Register mounts the bot routes onto mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/lock_conversation", s.handleLock)
	mux.HandleFunc("/unlock_conversation", s.handleUnlock)
	mux.HandleFunc("/reset_conversation", s.handleReset)
	mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body"})
		return
	}

	if err := validateChatBody(body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	// An operator-locked conversation never reaches the controller.
	locked, err := s.locks.IsLocked(r.Context(), req.UserID)
	if err != nil {
		s.logger.Error("lock check failed", map[string]interface{}{
			"customerId": req.UserID,
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "lock check failed"})
		return
	}
	if locked {
		writeJSON(w, http.StatusOK, chatResponse{Locked: true})
		return
	}

	release, err := s.turns.Acquire(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrConversationBusy) {
			writeJSON(w, http.StatusConflict, apperrors.NewConversationBusyError(req.UserID))
			return
		}
		s.logger.Error("turn lease failed", map[string]interface{}{
			"customerId": req.UserID,
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "turn lease failed"})
		return
	}
	defer release()

	start := time.Now()
	result := s.processor.ProcessTurn(r.Context(), req.UserID, req.Message)
	if s.obs != nil {
		outcome := "reply"
		if result.NeedsHandoff {
			outcome = "handoff"
		}
		s.obs.RecordTurnProcessed(r.Context(), outcome)
		s.obs.RecordTurnDuration(r.Context(), time.Since(start), outcome)
	}
	writeJSON(w, http.StatusOK, chatResponse{TurnResult: *result})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	s.lockAction(w, r, "locked", s.locks.Lock)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	s.lockAction(w, r, "unlocked", s.locks.Unlock)
}

func (s *Server) lockAction(w http.ResponseWriter, r *http.Request, status string, action func(context.Context, string) error) {
	req, ok := s.decodeCustomer(w, r)
	if !ok {
		return
	}
	if err := action(r.Context(), req.UserID); err != nil {
		s.logger.Error("lock action failed", map[string]interface{}{
			"customerId": req.UserID,
			"action":     status,
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "lock action failed"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: status, UserID: req.UserID})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCustomer(w, r)
	if !ok {
		return
	}
	if err := s.states.Delete(r.Context(), req.UserID); err != nil {
		s.logger.Error("reset failed", map[string]interface{}{
			"customerId": req.UserID,
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, apperrors.NewStateSaveFailedError(err))
		return
	}
	// A reset also releases any operator lock so the bot answers again.
	if err := s.locks.Unlock(r.Context(), req.UserID); err != nil {
		s.logger.Warn("unlock during reset failed", map[string]interface{}{
			"customerId": req.UserID,
			"error":      err.Error(),
		})
	}
	metrics.ConversationsReset.Inc()
	writeJSON(w, http.StatusOK, statusResponse{Status: "reset", UserID: req.UserID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "healthy"})
}

func (s *Server) decodeCustomer(w http.ResponseWriter, r *http.Request) (customerRequest, bool) {
	var req customerRequest
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return req, false
	}
	return req, true
}

func validateChatBody(body []byte) error {
	result, err := gojsonschema.Validate(chatSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON")
	}
	if !result.Valid() {
		descs := make([]string, len(result.Errors()))
		for i, d := range result.Errors() {
			descs[i] = d.String()
		}
		return fmt.Errorf("invalid request: %v", descs)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

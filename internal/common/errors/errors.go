// internal/common/errors/errors.go
package errors

import (
	"fmt"
	"time"
)

type ErrorCode string

const (
	ErrCodeStateLoadFailed    ErrorCode = "STATE_LOAD_FAILED"
	ErrCodeStateSaveFailed    ErrorCode = "STATE_SAVE_FAILED"
	ErrCodeConversationBusy   ErrorCode = "CONVERSATION_BUSY"
	ErrCodeConversationLocked ErrorCode = "CONVERSATION_LOCKED"

	ErrCodeCatalogQueryFailed ErrorCode = "CATALOG_QUERY_FAILED"
	ErrCodeCatalogTimeout     ErrorCode = "CATALOG_TIMEOUT"

	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeClassifierTimeout    ErrorCode = "CLASSIFIER_TIMEOUT"

	ErrCodeAlertSendFailed ErrorCode = "ALERT_SEND_FAILED"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func NewStateLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateLoadFailed,
		Message:   "Failed to load conversation state",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewStateSaveFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateSaveFailed,
		Message:   "Failed to persist conversation state",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewConversationBusyError(customerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationBusy,
		Message:   "Another message for this customer is still being processed",
		Details:   fmt.Sprintf("customerId: %s", customerID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewCatalogQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogQueryFailed,
		Message:   "Catalog search failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewClassificationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationFailed,
		Message:   "Intent classifier returned an unusable result",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

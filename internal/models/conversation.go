package models

import (
	"time"

	"github.com/google/uuid"
)

// Role tags who produced a conversation message.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Message is a single exchanged message in a conversation.
type Message struct {
	ID      string    `json:"id"`
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// NewMessage builds a message with a fresh id.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		SentAt:  at,
	}
}

// Stage is the dialogue controller's current position in the conversation flow.
type Stage string

const (
	StageGreeting             Stage = "greeting"
	StageIntentClassification Stage = "intent_classification"
	StageRequirementExtract   Stage = "requirement_extraction"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StageValidation           Stage = "validation"
	StageProductSearch        Stage = "product_search"
	StageRecommendation       Stage = "recommendation"
	StageProductSelection     Stage = "product_selection"
	StageOrderConfirmation    Stage = "order_confirmation"
	StageHandoff              Stage = "handoff"
)

// HandoffReason identifies why the bot stopped responding and handed the
// conversation to a human operator.
type HandoffReason string

const (
	ReasonImageSent           HandoffReason = "image_sent"
	ReasonQuickPriceQuery     HandoffReason = "quick_price_query"
	ReasonProductsShown       HandoffReason = "products_shown"
	ReasonNoProducts          HandoffReason = "no_products"
	ReasonUnhandleableQuery   HandoffReason = "unhandleable_query"
	ReasonModelClassification HandoffReason = "model_classification"
	ReasonBotError            HandoffReason = "bot_error"
)

// ValidationResult captures the resolved timeline for a validated requirement set.
type ValidationResult struct {
	DeliveryDate  string `json:"delivery_date"`
	DaysRemaining int    `json:"days_remaining"`
	Urgency       string `json:"urgency"`
	IsRush        bool   `json:"is_rush"`
}

// ConversationState is the full persisted state of one customer's
// conversation, keyed by customer id and restored across restarts.
type ConversationState struct {
	CustomerID          string             `json:"customer_id"`
	Messages            []Message          `json:"messages"`
	Stage               Stage              `json:"stage"`
	Requirements        *RequirementRecord `json:"requirements,omitempty"`
	Validation          *ValidationResult  `json:"validation,omitempty"`
	RecommendedProducts []Product          `json:"recommended_products,omitempty"`
	SelectedProduct     *Product           `json:"selected_product,omitempty"`
	HasGreeted          bool               `json:"has_greeted"`
	NeedsHumanHandoff   bool               `json:"needs_human_handoff"`
	HandoffReason       HandoffReason      `json:"handoff_reason,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// NewConversationState returns the empty state for a customer seen for the
// first time.
func NewConversationState(customerID string, now time.Time) *ConversationState {
	return &ConversationState{
		CustomerID: customerID,
		Stage:      StageGreeting,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Append records an exchanged message.
func (s *ConversationState) Append(role Role, content string, at time.Time) {
	s.Messages = append(s.Messages, NewMessage(role, content, at))
	s.UpdatedAt = at
}

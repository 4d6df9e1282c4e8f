package models

// KnownFields is the operator-facing snapshot of what the bot had
// understood at the moment of a handoff. Timeline is the display form.
type KnownFields struct {
	Quantity       *int   `json:"quantity"`
	BudgetPerPiece *int   `json:"budget_per_piece"`
	Timeline       string `json:"timeline,omitempty"`
	Location       string `json:"location,omitempty"`
}

// TurnResult is the outcome of processing one inbound message. Exactly one
// of the shapes applies: a customer-visible reply, a silent handoff with
// known fields, or a product recommendation that also hands off.
type TurnResult struct {
	Reply               string        `json:"reply,omitempty"`
	NeedsHandoff        bool          `json:"needs_handoff"`
	HandoffReason       HandoffReason `json:"handoff_reason,omitempty"`
	HandoffReasonText   string        `json:"handoff_reason_text,omitempty"`
	Products            []Product     `json:"products,omitempty"`
	RequirementsSummary string        `json:"requirements_summary,omitempty"`
	Requirements        *KnownFields  `json:"customer_requirements,omitempty"`
}

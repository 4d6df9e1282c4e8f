package models

// RequirementRecord is the accumulating belief state for one conversation:
// what the customer needs, as far as the bot has understood it so far.
type RequirementRecord struct {
	Quantity          *int     `json:"quantity,omitempty"`
	BudgetPerPiece    *int     `json:"budget_per_piece,omitempty"`
	Timeline          string   `json:"timeline,omitempty"`
	Location          string   `json:"location,omitempty"`
	Preferences       []string `json:"preferences,omitempty"`
	NeedsConfirmation bool     `json:"needs_confirmation"`
}

// Complete reports whether every field required to run a product search is set.
func (r *RequirementRecord) Complete() bool {
	if r == nil {
		return false
	}
	return r.Quantity != nil && r.BudgetPerPiece != nil && r.Timeline != "" && r.Location != ""
}

// Missing returns the customer-facing labels of unset required fields,
// in the fixed order they are asked for.
func (r *RequirementRecord) Missing() []string {
	var missing []string
	if r == nil {
		return []string{"Quantity", "Budget per piece", "When needed", "Delivery location"}
	}
	if r.Quantity == nil {
		missing = append(missing, "Quantity")
	}
	if r.BudgetPerPiece == nil {
		missing = append(missing, "Budget per piece")
	}
	if r.Timeline == "" {
		missing = append(missing, "When needed")
	}
	if r.Location == "" {
		missing = append(missing, "Delivery location")
	}
	return missing
}

// IntPtr is a convenience for building records in callers and tests.
func IntPtr(n int) *int {
	return &n
}

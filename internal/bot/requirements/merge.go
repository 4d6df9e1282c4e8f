// internal/bot/requirements/merge.go
package requirements

import (
	"regexp"
	"strings"

	"orderbot/internal/bot/extractor"
	"orderbot/internal/models"
)

var bareDigitsRE = regexp.MustCompile(`^\d+$`)

var quantityAnchorWords = []string{"quantity", "qty", "pieces", "pcs"}
var budgetAnchorWords = []string{"budget", "price", "rs", "rupees", "₹"}

// Apply folds one customer message into the running requirement record and
// returns the updated record. A bare digit string fills the next empty slot
// in quantity-then-budget order; anything else goes through full extraction
// and field-by-field merging.
func Apply(existing models.RequirementRecord, message string) models.RequirementRecord {
	trimmed := strings.TrimSpace(message)

	if bareDigitsRE.MatchString(trimmed) {
		if filled, ok := sequentialFill(existing, trimmed); ok {
			return filled
		}
	}

	return Merge(existing, extractor.Extract(message), message)
}

// sequentialFill places a lone number into quantity first, then budget.
// Timeline is never filled this way even when a date question was just
// asked. With both slots taken it reports false so the caller falls back
// to general extraction.
func sequentialFill(existing models.RequirementRecord, digits string) (models.RequirementRecord, bool) {
	n := 0
	for _, c := range digits {
		n = n*10 + int(c-'0')
	}

	switch {
	case existing.Quantity == nil:
		existing.Quantity = &n
	case existing.BudgetPerPiece == nil:
		existing.BudgetPerPiece = &n
	default:
		return existing, false
	}
	existing.NeedsConfirmation = false
	return existing, true
}

// Merge folds a fresh extraction into the existing record.
//
// Quantity and budget are only overwritten when the message itself carries
// the field's anchoring keywords; a later bare number never clobbers a
// value that was set with confidence. Timeline, location, and preferences
// are last-write-wins. The confirmation flag always takes the new value.
func Merge(existing models.RequirementRecord, ex extractor.Extraction, message string) models.RequirementRecord {
	lower := strings.ToLower(message)

	if ex.Quantity != nil {
		if existing.Quantity == nil || containsAny(lower, quantityAnchorWords) {
			existing.Quantity = ex.Quantity
		}
	}
	if ex.Budget != nil {
		if existing.BudgetPerPiece == nil || containsAny(lower, budgetAnchorWords) {
			existing.BudgetPerPiece = ex.Budget
		}
	}
	if ex.Timeline != "" {
		existing.Timeline = ex.Timeline
	}
	if ex.Location != "" {
		existing.Location = ex.Location
	}
	if len(ex.Preferences) > 0 {
		existing.Preferences = ex.Preferences
	}
	existing.NeedsConfirmation = ex.NeedsConfirmation

	return existing
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

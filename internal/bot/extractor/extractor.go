// internal/bot/extractor/extractor.go
package extractor

import (
	"strconv"
	"strings"
	"unicode"
)

// Extraction holds every field recognised in a single customer message.
// Quantity and budget distinguish keyword-anchored hits (a unit or currency
// cue sat next to the number) from positional guesses, because only guesses
// need the customer to confirm them.
type Extraction struct {
	Quantity         *int
	QuantityAnchored bool

	Budget         *int
	BudgetAnchored bool

	// Timeline is either a canonical code (asap, today, tomorrow, this_week,
	// next_week, two_weeks, one_month) or the date text verbatim as the
	// customer typed it.
	Timeline string

	Location    string
	Preferences []string

	// NeedsConfirmation is set when both quantity and budget were filled
	// purely by position, so the split between them is a guess.
	NeedsConfirmation bool
}

// Extract runs the full rule cascade over one message. It never errors: a
// message with nothing recognisable yields the zero Extraction.
func Extract(message string) Extraction {
	var ex Extraction
	lower := strings.ToLower(message)

	claimed := extractTimeline(message, lower, &ex)
	extractQuantity(lower, &ex)
	extractBudget(lower, &ex)
	assignPositional(lower, claimed, &ex)
	extractLocation(message, lower, &ex)
	extractPreferences(lower, &ex)

	ex.NeedsConfirmation = ex.Quantity != nil && ex.Budget != nil &&
		!ex.QuantityAnchored && !ex.BudgetAnchored

	return ex
}

// extractTimeline fills ex.Timeline and returns the set of numeric tokens
// consumed by a date match. Keyword cues win outright; date shapes are only
// tried when no keyword fired, first matching pattern wins. The case-
// insensitive date patterns run over the message as typed; lowercased byte
// offsets would drift on multibyte runes, so the original is never
// re-indexed with them.
func extractTimeline(original, lower string, ex *Extraction) map[string]bool {
	claimed := make(map[string]bool)

	for _, kw := range timelineKeywords {
		if strings.Contains(lower, kw.keyword) {
			ex.Timeline = kw.code
			return claimed
		}
	}

	for _, re := range datePatterns {
		idx := re.FindStringSubmatchIndex(original)
		if idx == nil {
			continue
		}
		ex.Timeline = original[idx[0]:idx[1]]
		for g := 1; g*2 < len(idx); g++ {
			start, end := idx[g*2], idx[g*2+1]
			if start < 0 {
				continue
			}
			token := original[start:end]
			if _, err := strconv.Atoi(token); err == nil {
				claimed[token] = true
			}
		}
		break
	}
	return claimed
}

func extractQuantity(lower string, ex *Extraction) {
	for _, re := range quantityPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			ex.Quantity = &n
			ex.QuantityAnchored = true
			return
		}
	}
}

func extractBudget(lower string, ex *Extraction) {
	for _, re := range budgetPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			ex.Budget = &n
			ex.BudgetAnchored = true
			return
		}
	}
}

// assignPositional distributes numbers that no date claimed into whichever
// of quantity and budget is still empty: with two or more candidates the
// first goes to quantity and the second to budget, with exactly one it goes
// to quantity first, budget otherwise.
func assignPositional(lower string, claimed map[string]bool, ex *Extraction) {
	if ex.Quantity != nil && ex.Budget != nil {
		return
	}

	var free []int
	for _, m := range numberRE.FindAllStringSubmatch(lower, -1) {
		if claimed[m[1]] {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		free = append(free, n)
	}

	switch {
	case len(free) >= 2:
		if ex.Quantity == nil {
			ex.Quantity = &free[0]
		}
		if ex.Budget == nil {
			ex.Budget = &free[1]
		}
	case len(free) == 1:
		if ex.Quantity == nil {
			ex.Quantity = &free[0]
		} else if ex.Budget == nil {
			ex.Budget = &free[0]
		}
	}
}

// extractLocation checks the city gazetteer first, then, for very short
// messages, falls back to the first capitalized word that looks like a
// place name.
func extractLocation(original, lower string, ex *Extraction) {
	for _, city := range knownCities {
		if strings.Contains(lower, city) {
			if display, ok := cityAliases[city]; ok {
				ex.Location = display
			} else {
				ex.Location = titleCase(city)
			}
			return
		}
	}

	words := strings.Fields(original)
	if len(words) > 3 {
		return
	}
	for _, w := range words {
		if len(w) <= 3 || !isAlpha(w) {
			continue
		}
		runes := []rune(w)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		if locationSkipWords[strings.ToLower(w)] {
			continue
		}
		ex.Location = w
		return
	}
}

func extractPreferences(lower string, ex *Extraction) {
	for _, rule := range preferenceRules {
		for _, cue := range rule.cues {
			if strings.Contains(lower, cue) {
				ex.Preferences = append(ex.Preferences, rule.tag)
				break
			}
		}
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}

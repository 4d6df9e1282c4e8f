// internal/bot/extractor/tables.go
package extractor

import "regexp"

// Classification data is fixed at process start; nothing in here is mutated
// after init.

// timelineKeyword maps a lexical cue to a canonical timeline code. Order
// matters: the first substring hit wins.
type timelineKeyword struct {
	keyword string
	code    string
}

var timelineKeywords = []timelineKeyword{
	{"asap", "asap"},
	{"urgent", "asap"},
	{"immediately", "asap"},
	{"today", "today"},
	{"tomorrow", "tomorrow"},
	{"next week", "next_week"},
	{"this week", "this_week"},
	{"2 weeks", "two_weeks"},
	{"month", "one_month"},
}

// Date shapes: month name and day in either order (space optional, but never
// across lines), then numeric D/M[/Y] forms. Matching is case-insensitive and
// runs over the message as typed, so the verbatim slice keeps the customer's
// casing. Every numeric token consumed by a date match is claimed and skipped
// by positional number assignment.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\w*[ \t]*(\d{1,2})`),
	regexp.MustCompile(`(?i)(\d{1,2})[ \t]*(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`),
	regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})`),
	regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})`),
}

var numberRE = regexp.MustCompile(`\b(\d+)\b`)

// Quantity: number followed by a unit word, or an explicit quantity keyword
// followed by a number. First match wins and counts as keyword-anchored.
var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*(?:pieces|pcs|piece|family|families|people)`),
	regexp.MustCompile(`(?:quantity|qty|need|want|for)\s*:?\s*(\d+)`),
}

// Budget: currency markers on either side of the number, explicit
// budget/price keywords, or bounding words. First match wins.
var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:budget|price)\s*:?\s*(\d+)`),
	regexp.MustCompile(`(\d+)\s*(?:rupees|rs|₹|per\s*piece)`),
	regexp.MustCompile(`₹\s*(\d+)`),
	regexp.MustCompile(`\b(?:rs|rupees)\s*\.?\s*(\d+)`),
	regexp.MustCompile(`(\d+)\s*rs\b`),
	regexp.MustCompile(`under\s+(\d+)`),
	regexp.MustCompile(`below\s+(\d+)`),
	regexp.MustCompile(`within\s+(\d+)`),
	regexp.MustCompile(`upto\s+(\d+)`),
}

// knownCities is the delivery-location gazetteer, matched case-insensitively
// as substrings.
var knownCities = []string{
	"chennai", "bangalore", "bengaluru", "coimbatore", "madurai",
	"hyderabad", "kochi", "mumbai", "delhi", "pune", "mysore",
	"trivandrum", "vijayawada", "erode", "salem", "tiruppur",
	"guntur", "vizag", "tirunelveli", "thanjavur", "trichy",
	"komarapalayam", "karur", "dindigul", "vellore", "hosur",
}

// cityAliases maps alternate spellings to the canonical display form.
var cityAliases = map[string]string{
	"bengaluru": "Bangalore",
}

// locationSkipWords are greeting/question words never taken as a city by the
// capitalized-word fallback.
var locationSkipWords = map[string]bool{
	"hello": true,
	"hi":    true,
	"what":  true,
	"when":  true,
	"where": true,
}

// preferenceRule maps lexical cues to a preference tag. All matches collect.
type preferenceRule struct {
	cues []string
	tag  string
}

var preferenceRules = []preferenceRule{
	{[]string{"eco", "green"}, "eco_friendly"},
	{[]string{"traditional", "ethnic"}, "traditional"},
	{[]string{"modern", "contemporary"}, "modern"},
	{[]string{"premium", "luxury"}, "premium"},
}

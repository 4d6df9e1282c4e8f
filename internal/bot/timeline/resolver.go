// internal/bot/timeline/resolver.go
package timeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Urgency tiers ordered from most to least pressing.
const (
	UrgencyCritical = "critical"
	UrgencyHigh     = "high"
	UrgencyMedium   = "medium"
	UrgencyLow      = "low"
)

// Result is a fully resolved delivery expectation.
type Result struct {
	DeliveryDate  time.Time
	DaysRemaining int
	Urgency       string
	IsRush        bool
}

type codeEntry struct {
	daysOffset int
	urgency    string
}

// canonicalCodes carry their own urgency; free-form dates derive urgency
// from the day distance instead.
var canonicalCodes = map[string]codeEntry{
	"asap":      {1, UrgencyCritical},
	"today":     {0, UrgencyCritical},
	"tomorrow":  {1, UrgencyHigh},
	"this_week": {5, UrgencyMedium},
	"next_week": {7, UrgencyMedium},
	"two_weeks": {14, UrgencyLow},
	"one_month": {30, UrgencyLow},
}

var codeDisplay = map[string]string{
	"asap":      "ASAP",
	"today":     "Today",
	"tomorrow":  "Tomorrow",
	"this_week": "This week",
	"next_week": "Next week",
	"two_weeks": "In 2 weeks",
	"one_month": "In 1 month",
}

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	monthDayRE    = regexp.MustCompile(`(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\w*\s*(\d{1,2})`)
	dayMonthRE    = regexp.MustCompile(`(\d{1,2})\s*(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
	numericDateRE = regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})`)
	monthSpaceRE  = regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)(\d)`)
)

// Resolve converts a timeline token into a concrete delivery expectation
// relative to now. It never fails: unparseable input falls back to one week
// out at medium urgency.
func Resolve(timeline string, now time.Time) Result {
	if entry, ok := canonicalCodes[timeline]; ok {
		return Result{
			DeliveryDate:  now.AddDate(0, 0, entry.daysOffset),
			DaysRemaining: entry.daysOffset,
			Urgency:       entry.urgency,
			IsRush:        entry.urgency == UrgencyCritical || entry.urgency == UrgencyHigh,
		}
	}

	if date, ok := parseDate(strings.ToLower(timeline), now); ok {
		// Round so a DST transition inside the window cannot skew the
		// whole-day count.
		days := int(math.Round(date.Sub(startOfDay(now)).Hours() / 24))
		urgency := urgencyForDays(days)
		return Result{
			DeliveryDate:  date,
			DaysRemaining: days,
			Urgency:       urgency,
			IsRush:        urgency == UrgencyCritical || urgency == UrgencyHigh,
		}
	}

	return Result{
		DeliveryDate:  now.AddDate(0, 0, 7),
		DaysRemaining: 7,
		Urgency:       UrgencyMedium,
		IsRush:        false,
	}
}

// parseDate understands month-name + day (either order) and numeric D/M
// shapes, assuming the current year and rolling a past date forward one
// year.
func parseDate(lower string, now time.Time) (time.Time, bool) {
	var day int
	var month time.Month

	if m := monthDayRE.FindStringSubmatch(lower); m != nil {
		month = monthNumbers[m[1]]
		day, _ = strconv.Atoi(m[2])
	} else if m := dayMonthRE.FindStringSubmatch(lower); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = monthNumbers[m[2]]
	} else if m := numericDateRE.FindStringSubmatch(lower); m != nil {
		day, _ = strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		if mon < 1 || mon > 12 {
			return time.Time{}, false
		}
		month = time.Month(mon)
	} else {
		return time.Time{}, false
	}

	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	date := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if date.Before(startOfDay(now)) {
		date = date.AddDate(1, 0, 0)
	}
	return date, true
}

func urgencyForDays(days int) string {
	switch {
	case days <= 2:
		return UrgencyCritical
	case days <= 7:
		return UrgencyHigh
	case days <= 14:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DisplayText renders a timeline token for customer-facing summaries.
// Canonical codes get fixed labels; date text gets a space squeezed between
// a month name and the day, with the first letter capitalized.
func DisplayText(timeline string) string {
	if label, ok := codeDisplay[timeline]; ok {
		return label
	}
	if timeline == "" {
		return ""
	}
	out := monthSpaceRE.ReplaceAllString(timeline, "$1 $2")
	return strings.ToUpper(out[:1]) + out[1:]
}

// FormatDeliveryDate renders a resolved date for summaries and operator
// alerts, e.g. "22 February 2026".
func FormatDeliveryDate(t time.Time) string {
	return t.Format("02 January 2006")
}

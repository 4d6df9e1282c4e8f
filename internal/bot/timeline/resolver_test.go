// internal/bot/timeline/resolver_test.go
package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, time.February, 10, 15, 30, 0, 0, time.UTC)

func TestResolveCanonicalCodes(t *testing.T) {
	tests := []struct {
		code    string
		days    int
		urgency string
		rush    bool
	}{
		{"asap", 1, UrgencyCritical, true},
		{"today", 0, UrgencyCritical, true},
		{"tomorrow", 1, UrgencyHigh, true},
		{"this_week", 5, UrgencyMedium, false},
		{"next_week", 7, UrgencyMedium, false},
		{"two_weeks", 14, UrgencyLow, false},
		{"one_month", 30, UrgencyLow, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := Resolve(tt.code, testNow)
			assert.Equal(t, tt.days, got.DaysRemaining)
			assert.Equal(t, tt.urgency, got.Urgency)
			assert.Equal(t, tt.rush, got.IsRush)
			assert.Equal(t, testNow.AddDate(0, 0, tt.days), got.DeliveryDate)
		})
	}
}

func TestResolveDateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		date    time.Time
		days    int
		urgency string
	}{
		{
			name:    "month name and day",
			text:    "feb 22",
			date:    time.Date(2026, time.February, 22, 0, 0, 0, 0, time.UTC),
			days:    12,
			urgency: UrgencyMedium,
		},
		{
			name:    "day before month",
			text:    "12 feb",
			date:    time.Date(2026, time.February, 12, 0, 0, 0, 0, time.UTC),
			days:    2,
			urgency: UrgencyCritical,
		},
		{
			name:    "numeric day and month",
			text:    "15/3",
			date:    time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
			days:    33,
			urgency: UrgencyLow,
		},
		{
			name:    "past date rolls forward a year",
			text:    "jan 5",
			date:    time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC),
			days:    329,
			urgency: UrgencyLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.text, testNow)
			assert.Equal(t, tt.date, got.DeliveryDate)
			assert.Equal(t, tt.days, got.DaysRemaining)
			assert.Equal(t, tt.urgency, got.Urgency)
		})
	}
}

func TestResolveFallback(t *testing.T) {
	got := Resolve("whenever works", testNow)

	assert.Equal(t, 7, got.DaysRemaining)
	assert.Equal(t, UrgencyMedium, got.Urgency)
	assert.False(t, got.IsRush)
	assert.Equal(t, testNow.AddDate(0, 0, 7), got.DeliveryDate)
}

func TestResolveInvalidNumericMonth(t *testing.T) {
	got := Resolve("15/13", testNow)
	assert.Equal(t, 7, got.DaysRemaining)
	assert.Equal(t, UrgencyMedium, got.Urgency)
}

func TestDisplayText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"asap", "ASAP"},
		{"today", "Today"},
		{"next_week", "Next week"},
		{"two_weeks", "In 2 weeks"},
		{"Feb 22", "Feb 22"},
		{"feb22", "Feb 22"},
		{"MAR5", "MAR 5"},
		{"week5", "Week5"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayText(tt.in))
	}
}

func TestFormatDeliveryDate(t *testing.T) {
	d := time.Date(2026, time.February, 22, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "22 February 2026", FormatDeliveryDate(d))
}

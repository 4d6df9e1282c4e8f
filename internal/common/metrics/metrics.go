// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_turns_processed_total",
			Help: "Total number of conversation turns processed, by outcome",
		},
		[]string{"outcome"},
	)

	HandoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_handoffs_total",
			Help: "Total number of human handoffs, by reason",
		},
		[]string{"reason"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bot_turn_duration_seconds",
			Help: "Duration of turn processing in seconds",
		},
		[]string{"stage"},
	)

	ConversationsReset = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_conversations_reset_total",
			Help: "Total number of conversation state resets",
		},
	)

	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_classifier_calls_total",
			Help: "Total number of fallback classifier calls, by result",
		},
		[]string{"result"},
	)
)

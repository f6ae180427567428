// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AgentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_requests_total",
			Help: "Total number of agent queries handled, by skill and outcome",
		},
		[]string{"skill", "ok"},
	)

	AgentRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_request_duration_seconds",
			Help:    "Duration of agent query handling in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"skill"},
	)

	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_invocations_total",
			Help: "Total number of tool invocations by status",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tool_duration_seconds",
			Help: "Duration of tool invocations in seconds",
		},
		[]string{"tool"},
	)

	CompareStageItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compare_stage_items",
			Help:    "Listings surviving each price-compare stage",
			Buckets: []float64{0, 1, 3, 6, 12, 24, 48, 96},
		},
		[]string{"stage"},
	)

	CompareDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compare_drops_total",
			Help: "Listings dropped by the price-compare pipeline, by reason",
		},
		[]string{"reason"},
	)

	IntentDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_decisions_total",
			Help: "Resolved intents by the stage that decided them",
		},
		[]string{"intent", "stage"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_errors_total",
			Help: "Listing provider failures by provider",
		},
		[]string{"provider"},
	)
)

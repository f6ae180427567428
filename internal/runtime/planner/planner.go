// Package planner turns a resolved intent into an ordered list of tool calls.
package planner

import (
	"shopping-agent/internal/models"
	"shopping-agent/pkg/registry"
)

const (
	DefaultRegion   = "AU"
	DefaultCurrency = "AUD"
	RecommendTopK   = 5
)

const (
	RationalePrice     = "Full price comparison via orchestrator."
	RationaleRecommend = "Recommendation based on goal and (optional) budget."
	RationaleFallback  = "Fallback to recommendation."
)

// Risks are surfaced with every plan.
var Risks = []string{"provider timeout", "low precision intent"}

type Step struct {
	ToolName        string                 `json:"tool_name"`
	Inputs          map[string]interface{} `json:"inputs"`
	SuccessCriteria string                 `json:"success_criteria,omitempty"`
}

type Plan struct {
	Steps     []Step   `json:"steps"`
	Rationale string   `json:"rationale"`
	Risks     []string `json:"risks"`
}

// Build is pure: the same arguments always produce an equal plan.
// Unknown or empty intents take the recommendation branch.
func Build(intent models.Intent, text string, prefs models.Prefs, _ []models.HistoryTurn) Plan {
	risks := append([]string(nil), Risks...)

	if intent == models.IntentPrice {
		region := prefs.String("region")
		if region == "" {
			region = DefaultRegion
		}
		currency := prefs.String("currency")
		if currency == "" {
			currency = DefaultCurrency
		}
		return Plan{
			Steps: []Step{{
				ToolName: registry.ToolPriceCompareFull,
				Inputs: map[string]interface{}{
					"text":     text,
					"region":   region,
					"currency": currency,
					"prefs":    map[string]interface{}(prefs.Clone()),
				},
				SuccessCriteria: "non-empty items",
			}},
			Rationale: RationalePrice,
			Risks:     risks,
		}
	}

	rationale := RationaleRecommend
	if intent != models.IntentRecommend {
		rationale = RationaleFallback
	}
	var budget interface{}
	if b, ok := prefs.Float("budget"); ok {
		budget = b
	}
	return Plan{
		Steps: []Step{{
			ToolName: registry.ToolRecoGenerate,
			Inputs: map[string]interface{}{
				"goal":   text,
				"budget": budget,
				"topk":   RecommendTopK,
			},
			SuccessCriteria: "non-empty items",
		}},
		Rationale: rationale,
		Risks:     risks,
	}
}

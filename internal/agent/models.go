// internal/agent/models.go
package agent

import (
	"shopping-agent/internal/runtime/planner"
	"shopping-agent/internal/runtime/trace"
)

const (
	AnswerValidationFailed = "The result didn't pass validation."
	NoteForcedIntent       = "forced by request.intent"
	StepIntentSelect       = "intent_select"
)

// Response is the outcome of one agent query. Plan, Hint and CriticMessage
// are set only when the critic rejected the result.
type Response struct {
	RequestID     string                 `json:"request_id"`
	Skill         string                 `json:"skill"`
	OK            bool                   `json:"ok"`
	Answer        string                 `json:"answer"`
	Facts         map[string]interface{} `json:"facts"`
	Trace         trace.Document         `json:"trace"`
	PlanRationale string                 `json:"plan_rationale,omitempty"`
	Plan          *planner.Plan          `json:"plan,omitempty"`
	Hint          string                 `json:"hint,omitempty"`
	CriticMessage string                 `json:"critic_message,omitempty"`
}

type Config struct {
	HistoryLimit int
}

func DefaultConfig() Config {
	return Config{HistoryLimit: 5}
}

// Package agent answers shopping queries: it resolves the intent, plans and
// executes tool calls, reviews the result and assembles the trace.
package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/common/logger"
	"shopping-agent/internal/common/metrics"
	"shopping-agent/internal/common/observability"
	"shopping-agent/internal/models"
	"shopping-agent/internal/runtime/critic"
	"shopping-agent/internal/runtime/intent"
	"shopping-agent/internal/runtime/memory"
	"shopping-agent/internal/runtime/planner"
	"shopping-agent/internal/runtime/trace"

	"github.com/google/uuid"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// IntentDecider is implemented by *intent.Decider.
type IntentDecider interface {
	Decide(ctx context.Context, text string, prefs models.Prefs, history []models.HistoryTurn, runner intent.Runner) intent.Decision
}

// HistoryStore is implemented by *dialogues.Store.
type HistoryStore interface {
	Recent(ctx context.Context, userID string, limit int) ([]models.HistoryTurn, error)
	Append(ctx context.Context, userID, question, answer string) error
}

type Service struct {
	config  Config
	decider IntentDecider
	runner  intent.Runner
	memory  memory.Store
	history HistoryStore
	obs     *observability.Observability
	logger  Logger
}

// NewService wires the agent. memory and history may be nil.
func NewService(config Config, decider IntentDecider, runner intent.Runner, mem memory.Store, history HistoryStore, obs *observability.Observability, log Logger) *Service {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultConfig().HistoryLimit
	}
	return &Service{
		config:  config,
		decider: decider,
		runner:  runner,
		memory:  mem,
		history: history,
		obs:     obs,
		logger: log.With(map[string]interface{}{
			"component": "agent",
		}),
	}
}

// HandleQuery answers one query. Critic rejections are reported in the
// response; only invalid input and fatal tool errors (unknown tool, schema
// mismatch) are returned as errors.
func (s *Service) HandleQuery(ctx context.Context, q models.Query) (*Response, error) {
	start := time.Now()
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, apperrors.NewInvalidRequestError("text is required")
	}

	requestID := logger.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := s.logger.With(map[string]interface{}{"requestId": requestID})

	userID := q.UserID
	if userID == "" {
		userID = memory.AnonymousUser
	}
	if s.memory != nil {
		if err := s.memory.Update(ctx, userID, memory.KeyLastQuery, text); err != nil {
			log.Warn("short-term memory update failed", map[string]interface{}{"userId": userID, "error": err.Error()})
		}
	}

	history := q.History
	if len(history) == 0 && q.UserID != "" && s.history != nil {
		turns, err := s.history.Recent(ctx, q.UserID, s.config.HistoryLimit)
		if err != nil {
			log.Warn("dialogue history unavailable", map[string]interface{}{"userId": q.UserID, "error": err.Error()})
		} else {
			history = turns
		}
	}

	intentStart := time.Now()
	resolved, label, confidence, note := s.resolveIntent(ctx, q, text, history)
	intentStep := trace.Step{
		Name:   StepIntentSelect,
		Result: label,
		Note:   note,
	}.WithConfidence(confidence).WithLatency(time.Since(intentStart))

	prefs := q.Prefs.Clone()
	if d := strings.ToLower(prefs.String("domain")); d == "" || d == "generic" {
		delete(prefs, "domain")
	}

	plan := planner.Build(resolved, text, prefs, history)
	tr := trace.New()
	result, err := s.runner.RunPlan(ctx, plan, tr)
	if err != nil {
		log.Error("plan execution failed", map[string]interface{}{"error": err.Error(), "intent": resolved})
		s.record(ctx, resolved.Skill(), false, start)
		return nil, err
	}
	review := critic.Check(result, tr)

	full := trace.New()
	full.Append(intentStep)
	for _, step := range tr.Steps() {
		full.Append(step)
	}
	items := result.Items()
	doc := full.Document(plan.Rationale, providerNames(items), map[string]interface{}{
		"items":      len(items),
		"latency_ms": time.Since(start).Milliseconds(),
	})

	resp := &Response{
		RequestID: requestID,
		Facts:     result.Output,
		Trace:     doc,
	}
	if !review.OK {
		resp.Skill = label
		resp.Answer = AnswerValidationFailed
		resp.Hint = review.FixHint
		resp.Plan = &plan
		resp.CriticMessage = review.Message
		log.Warn("result rejected by critic", map[string]interface{}{"message": review.Message})
	} else {
		resp.Skill = resolved.Skill()
		resp.OK = true
		resp.PlanRationale = plan.Rationale
		if resolved == models.IntentPrice {
			resp.Answer = fmt.Sprintf("Found %d products after normalization.", len(items))
		} else {
			resp.Answer = fmt.Sprintf("I generated %d recommendations.", len(items))
		}
	}

	s.appendDialogue(ctx, q.UserID, text, resp.Answer, log)
	s.record(ctx, resp.Skill, resp.OK, start)

	log.Info("agent query handled", map[string]interface{}{
		"skill":     resp.Skill,
		"ok":        resp.OK,
		"items":     len(items),
		"latencyMs": time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// resolveIntent trusts an explicit intent; otherwise the decider runs.
func (s *Service) resolveIntent(ctx context.Context, q models.Query, text string, history []models.HistoryTurn) (models.Intent, string, float64, string) {
	if raw := strings.TrimSpace(q.Intent); raw != "" {
		return models.ParseExplicitIntent(raw), raw, 1.0, NoteForcedIntent
	}
	dec := s.decider.Decide(ctx, text, q.Prefs, history, s.runner)
	return dec.Intent, dec.Intent.Label(), dec.Confidence, dec.Evidence
}

func (s *Service) appendDialogue(ctx context.Context, userID, question, answer string, log Logger) {
	if s.history == nil || userID == "" {
		return
	}
	if err := s.history.Append(ctx, userID, question, answer); err != nil {
		log.Warn("dialogue append failed", map[string]interface{}{"userId": userID, "error": err.Error()})
	}
}

func (s *Service) record(ctx context.Context, skill string, ok bool, start time.Time) {
	elapsed := time.Since(start)
	metrics.AgentRequests.WithLabelValues(skill, strconv.FormatBool(ok)).Inc()
	metrics.AgentRequestDuration.WithLabelValues(skill).Observe(elapsed.Seconds())
	s.obs.RecordRequest(ctx, skill, ok)
	s.obs.RecordRequestDuration(ctx, elapsed, skill)
}

// providerNames lists distinct item providers in first-seen order.
func providerNames(items []interface{}) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		p, _ := m["provider"].(string)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

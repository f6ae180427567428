// Package intent decides whether a query asks for a price comparison or a
// recommendation when the caller did not say.
package intent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"shopping-agent/internal/common/metrics"
	"shopping-agent/internal/domain"
	"shopping-agent/internal/models"
	"shopping-agent/internal/runtime/critic"
	"shopping-agent/internal/runtime/executor"
	"shopping-agent/internal/runtime/planner"
	"shopping-agent/internal/runtime/trace"

	"golang.org/x/sync/errgroup"
)

// Stages that can settle a decision, reported as metric labels.
const (
	StageRules         = "rules"
	StageHistory       = "history"
	StageEntityDensity = "entity_density"
	StageDualTrial     = "dual_trial"
	StageDefault       = "default"
)

var (
	priceTrigger     = regexp.MustCompile(`(?i)\b(prices?|pricing|cheap(?:er|est)?|lowest|how\s+much|costs?|deals?|discount(?:s|ed)?|on\s+sale|compare|comparison|where\s+(?:to|can\s+i)\s+buy)\b|\$\s*\d`)
	recommendTrigger = regexp.MustCompile(`(?i)\b(recommend(?:ation)?s?|suggest(?:ion)?s?|ideas?|gifts?|advice|advise|what\s+should\s+i|which\s+(?:one|is\s+better|should)|best\s+\w+\s+for|good\s+for|help\s+me\s+(?:choose|pick|decide)|alternatives?|worth\s+it|top\s+\d+)\b`)
	tokenSplit       = regexp.MustCompile(`[^a-z0-9]+`)
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Runner executes a plan; *executor.Executor implements it.
type Runner interface {
	RunPlan(ctx context.Context, plan planner.Plan, tr *trace.Trace) (*executor.Result, error)
}

type Config struct {
	// TrialTimeout is the shared deadline of both trial branches.
	TrialTimeout    time.Duration
	TrialMaxResults int
	// A query is price-shaped when a non-generic profile extracts at least
	// MinEntities facets and facets per token reach DensityThreshold.
	DensityThreshold float64
	MinEntities      int
}

func DefaultConfig() Config {
	return Config{
		TrialTimeout:     4 * time.Second,
		TrialMaxResults:  6,
		DensityThreshold: 0.3,
		MinEntities:      2,
	}
}

type Decision struct {
	Intent     models.Intent `json:"intent"`
	Confidence float64       `json:"confidence"`
	Evidence   string        `json:"evidence"`
	Stage      string        `json:"stage"`
}

type Decider struct {
	profiles *domain.Registry
	cfg      Config
	logger   Logger
}

func NewDecider(profiles *domain.Registry, cfg Config, log Logger) *Decider {
	if cfg.TrialTimeout <= 0 {
		cfg.TrialTimeout = DefaultConfig().TrialTimeout
	}
	if cfg.TrialMaxResults <= 0 {
		cfg.TrialMaxResults = DefaultConfig().TrialMaxResults
	}
	if cfg.DensityThreshold <= 0 {
		cfg.DensityThreshold = DefaultConfig().DensityThreshold
	}
	if cfg.MinEntities <= 0 {
		cfg.MinEntities = DefaultConfig().MinEntities
	}
	return &Decider{
		profiles: profiles,
		cfg:      cfg,
		logger: log.With(map[string]interface{}{
			"component": "intent_decider",
		}),
	}
}

// Decide always returns a decision. Trial failures count against the failing
// branch and are never returned as errors. A nil runner skips the trial.
func (d *Decider) Decide(ctx context.Context, text string, prefs models.Prefs, history []models.HistoryTurn, runner Runner) Decision {
	dec := d.decide(ctx, text, prefs, history, runner)
	metrics.IntentDecisions.WithLabelValues(string(dec.Intent), dec.Stage).Inc()
	d.logger.Info("intent decided", map[string]interface{}{
		"intent":     dec.Intent,
		"stage":      dec.Stage,
		"confidence": dec.Confidence,
		"evidence":   dec.Evidence,
	})
	return dec
}

func (d *Decider) decide(ctx context.Context, text string, prefs models.Prefs, history []models.HistoryTurn, runner Runner) Decision {
	if dec, ok := byRules(text); ok {
		return dec
	}
	if len(history) > 0 && strings.TrimSpace(text) != "" && !priceTrigger.MatchString(text) && !recommendTrigger.MatchString(text) {
		last := history[len(history)-1].Question
		if dec, ok := byRules(last); ok {
			dec.Confidence = 0.7
			dec.Stage = StageHistory
			dec.Evidence = "history: " + dec.Evidence
			return dec
		}
	}
	if dec, ok := d.byEntityDensity(text); ok {
		return dec
	}
	if runner != nil {
		return d.dualTrial(ctx, text, prefs, history, runner)
	}
	return Decision{
		Intent:     models.IntentRecommend,
		Confidence: 0.5,
		Evidence:   "default: no decisive signal",
		Stage:      StageDefault,
	}
}

// byRules is decisive only when exactly one trigger family matches.
func byRules(text string) (Decision, bool) {
	price := priceTrigger.FindString(text)
	reco := recommendTrigger.FindString(text)
	switch {
	case price != "" && reco == "":
		return Decision{
			Intent:     models.IntentPrice,
			Confidence: 0.9,
			Evidence:   fmt.Sprintf("rule: price trigger %q", strings.ToLower(price)),
			Stage:      StageRules,
		}, true
	case reco != "" && price == "":
		return Decision{
			Intent:     models.IntentRecommend,
			Confidence: 0.9,
			Evidence:   fmt.Sprintf("rule: recommend trigger %q", strings.ToLower(reco)),
			Stage:      StageRules,
		}, true
	}
	return Decision{}, false
}

func (d *Decider) byEntityDensity(text string) (Decision, bool) {
	if d.profiles == nil {
		return Decision{}, false
	}
	tokens := strings.Fields(tokenSplit.ReplaceAllString(strings.ToLower(text), " "))
	if len(tokens) == 0 {
		return Decision{}, false
	}
	profile, _ := d.profiles.AutoDetect(text)
	if profile == nil || profile.Name() == domain.GenericName {
		return Decision{}, false
	}
	entities := profile.EntityExtract(text)
	density := float64(len(entities)) / float64(len(tokens))
	if len(entities) < d.cfg.MinEntities || density < d.cfg.DensityThreshold {
		return Decision{}, false
	}
	return Decision{
		Intent:     models.IntentPrice,
		Confidence: math.Min(0.85, 0.6+density*0.2),
		Evidence: fmt.Sprintf("entity_density: profile=%s entities=%d tokens=%d density=%.2f",
			profile.Name(), len(entities), len(tokens), density),
		Stage: StageEntityDensity,
	}, true
}

// dualTrial runs reduced price and recommendation plans concurrently under
// one deadline and picks the branch whose result scores higher. Ties go to
// recommendation. Both branches are flagged as trials so neither retries.
func (d *Decider) dualTrial(ctx context.Context, text string, prefs models.Prefs, history []models.HistoryTurn, runner Runner) Decision {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.TrialTimeout)
	defer cancel()

	pricePrefs := prefs.Clone()
	pricePrefs["trial"] = true
	pricePrefs["max_results"] = d.cfg.TrialMaxResults
	pricePlan := planner.Build(models.IntentPrice, text, pricePrefs, history)

	recoPlan := planner.Build(models.IntentRecommend, text, prefs, history)
	if topk, _ := recoPlan.Steps[0].Inputs["topk"].(int); topk > d.cfg.TrialMaxResults {
		recoPlan.Steps[0].Inputs["topk"] = d.cfg.TrialMaxResults
	}
	recoPlan.Steps[0].Inputs["trial"] = true

	var priceScore, recoScore float64
	var g errgroup.Group
	g.Go(func() error {
		priceScore = d.trial(ctx, "price", pricePlan, runner)
		return nil
	})
	g.Go(func() error {
		recoScore = d.trial(ctx, "recommend", recoPlan, runner)
		return nil
	})
	_ = g.Wait()

	winner := models.IntentRecommend
	if priceScore > recoScore {
		winner = models.IntentPrice
	}
	return Decision{
		Intent:     winner,
		Confidence: math.Min(0.9, 0.5+0.2*math.Abs(priceScore-recoScore)),
		Evidence:   fmt.Sprintf("dual_trial: price=%.2f recommend=%.2f winner=%s", priceScore, recoScore, winner),
		Stage:      StageDualTrial,
	}
}

// trial scores one branch: -1 for a failed or degraded run, -0.5 when the
// critic rejects the result, otherwise the share of the result cap filled.
func (d *Decider) trial(ctx context.Context, branch string, plan planner.Plan, runner Runner) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("intent trial panicked", map[string]interface{}{"branch": branch, "panic": fmt.Sprint(r)})
			score = -1
		}
	}()

	tr := trace.New()
	result, err := runner.RunPlan(ctx, plan, tr)
	if err != nil || result == nil || result.Degraded {
		fields := map[string]interface{}{"branch": branch}
		if err != nil {
			fields["error"] = err.Error()
		}
		d.logger.Warn("intent trial failed", fields)
		return -1
	}
	if review := critic.Check(result, tr); !review.OK {
		return -0.5
	}
	n := len(result.Items())
	if n > d.cfg.TrialMaxResults {
		n = d.cfg.TrialMaxResults
	}
	return float64(n) / float64(d.cfg.TrialMaxResults)
}

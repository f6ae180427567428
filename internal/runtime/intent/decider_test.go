// internal/runtime/intent/decider_test.go
package intent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shopping-agent/internal/domain"
	"shopping-agent/internal/models"
	"shopping-agent/internal/runtime/executor"
	"shopping-agent/internal/runtime/planner"
	"shopping-agent/internal/runtime/tools"
	"shopping-agent/internal/runtime/trace"
	recogenerate "shopping-agent/internal/workers/reco/generate"
	"shopping-agent/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return l
}

type executorTestLogger struct {
	t *testing.T
}

func (l *executorTestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *executorTestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *executorTestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *executorTestLogger) With(fields map[string]interface{}) executor.Logger {
	return l
}

type recoTestLogger struct {
	t *testing.T
}

func (l *recoTestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *recoTestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *recoTestLogger) With(fields map[string]interface{}) recogenerate.Logger {
	return l
}

// ==========================
// Test Helper Functions
// ==========================

// fakeRunner answers each tool with a canned result and records the plans it saw.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]func(ctx context.Context) (*executor.Result, error)
	plans   []planner.Plan
}

func (f *fakeRunner) RunPlan(ctx context.Context, plan planner.Plan, tr *trace.Trace) (*executor.Result, error) {
	f.mu.Lock()
	f.plans = append(f.plans, plan)
	f.mu.Unlock()

	tool := plan.Steps[0].ToolName
	tr.Append(trace.Step{Name: tool})
	return f.results[tool](ctx)
}

func (f *fakeRunner) planFor(tool string) planner.Plan {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.Steps[0].ToolName == tool {
			return p
		}
	}
	return planner.Plan{}
}

func itemsResult(n int) func(ctx context.Context) (*executor.Result, error) {
	return func(ctx context.Context) (*executor.Result, error) {
		items := []interface{}{}
		for i := 0; i < n; i++ {
			items = append(items, map[string]interface{}{"title": "item", "url": "https://example.com/item"})
		}
		return &executor.Result{Output: map[string]interface{}{"items": items}}, nil
	}
}

func newDecider(t *testing.T) *Decider {
	cfg := DefaultConfig()
	cfg.TrialTimeout = 200 * time.Millisecond
	return NewDecider(domain.Default(), cfg, &TestLogger{t: t})
}

// ==========================
// Rule and Density Tests
// ==========================

func TestDecide_Rules(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		history    []models.HistoryTurn
		intent     models.Intent
		stage      string
		confidence float64
	}{
		{name: "price phrasing", text: "cheapest iphone 15 pro", intent: models.IntentPrice, stage: StageRules, confidence: 0.9},
		{name: "dollar amount", text: "galaxy s24 under $900", intent: models.IntentPrice, stage: StageRules, confidence: 0.9},
		{name: "recommend phrasing", text: "recommend a laptop for university", intent: models.IntentRecommend, stage: StageRules, confidence: 0.9},
		{name: "gift idea", text: "gift ideas for my dad", intent: models.IntentRecommend, stage: StageRules, confidence: 0.9},
		{
			name:       "follow-up carries history",
			text:       "and the blue one?",
			history:    []models.HistoryTurn{{Question: "compare prices for nike air max 90", Answer: "Found 8 products after normalization."}},
			intent:     models.IntentPrice,
			stage:      StageHistory,
			confidence: 0.7,
		},
		{name: "entity dense", text: "iphone 15 pro 256gb", intent: models.IntentPrice, stage: StageEntityDensity, confidence: 0.85},
		{name: "both triggers without runner", text: "what should I buy, cheapest option?", intent: models.IntentRecommend, stage: StageDefault, confidence: 0.5},
	}

	d := newDecider(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := d.Decide(context.Background(), tt.text, nil, tt.history, nil)
			assert.Equal(t, tt.intent, dec.Intent)
			assert.Equal(t, tt.stage, dec.Stage)
			assert.InDelta(t, tt.confidence, dec.Confidence, 1e-9)
			assert.NotEmpty(t, dec.Evidence)
		})
	}
}

func TestDecide_EntityDensityEvidence(t *testing.T) {
	dec := newDecider(t).Decide(context.Background(), "iphone 15 pro 256gb", nil, nil, nil)
	assert.Contains(t, dec.Evidence, "profile="+domain.PhoneName)
	assert.Contains(t, dec.Evidence, "entities=5")
}

// ==========================
// Dual Trial Tests
// ==========================

func TestDecide_DualTrial(t *testing.T) {
	tests := []struct {
		name   string
		price  func(ctx context.Context) (*executor.Result, error)
		reco   func(ctx context.Context) (*executor.Result, error)
		intent models.Intent
	}{
		{name: "recommendation yields more", price: itemsResult(0), reco: itemsResult(3), intent: models.IntentRecommend},
		{name: "price yields more", price: itemsResult(5), reco: itemsResult(1), intent: models.IntentPrice},
		{
			name: "price branch errors",
			price: func(ctx context.Context) (*executor.Result, error) {
				return nil, errors.New("provider down")
			},
			reco:   itemsResult(0),
			intent: models.IntentRecommend,
		},
		{
			name:  "recommendation branch degraded",
			price: itemsResult(1),
			reco: func(ctx context.Context) (*executor.Result, error) {
				return &executor.Result{Output: map[string]interface{}{"items": []interface{}{}}, Degraded: true}, nil
			},
			intent: models.IntentPrice,
		},
		{
			name: "price branch panics",
			price: func(ctx context.Context) (*executor.Result, error) {
				panic("nil listing")
			},
			reco:   itemsResult(2),
			intent: models.IntentRecommend,
		},
		{
			name: "price branch fails critic",
			price: func(ctx context.Context) (*executor.Result, error) {
				item := map[string]interface{}{"title": "no url"}
				return &executor.Result{Output: map[string]interface{}{"items": []interface{}{item}}}, nil
			},
			reco: func(ctx context.Context) (*executor.Result, error) {
				return nil, errors.New("generator down")
			},
			intent: models.IntentPrice,
		},
		{name: "tie goes to recommendation", price: itemsResult(2), reco: itemsResult(2), intent: models.IntentRecommend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{results: map[string]func(ctx context.Context) (*executor.Result, error){
				registry.ToolPriceCompareFull: tt.price,
				registry.ToolRecoGenerate:     tt.reco,
			}}

			dec := newDecider(t).Decide(context.Background(), "stuff for the garage", models.Prefs{"region": "NZ"}, nil, runner)
			assert.Equal(t, tt.intent, dec.Intent)
			assert.Equal(t, StageDualTrial, dec.Stage)
			assert.Contains(t, dec.Evidence, "dual_trial:")
			assert.Contains(t, dec.Evidence, "winner="+string(tt.intent))
			assert.GreaterOrEqual(t, dec.Confidence, 0.5)
			assert.LessOrEqual(t, dec.Confidence, 0.9)
		})
	}
}

func TestDecide_DualTrialBoundsScope(t *testing.T) {
	runner := &fakeRunner{results: map[string]func(ctx context.Context) (*executor.Result, error){
		registry.ToolPriceCompareFull: itemsResult(1),
		registry.ToolRecoGenerate:     itemsResult(1),
	}}
	prefs := models.Prefs{"region": "NZ"}

	newDecider(t).Decide(context.Background(), "stuff for the garage", prefs, nil, runner)

	pricePlan := runner.planFor(registry.ToolPriceCompareFull)
	require.Len(t, pricePlan.Steps, 1)
	trialPrefs := pricePlan.Steps[0].Inputs["prefs"].(map[string]interface{})
	assert.Equal(t, true, trialPrefs["trial"])
	assert.Equal(t, 6, trialPrefs["max_results"])
	assert.Equal(t, "NZ", pricePlan.Steps[0].Inputs["region"])

	_, touched := prefs["trial"]
	assert.False(t, touched, "caller prefs are not modified")
}

func TestDecide_DualTrialDeadline(t *testing.T) {
	blocking := func(ctx context.Context) (*executor.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	runner := &fakeRunner{results: map[string]func(ctx context.Context) (*executor.Result, error){
		registry.ToolPriceCompareFull: blocking,
		registry.ToolRecoGenerate:     itemsResult(1),
	}}

	start := time.Now()
	dec := newDecider(t).Decide(context.Background(), "stuff for the garage", nil, nil, runner)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, models.IntentRecommend, dec.Intent)
	assert.Contains(t, dec.Evidence, "price=-1.00")
}

func TestDecide_DualTrialDoesNotRetryGenerator(t *testing.T) {
	var calls int32
	genai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer genai.Close()

	recoConfig := recogenerate.LoadConfig()
	recoConfig.GenAIBaseURL = genai.URL
	recoConfig.Timeout = time.Second
	recoConfig.MaxRetries = 2
	reco := recogenerate.NewHandler(recoConfig, recogenerate.NewGenAIClient(recoConfig), &recoTestLogger{t: t})

	noListings := func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"items": []interface{}{}}, nil
	}

	catalog := registry.DefaultCatalog()
	reg := tools.NewRegistry()
	require.NoError(t, reg.RegisterFromCatalog(catalog, registry.ToolRecoGenerate, reco.Tool()))
	require.NoError(t, reg.RegisterFromCatalog(catalog, registry.ToolPriceCompareFull, noListings))
	runner := executor.New(reg, nil, &executorTestLogger{t: t})

	cfg := DefaultConfig()
	cfg.TrialTimeout = 2 * time.Second
	dec := NewDecider(domain.Default(), cfg, &TestLogger{t: t}).
		Decide(context.Background(), "stuff for the garage", nil, nil, runner)

	assert.Equal(t, StageDualTrial, dec.Stage)
	assert.Contains(t, dec.Evidence, "recommend=-1.00")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "trial makes a single generator attempt")
}

func TestDecide_DualTrialFlagsRecommendStep(t *testing.T) {
	runner := &fakeRunner{results: map[string]func(ctx context.Context) (*executor.Result, error){
		registry.ToolPriceCompareFull: itemsResult(1),
		registry.ToolRecoGenerate:     itemsResult(1),
	}}

	newDecider(t).Decide(context.Background(), "stuff for the garage", nil, nil, runner)

	recoPlan := runner.planFor(registry.ToolRecoGenerate)
	require.Len(t, recoPlan.Steps, 1)
	assert.Equal(t, true, recoPlan.Steps[0].Inputs["trial"])
	assert.Equal(t, 5, recoPlan.Steps[0].Inputs["topk"])
}

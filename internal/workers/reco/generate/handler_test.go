package recogenerate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/runtime/tools"
	"shopping-agent/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger
// ==========================

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return l
}

// ==========================
// Test Helper Functions
// ==========================

type fakeGenerator struct {
	gen   *Generation
	err   error
	goals []string
}

func (f *fakeGenerator) Generate(ctx context.Context, goal string) (*Generation, error) {
	f.goals = append(f.goals, goal)
	if f.err != nil {
		return nil, f.err
	}
	return f.gen, nil
}

func item(title, url string, price interface{}) map[string]interface{} {
	m := map[string]interface{}{"title": title, "url": url}
	if price != nil {
		m["price"] = price
	}
	return m
}

func budget(v float64) *float64 { return &v }

// ==========================
// Handler
// ==========================

func TestGenerate_FieldAliases(t *testing.T) {
	gen := &fakeGenerator{gen: &Generation{Items: []interface{}{
		map[string]interface{}{"name": "Runner X", "link": "https://shop.example.com/x", "why": "light", "price": "$1,299.00", "curr": "USD"},
		map[string]interface{}{"product": "Trail Y", "product_url": "https://shop.example.com/y"},
		map[string]interface{}{"label": "No URL"},
		"bare string",
	}}}
	h := NewHandler(LoadConfig(), gen, &TestLogger{t})

	out, err := h.Generate(context.Background(), &Input{Goal: " running shoes "})
	require.NoError(t, err)
	assert.Equal(t, []string{"running shoes"}, gen.goals)

	require.Len(t, out.Items, 2)
	first := out.Items[0]
	assert.Equal(t, "Runner X", first.Title)
	assert.Equal(t, "https://shop.example.com/x", first.URL)
	assert.Equal(t, "light", first.Reason)
	assert.Equal(t, "USD", first.Currency)
	require.NotNil(t, first.Price)
	assert.Equal(t, 1299.0, *first.Price)
	assert.False(t, first.Fallback)

	second := out.Items[1]
	assert.Equal(t, "Trail Y", second.Title)
	assert.Equal(t, "AUD", second.Currency)
	assert.Nil(t, second.Price)
	assert.Equal(t, []string{}, out.RationaleTopK)
}

func TestGenerate_BudgetAndTopK(t *testing.T) {
	items := []interface{}{
		item("A", "https://a.example.com", 400.0),
		item("B", "https://b.example.com", 600.0),
		item("C", "https://c.example.com", nil),
		item("D", "https://d.example.com", "450"),
		item("E", "https://e.example.com", 100.0),
	}

	tests := []struct {
		name   string
		budget *float64
		topK   int
		want   []string
	}{
		{name: "budget filters priced items", budget: budget(500), topK: 5, want: []string{"A", "C", "D", "E"}},
		{name: "topk caps", topK: 2, want: []string{"A", "B"}},
		{name: "default topk", want: []string{"A", "B", "C", "D", "E"}},
		{name: "budget then topk", budget: budget(500), topK: 3, want: []string{"A", "C", "D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(), &fakeGenerator{gen: &Generation{Items: items}}, &TestLogger{t})
			out, err := h.Generate(context.Background(), &Input{Goal: "gift", Budget: tt.budget, TopK: tt.topK})
			require.NoError(t, err)

			var titles []string
			for _, it := range out.Items {
				titles = append(titles, it.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestGenerate_FallbackItem(t *testing.T) {
	gen := &fakeGenerator{gen: &Generation{
		Items:     []interface{}{map[string]interface{}{"title": "missing url"}},
		Reasoning: "nothing usable",
	}}
	h := NewHandler(LoadConfig(), gen, &TestLogger{t})

	out, err := h.Generate(context.Background(), &Input{Goal: "running shoes"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Top pick for running shoes", out.Items[0].Title)
	assert.Equal(t, FallbackURL, out.Items[0].URL)
	assert.Equal(t, FallbackReason, out.Items[0].Reason)
	assert.True(t, out.Items[0].Fallback)
	assert.Nil(t, out.Items[0].Price)
	assert.Equal(t, []string{"nothing usable"}, out.RationaleTopK)
}

func TestGenerate_Errors(t *testing.T) {
	h := NewHandler(LoadConfig(), &fakeGenerator{}, &TestLogger{t})
	_, err := h.Generate(context.Background(), &Input{Goal: ""})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))

	failing := NewHandler(LoadConfig(), &fakeGenerator{err: apperrors.NewRecommendationFailedError(errors.New("boom"))}, &TestLogger{t})
	_, err = failing.Generate(context.Background(), &Input{Goal: "gift"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRecommendationFailed))
}

func TestGeneration_Rationale(t *testing.T) {
	g := &Generation{RationaleTopK: []interface{}{"one", "", "two"}, Reasoning: "ignored"}
	assert.Equal(t, []string{"one", "two"}, g.Rationale())

	g = &Generation{Reasoning: "why"}
	assert.Equal(t, []string{"why"}, g.Rationale())
}

func TestTool_RegisteredAndSchemaChecked(t *testing.T) {
	gen := &fakeGenerator{gen: &Generation{Items: []interface{}{item("A", "https://a.example.com", 10.0)}}}
	h := NewHandler(LoadConfig(), gen, &TestLogger{t})

	reg := tools.NewRegistry()
	require.NoError(t, reg.RegisterFromCatalog(registry.DefaultCatalog(), TaskType, h.Tool()))

	out, err := reg.Invoke(context.Background(), TaskType, map[string]interface{}{
		"goal":   "gift",
		"budget": nil,
		"topk":   5,
	})
	require.NoError(t, err)
	items, ok := out["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].(map[string]interface{})["title"])
}

// ==========================
// GenAI Client
// ==========================

func TestGenAIClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/ai/recommend", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gift", body["goal"])

		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"title": "A", "url": "https://a.example.com"}], "rationale_topk": ["cheap"]}`))
	}))
	defer server.Close()

	client := NewGenAIClient(&Config{GenAIBaseURL: server.URL + "/", APIKey: "key", Timeout: time.Second, MaxRetries: 2})
	gen, err := client.Generate(context.Background(), "gift")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, gen.Items, 1)
	assert.Equal(t, []string{"cheap"}, gen.Rationale())
}

func TestGenAIClient_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewGenAIClient(&Config{GenAIBaseURL: server.URL, Timeout: time.Second, MaxRetries: 3})
	_, err := client.Generate(context.Background(), "gift")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRecommendationFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenAIClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewGenAIClient(&Config{GenAIBaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.Generate(context.Background(), "gift")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRecommendationTimeout))
}

func TestGenerate_TrialMakesSingleAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	config := LoadConfig()
	config.GenAIBaseURL = server.URL
	config.Timeout = time.Second
	config.MaxRetries = 3
	h := NewHandler(config, NewGenAIClient(config), &TestLogger{t})

	tests := []struct {
		name  string
		trial bool
		calls int32
	}{
		{name: "trial", trial: true, calls: 1},
		{name: "regular request retries", trial: false, calls: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atomic.StoreInt32(&calls, 0)
			_, err := h.Generate(context.Background(), &Input{Goal: "gift", Trial: tt.trial})
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRecommendationFailed))
			assert.Equal(t, tt.calls, atomic.LoadInt32(&calls))
		})
	}
}

func TestTool_AcceptsTrialFlag(t *testing.T) {
	gen := &fakeGenerator{gen: &Generation{Items: []interface{}{item("A", "https://a.example.com", 10.0)}}}
	h := NewHandler(LoadConfig(), gen, &TestLogger{t})

	reg := tools.NewRegistry()
	require.NoError(t, reg.RegisterFromCatalog(registry.DefaultCatalog(), TaskType, h.Tool()))

	_, err := reg.Invoke(context.Background(), TaskType, map[string]interface{}{"goal": "gift", "topk": 5, "trial": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"gift"}, gen.goals)
}

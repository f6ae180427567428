package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopping-agent/internal/agent"
	"shopping-agent/internal/common/database"
	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/common/logger"
	"shopping-agent/internal/models"
	comparefull "shopping-agent/internal/workers/price/compare-full"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==========================
// Test Logger
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

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return l
}

// ==========================
// Test Helper Functions
// ==========================

type fakeAgent struct {
	query     models.Query
	requestID string
	resp      *agent.Response
	err       error
}

func (f *fakeAgent) HandleQuery(ctx context.Context, q models.Query) (*agent.Response, error) {
	f.query = q
	f.requestID = logger.RequestIDFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	if q.Text == "" {
		return nil, apperrors.NewInvalidRequestError("text is required")
	}
	return f.resp, nil
}

type fakeComparer struct {
	input *comparefull.Input
	out   *comparefull.Output
	err   error
}

func (f *fakeComparer) Compare(ctx context.Context, input *comparefull.Input) (*comparefull.Output, error) {
	f.input = input
	return f.out, f.err
}

type fakePinger struct {
	name string
	err  error
}

func (p fakePinger) Name() string                   { return p.name }
func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func newRouter(t *testing.T, a Agent, c Comparer, backends ...fakePinger) *gin.Engine {
	log := &TestLogger{t}
	pingers := make([]database.Pinger, 0, len(backends))
	for _, b := range backends {
		pingers = append(pingers, b)
	}
	return NewRouter(NewHandlers(a, c, pingers, log), "shopping-agent-test", log)
}

func do(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// ==========================
// POST /agent
// ==========================

func TestHandleAgent_Success(t *testing.T) {
	a := &fakeAgent{resp: &agent.Response{
		RequestID: "req-1",
		Skill:     models.SkillPriceCompare,
		OK:        true,
		Answer:    "Found 2 products after normalization.",
	}}
	router := newRouter(t, a, &fakeComparer{})

	w := do(router, http.MethodPost, "/agent",
		`{"text": "iphone 15 pro", "intent": "price", "user_id": "u1", "prefs": {"debug": true}}`,
		map[string]string{HeaderRequestID: "req-1"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "iphone 15 pro", a.query.Text)
	assert.Equal(t, "price", a.query.Intent)
	assert.Equal(t, "u1", a.query.UserID)
	assert.True(t, a.query.Prefs.Bool("debug"))
	assert.Equal(t, "req-1", a.requestID)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "price_compare", body["skill"])
	assert.Equal(t, "Found 2 products after normalization.", body["answer"])
}

func TestHandleAgent_GeneratesRequestID(t *testing.T) {
	a := &fakeAgent{resp: &agent.Response{OK: true}}
	router := newRouter(t, a, &fakeComparer{})

	w := do(router, http.MethodPost, "/agent", `{"text": "gift ideas"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), a.requestID)
}

func TestHandleAgent_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		agentErr   error
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{
			name:       "malformed json",
			body:       `{"text": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidRequest,
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidRequest,
		},
		{
			name:       "empty text",
			body:       `{"text": ""}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidRequest,
		},
		{
			name:       "unknown tool",
			body:       `{"text": "laptop"}`,
			agentErr:   apperrors.NewToolNotFoundError("price.compare_full"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.ErrCodeToolNotFound,
		},
		{
			name:       "schema mismatch",
			body:       `{"text": "laptop"}`,
			agentErr:   apperrors.NewSchemaMismatchError("reco.generate", "output", []string{"items: is required"}),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.ErrCodeSchemaMismatch,
		},
		{
			name:       "plain error",
			body:       `{"text": "laptop"}`,
			agentErr:   errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t, &fakeAgent{err: tt.agentErr, resp: &agent.Response{}}, &fakeComparer{})

			w := do(router, http.MethodPost, "/agent", tt.body, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, string(tt.wantCode), body.Error.Code)
		})
	}
}

// ==========================
// POST /compare
// ==========================

func TestHandleCompare_Success(t *testing.T) {
	c := &fakeComparer{out: &comparefull.Output{
		Items: []models.CompareItem{
			{Title: "Apple iPhone 15 Pro 256GB", URL: "https://shop.example.com/1", Currency: "AUD", Provider: "JB Hi-Fi"},
		},
		Diagnostics: &comparefull.Diagnostics{Domain: "phone", Raw: 1, Final: 1},
	}}
	router := newRouter(t, &fakeAgent{}, c)

	w := do(router, http.MethodPost, "/compare",
		`{"text": "iphone 15 pro 256gb", "region": "AU", "prefs": {"domain": "phone"}}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, c.input)
	assert.Equal(t, "iphone 15 pro 256gb", c.input.Text)
	assert.Equal(t, "AU", c.input.Region)
	assert.Equal(t, "phone", c.input.Prefs.String("domain"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["items"], 1)
	diag := body["diagnostics"].(map[string]interface{})
	assert.Equal(t, "phone", diag["domain"])
	assert.NotContains(t, body, "debug")
}

func TestHandleCompare_Errors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		router := newRouter(t, &fakeAgent{}, &fakeComparer{})
		w := do(router, http.MethodPost, "/compare", `not json`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid request from comparer", func(t *testing.T) {
		router := newRouter(t, &fakeAgent{}, &fakeComparer{err: apperrors.NewInvalidRequestError("text is required")})
		w := do(router, http.MethodPost, "/compare", `{"text": ""}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "text is required", decodeError(t, w).Error.Details)
	})
}

// ==========================
// Health / Ready / Metrics
// ==========================

func TestHealth(t *testing.T) {
	router := newRouter(t, &fakeAgent{}, &fakeComparer{})
	w := do(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestReady(t *testing.T) {
	t.Run("all backends up", func(t *testing.T) {
		router := newRouter(t, &fakeAgent{}, &fakeComparer{},
			fakePinger{name: "redis"}, fakePinger{name: "postgres"})
		w := do(router, http.MethodGet, "/ready", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status": "ready", "backends": {"redis": "ok", "postgres": "ok"}}`, w.Body.String())
	})

	t.Run("no backends configured", func(t *testing.T) {
		router := newRouter(t, &fakeAgent{}, &fakeComparer{})
		w := do(router, http.MethodGet, "/ready", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("backend down", func(t *testing.T) {
		router := newRouter(t, &fakeAgent{}, &fakeComparer{},
			fakePinger{name: "redis"}, fakePinger{name: "elasticsearch", err: errors.New("connection refused")})
		w := do(router, http.MethodGet, "/ready", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
		assert.Contains(t, w.Body.String(), "not_ready")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(t, &fakeAgent{}, &fakeComparer{})
	w := do(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	router := newRouter(t, &fakeAgent{}, &fakeComparer{})
	w := do(router, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ==========================
// Server lifecycle
// ==========================

func TestServer_RunStopsOnCancel(t *testing.T) {
	log := &TestLogger{t}
	srv := New(Config{Address: "127.0.0.1:0", ShutdownTimeout: time.Second}, http.NotFoundHandler(), log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	log := &TestLogger{t}
	srv := New(Config{Address: "127.0.0.1:-1"}, http.NotFoundHandler(), log)

	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
}

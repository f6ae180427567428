package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.warns = append(l.warns, msg) }

func TestAsStandard_ThroughWrapping(t *testing.T) {
	base := NewToolNotFoundError("price.compare_full")
	wrapped := fmt.Errorf("run plan: %w", base)

	stdErr, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeToolNotFound, stdErr.Code)
	assert.True(t, IsCode(wrapped, ErrCodeToolNotFound))
	assert.False(t, IsCode(wrapped, ErrCodeSchemaMismatch))
}

func TestProviderError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewProviderUnavailableError("shopping", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "shopping", err.Metadata["provider"])
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))
	assert.Equal(t, ErrCodeInternal, Normalize(stderrors.New("boom")).Code)

	schemaErr := NewSchemaMismatchError("reco.generate", "output", []string{"items: required"})
	assert.Same(t, schemaErr, Normalize(schemaErr))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidRequest, http.StatusBadRequest},
		{ErrCodeSchemaMismatch, http.StatusInternalServerError},
		{ErrCodeToolNotFound, http.StatusInternalServerError},
		{ErrCodeProviderUnavailable, http.StatusBadGateway},
		{ErrCodeProviderTimeout, http.StatusGatewayTimeout},
		{ErrCodeValidationFailure, http.StatusUnprocessableEntity},
		{ErrCodeDatabaseError, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "RUNTIME", GetErrorCategory(ErrCodeSchemaMismatch))
	assert.Equal(t, "PROVIDER", GetErrorCategory(ErrCodeProviderTimeout))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeRecommendationFailed))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeCacheError))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidRequest))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestErrorHandler_Write(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	rec := httptest.NewRecorder()
	h.Write(rec, NewSchemaMismatchError("price.compare_full", "input", []string{"text: required"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, log.errors, 1)

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SCHEMA_MISMATCH", body["error"]["code"])
	assert.Equal(t, "RUNTIME", body["error"]["category"])

	rec = httptest.NewRecorder()
	h.Write(rec, NewInvalidRequestError("text is required"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, log.warns, 1)
}

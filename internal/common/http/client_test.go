package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "shopping-agent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"shopping_results":[{"title":"iPhone 15"}]}`))
	}))
	defer server.Close()

	var out struct {
		Results []map[string]interface{} `json:"shopping_results"`
	}
	err := NewClient(time.Second).GetJSON(context.Background(), server.URL, map[string]string{"X-Api-Key": "secret"}, &out)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "iPhone 15", out.Results[0]["title"])
}

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gift for dad", body["goal"])
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var out map[string]interface{}
	err := NewClient(time.Second).PostJSON(context.Background(), server.URL, nil, map[string]string{"goal": "gift for dad"}, &out)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	err := NewClient(time.Second).GetJSON(context.Background(), server.URL, nil, nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "maintenance", statusErr.Body)
	assert.False(t, IsTimeout(err))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	err := NewClient(50*time.Millisecond).GetJSON(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

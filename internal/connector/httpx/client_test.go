package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	cfg := DefaultClientConfig()
	cfg.BaseURL = baseURL
	cfg.RateLimit = 1000
	cfg.RateBurst = 100
	return NewClient(cfg)
}

func TestClient_Unit_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "edinburgh", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Get(context.Background(), "/search", url.Values{"q": {"edinburgh"}})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	var body map[string]string
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestClient_Unit_PostSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "padel courts", body["q"])
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Post(context.Background(), "/search", map[string]any{"q": "padel courts"})
	require.NoError(t, err)
}

func TestClient_Unit_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Get(context.Background(), "/", nil)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Unit_RetriedPostResendsBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body), "every attempt carries the body")
		assert.Equal(t, "padel courts", body["q"])

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Post(context.Background(), "/search", map[string]any{"q": "padel courts"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Unit_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Get(context.Background(), "/", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.False(t, httpErr.IsRateLimited())
	assert.False(t, httpErr.IsServerError())
}

func TestClient_Unit_ConfiguredHeadersApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "edinburgh-finds/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.Headers["X-API-KEY"] = "secret"
	_, err := NewClient(cfg).Get(context.Background(), "/", nil)
	require.NoError(t, err)
}

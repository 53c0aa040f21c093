package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func stagedPDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRemoteEngine_Process(t *testing.T) {
	var got remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/predict/pp_structure_v3":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[{"type":"table","res":{"html":"<table/>"}}],"status":"success"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	eng, err := NewRemoteEngine(context.Background(), DefaultOptions(), RemoteSettings{
		URL:        srv.URL + "/predict/pp_structure_v3",
		HealthPath: "/health",
		APIKey:     "secret",
		Retry:      fastRetry(),
	}, srv.Client(), nil)
	require.NoError(t, err)

	elems, err := eng.Process(context.Background(), stagedPDF(t, "%PDF-1.4 body"), "fr")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, "table", elems[0].Type)

	decoded, err := base64.StdEncoding.DecodeString(got.PDFData)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(decoded))
	assert.Equal(t, "fr", got.Lang)
	assert.False(t, got.UseGPU)
}

func TestRemoteEngine_HealthCheckFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewRemoteEngine(context.Background(), DefaultOptions(), RemoteSettings{
		URL:        srv.URL + "/predict",
		HealthPath: "/health",
		Retry:      fastRetry(),
	}, srv.Client(), nil)
	require.Error(t, err)

	var missing *MissingDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestRemoteEngine_InvalidURL(t *testing.T) {
	_, err := NewRemoteEngine(context.Background(), DefaultOptions(), RemoteSettings{URL: "not a url"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid remote url")
}

func TestRemoteEngine_RetriesOnlyRejections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"type":"text","res":"ok"}]`))
	}))
	defer srv.Close()

	eng, err := NewRemoteEngine(context.Background(), DefaultOptions(), RemoteSettings{
		URL:   srv.URL,
		Retry: fastRetry(),
	}, srv.Client(), nil)
	require.NoError(t, err)

	elems, err := eng.Process(context.Background(), stagedPDF(t, "x"), "en")
	require.NoError(t, err)
	assert.Len(t, elems, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoteEngine_ServerErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Extraction failed: bad xref"}`))
	}))
	defer srv.Close()

	eng, err := NewRemoteEngine(context.Background(), DefaultOptions(), RemoteSettings{
		URL:   srv.URL,
		Retry: fastRetry(),
	}, srv.Client(), nil)
	require.NoError(t, err)

	_, err = eng.Process(context.Background(), stagedPDF(t, "x"), "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500: Extraction failed: bad xref")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}

	assert.Equal(t, time.Second, calculateBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, calculateBackoff(1, cfg))
	assert.Equal(t, 4*time.Second, calculateBackoff(2, cfg))
	assert.Equal(t, 5*time.Second, calculateBackoff(3, cfg))
}

func TestShouldRetry(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, shouldRetryHealthCheck(code), code)
	}
	assert.False(t, shouldRetryHealthCheck(404))

	assert.True(t, shouldRetryPredict(429))
	assert.True(t, shouldRetryPredict(503))
	assert.False(t, shouldRetryPredict(500))
	assert.False(t, shouldRetryPredict(504))
}

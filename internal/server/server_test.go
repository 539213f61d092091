package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elavarasan2006/jobrole/internal/artifact"
	"github.com/elavarasan2006/jobrole/internal/artifact/artifacttest"
	"github.com/elavarasan2006/jobrole/internal/config"
	"github.com/elavarasan2006/jobrole/internal/pipeline"
	"github.com/elavarasan2006/jobrole/internal/telemetry"
)

const profileJSON = `{
	"Degree": "MCA",
	"Major": "CS",
	"Specialization": "Frontend",
	"CGPA": 7.5,
	"Years of Experience": "2",
	"Preferred Industry": "Startups",
	"Skills": "HTML, CSS, ReactJS",
	"Certification": "Google Cloud Basics"
}`

func newTestServer(t *testing.T, base string, mutate func(*config.ServerConfig)) *Server {
	t.Helper()
	holder := artifact.NewHolder(func() (*artifact.Bundle, error) {
		return artifact.Open(base, artifact.Options{})
	}, artifact.HolderOptions{})
	t.Cleanup(func() { _ = holder.Close() })

	cfg := config.Default().Server
	cfg.EnableReload = true
	if mutate != nil {
		mutate(&cfg)
	}
	metrics := telemetry.NewMetrics()
	svc := pipeline.New(holder, pipeline.Options{Metrics: metrics})
	return New(cfg, svc, metrics, nil)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestPredictOK(t *testing.T) {
	s := newTestServer(t, artifacttest.WriteDefault(t), nil)

	rr := do(t, s, http.MethodPost, "/v1/predict", profileJSON)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "primary", rr.Header().Get("X-Prediction-Path"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Frontend Developer", got["prediction"])
	assert.Len(t, got["suggestions"], 2)
	assert.Len(t, got, 3)
}

func TestPredictKeepsCallerRequestID(t *testing.T) {
	s := newTestServer(t, artifacttest.WriteDefault(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(profileJSON))
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestPredictErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"Degree":`, http.StatusBadRequest, pipeline.CodeInvalidRequest},
		{"not an object", `[1, 2]`, http.StatusBadRequest, pipeline.CodeInvalidRequest},
		{"null body", `null`, http.StatusBadRequest, pipeline.CodeInvalidRequest},
		{"bad cgpa", `{"CGPA": "abc"}`, http.StatusBadRequest, pipeline.CodeInvalidNumericInput},
	}
	s := newTestServer(t, artifacttest.WriteDefault(t), nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/v1/predict", tc.body)
			require.Equal(t, tc.status, rr.Code)
			var got errorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, tc.code, got.Code)
			assert.NotEmpty(t, got.Detail)
		})
	}
}

func TestPredictMissingBundleIs500(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "missing"), nil)

	rr := do(t, s, http.MethodPost, "/v1/predict", profileJSON)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var got errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, pipeline.CodeArtifactMissing, got.Code)
}

func TestPredictWrongMethod(t *testing.T) {
	s := newTestServer(t, artifacttest.WriteDefault(t), nil)
	rr := do(t, s, http.MethodGet, "/v1/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestPredictBodyLimit(t *testing.T) {
	s := newTestServer(t, artifacttest.WriteDefault(t), func(c *config.ServerConfig) { c.MaxBodyBytes = 16 })
	rr := do(t, s, http.MethodPost, "/v1/predict", profileJSON)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestPredictRateLimited(t *testing.T) {
	s := newTestServer(t, artifacttest.WriteDefault(t), func(c *config.ServerConfig) {
		c.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	})
	first := do(t, s, http.MethodPost, "/v1/predict", profileJSON)
	require.Equal(t, http.StatusOK, first.Code)

	second := do(t, s, http.MethodPost, "/v1/predict", profileJSON)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, artifacttest.WriteDefault(t), nil)

	rr := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())

	rr = do(t, s, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got readyBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "ready", got.Status)
	assert.True(t, got.Probabilities)
	assert.True(t, got.Encoders)
	assert.Equal(t, 16, got.Columns)
}

func TestReadyWithoutBundle(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "missing"), nil)
	rr := do(t, s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, artifacttest.WriteDefault(t), nil)
	do(t, s, http.MethodPost, "/v1/predict", profileJSON)

	rr := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `jobrole_predictions_total{code="ok",path="primary"} 1`)
}

func TestReload(t *testing.T) {
	base := t.TempDir()
	artifacttest.Write(t, filepath.Join(base, "v1"), artifacttest.Default())
	artifacttest.Write(t, filepath.Join(base, "v2"), artifacttest.Default())
	_, err := artifact.Promote(base, "v1")
	require.NoError(t, err)

	s := newTestServer(t, base, nil)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz", "").Code)

	_, err = artifact.Promote(base, "v2")
	require.NoError(t, err)
	rr := do(t, s, http.MethodPost, "/v1/reload", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got reloadBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "v2", got.Version)
	assert.Equal(t, string(artifact.ReloadSwapped), got.Outcome)
}

func TestReloadDisabled(t *testing.T) {
	s := newTestServer(t, artifacttest.WriteDefault(t), func(c *config.ServerConfig) { c.EnableReload = false })
	rr := do(t, s, http.MethodPost, "/v1/reload", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

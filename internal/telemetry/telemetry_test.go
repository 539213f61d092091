package telemetry

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.ObservePrediction("primary", "ok", 0)
	m.ObservePrediction("fallback", "ok", 2)
	m.ObservePrediction("fallback", "ok", 0)
	m.ObserveReload("swapped")
	m.HistoryEvent("dropped")
	m.ObserveStage("assemble", time.Millisecond)
	m.ObserveRequest("/v1/predict", "200", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("primary", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictions.WithLabelValues("fallback", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.paddedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloads.WithLabelValues("swapped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyEvents.WithLabelValues("dropped")))
}

func TestMetricsBundleInfoKeepsOneSeries(t *testing.T) {
	m := NewMetrics()
	m.SetBundle("v1", true)
	m.SetBundle("v2", false)

	assert.Equal(t, 1, testutil.CollectAndCount(m.bundleInfo))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bundleInfo.WithLabelValues("v2", "false")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObservePrediction("primary", "ok", 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `jobrole_predictions_total{code="ok",path="primary"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePrediction("primary", "ok", 1)
	m.ObserveStage("rank", time.Second)
	m.ObserveRequest("/", "200", time.Second)
	m.ObserveReload("failed")
	m.SetBundle("v", true)
	m.HistoryEvent("enqueued")
	assert.NotNil(t, m.Registry())
	assert.NotNil(t, Tracer())
}

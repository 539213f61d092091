// Package telemetry exposes Prometheus metrics and the OpenTelemetry tracer
// used by the prediction pipeline.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	namespace      = "jobrole"
	instrumentName = "github.com/elavarasan2006/jobrole"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	predictions     *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	requestDuration *prometheus.HistogramVec
	reloads         *prometheus.CounterVec
	bundleInfo      *prometheus.GaugeVec
	paddedTotal     prometheus.Counter
	historyEvents   *prometheus.CounterVec
}

// NewMetrics registers all collectors, plus Go runtime and process metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by assembly path and outcome code.",
		}, []string{"path", "code"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"stage"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_reloads_total",
			Help:      "Bundle reload attempts by outcome.",
		}, []string{"outcome"}),
		bundleInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_info",
			Help:      "Active bundle; always 1.",
		}, []string{"version", "probabilities"}),
		paddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "padded_suggestions_total",
			Help:      "Synthetic suggestions added to fill the ranking.",
		}),
		historyEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_events_total",
			Help:      "History events by result (enqueued, dropped, delivered, failed).",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.predictions,
		m.stageDuration,
		m.requestDuration,
		m.reloads,
		m.bundleInfo,
		m.paddedTotal,
		m.historyEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
}

// ObservePrediction counts one prediction request.
func (m *Metrics) ObservePrediction(path, code string, padded int) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(path, code).Inc()
	if padded > 0 {
		m.paddedTotal.Add(float64(padded))
	}
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// ObserveReload counts a reload attempt.
func (m *Metrics) ObserveReload(outcome string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(outcome).Inc()
}

// SetBundle marks version as the active bundle.
func (m *Metrics) SetBundle(version string, probabilities bool) {
	if m == nil {
		return
	}
	m.bundleInfo.Reset()
	p := "false"
	if probabilities {
		p = "true"
	}
	m.bundleInfo.WithLabelValues(version, p).Set(1)
}

// HistoryEvent counts one history event outcome.
func (m *Metrics) HistoryEvent(result string) {
	if m == nil {
		return
	}
	m.historyEvents.WithLabelValues(result).Inc()
}

// Tracer returns the tracer for pipeline spans. It follows whatever provider
// is installed globally and is a no-op otherwise.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentName)
}

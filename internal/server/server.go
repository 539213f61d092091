// Package server exposes the prediction pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/elavarasan2006/jobrole/internal/config"
	"github.com/elavarasan2006/jobrole/internal/logger"
	"github.com/elavarasan2006/jobrole/internal/pipeline"
	"github.com/elavarasan2006/jobrole/internal/telemetry"
)

const (
	routePredict = "/v1/predict"
	routeReload  = "/v1/reload"
	routeHealth  = "/healthz"
	routeReady   = "/readyz"
	routeMetrics = "/metrics"
)

// Server wraps the HTTP server components for jobrole.
type Server struct {
	cfg     config.ServerConfig
	svc     *pipeline.Service
	metrics *telemetry.Metrics
	log     *zap.Logger
	handler http.Handler
}

// New wires routes and middleware around svc.
func New(cfg config.ServerConfig, svc *pipeline.Service, metrics *telemetry.Metrics, log *zap.Logger) *Server {
	log = logger.OrNop(log)
	s := &Server{cfg: cfg, svc: svc, metrics: metrics, log: log}

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	mux := http.NewServeMux()
	mux.Handle("POST "+routePredict, RateLimit(limiter)(http.HandlerFunc(s.handlePredict)))
	mux.HandleFunc("GET "+routeHealth, s.handleHealth)
	mux.HandleFunc("GET "+routeReady, s.handleReady)
	if metrics != nil {
		mux.Handle("GET "+routeMetrics, metrics.Handler())
	}
	if cfg.EnableReload {
		mux.HandleFunc("POST "+routeReload, s.handleReload)
	}

	s.handler = Chain(mux,
		Recover(log),
		RequestID(),
		Logger(log, metrics),
		OTel("jobrole"),
	)
	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("jobrole server running", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail, code string) {
	writeJSON(w, status, errorBody{Detail: detail, Code: code})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), pipeline.CodeInvalidRequest)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", pipeline.CodeInvalidRequest)
		return
	}
	if body == nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object", pipeline.CodeInvalidRequest)
		return
	}

	res, err := s.svc.PredictMap(r.Context(), body, RequestIDFrom(r.Context()))
	if err != nil {
		code := pipeline.Code(err)
		status := pipeline.HTTPStatus(code)
		detail := err.Error()
		if status >= 500 && code == pipeline.CodeInternalError {
			detail = "internal server error"
		}
		writeError(w, status, detail, code)
		return
	}

	w.Header().Set("X-Prediction-Path", res.Path)
	if res.BundleVersion != "" {
		w.Header().Set("X-Bundle-Version", res.BundleVersion)
	}
	writeJSON(w, http.StatusOK, res.Prediction)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

type readyBody struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	Probabilities bool   `json:"probabilities"`
	Columns       int    `json:"columns"`
	Encoders      bool   `json:"encoders"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Ready()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error(), pipeline.Code(err))
		return
	}
	_, encErr := b.Encoders()
	writeJSON(w, http.StatusOK, readyBody{
		Status:        "ready",
		Version:       b.Version(),
		Probabilities: b.SupportsProbabilities(),
		Columns:       b.NumColumns(),
		Encoders:      encErr == nil,
	})
}

type reloadBody struct {
	Version string `json:"version,omitempty"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	version, outcome, err := s.svc.Reload()
	body := reloadBody{Version: version, Outcome: string(outcome)}
	if err != nil {
		body.Detail = strings.TrimSpace(err.Error())
		body.Code = pipeline.Code(err)
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

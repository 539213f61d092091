// Package pipeline runs one profile through assembly, fallback and ranking
// against the active bundle.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/elavarasan2006/jobrole/internal/artifact"
	"github.com/elavarasan2006/jobrole/internal/features"
	"github.com/elavarasan2006/jobrole/internal/history"
	"github.com/elavarasan2006/jobrole/internal/logger"
	"github.com/elavarasan2006/jobrole/internal/ranking"
	"github.com/elavarasan2006/jobrole/internal/telemetry"
)

// Paths a request can take.
const (
	PathPrimary  = "primary"
	PathFallback = "fallback"
	PathNone     = "none"
)

// Options configures a Service.
type Options struct {
	Delimiter         string
	TopN              int
	DefaultConfidence float64
	// DisableFallback surfaces assembly errors instead of recovering them.
	DisableFallback bool
	Keywords        []features.Keyword

	Logger  *zap.Logger
	Metrics *telemetry.Metrics
	History *history.Emitter
}

// Result is a served prediction plus how it was produced.
type Result struct {
	ranking.Prediction
	Path          string
	BundleVersion string
}

// Service is safe for concurrent use; all shared state lives in the holder.
type Service struct {
	holder    *artifact.Holder
	assembler *features.Assembler
	fallback  *features.Fallback
	predictor *ranking.Predictor
	noFall    bool

	log     *zap.Logger
	metrics *telemetry.Metrics
	history *history.Emitter
}

func New(holder *artifact.Holder, opts Options) *Service {
	log := logger.OrNop(opts.Logger)
	return &Service{
		holder:    holder,
		assembler: features.NewAssembler(opts.Delimiter),
		fallback:  features.NewFallback(opts.Keywords),
		predictor: ranking.NewPredictor(opts.TopN, opts.DefaultConfidence),
		noFall:    opts.DisableFallback,
		log:       log,
		metrics:   opts.Metrics,
		history:   opts.History,
	}
}

// Holder returns the bundle holder backing the service.
func (s *Service) Holder() *artifact.Holder { return s.holder }

// PredictMap decodes a flat key-value record and predicts on it.
func (s *Service) PredictMap(ctx context.Context, in map[string]any, requestID string) (Result, error) {
	rec, err := features.DecodeRecord(in)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		s.finish(ctx, requestID, time.Now(), Result{Path: PathNone}, err)
		return Result{Path: PathNone}, err
	}
	return s.Predict(ctx, rec, requestID)
}

// Predict assembles rec against the active bundle and ranks the result. When
// primary assembly fails the fallback vector is used instead; numeric input
// errors are never recovered.
func (s *Service) Predict(ctx context.Context, rec features.RawInputRecord, requestID string) (Result, error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.predict",
		trace.WithAttributes(attribute.String("request.id", requestID)))
	defer span.End()

	res, err := s.predict(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Code(err))
	}
	span.SetAttributes(
		attribute.String("pipeline.path", res.Path),
		attribute.String("pipeline.code", Code(err)),
		attribute.String("bundle.version", res.BundleVersion),
		attribute.Int("ranking.padded", res.Padded),
		attribute.Int("ranking.ranked", len(res.Ranked)),
	)
	span.SetAttributes(telemetry.SafeAttributes(recordAttributes(rec))...)

	s.finish(ctx, requestID, start, res, err)
	return res, err
}

// recordAttributes describes the request for tracing. Profile values are
// filtered out by telemetry.SafeAttributes before they reach a span.
func recordAttributes(rec features.RawInputRecord) map[string]interface{} {
	out := map[string]interface{}{}
	present := 0
	for _, group := range [][]string{features.CategoricalFields, features.NumericFields, features.MultiValueFields} {
		for _, field := range group {
			v, _ := rec.Value(field)
			if strings.TrimSpace(v) != "" {
				present++
			}
			out["input."+strings.ReplaceAll(strings.ToLower(field), " ", "_")] = v
		}
	}
	out["input.fields_present"] = present
	return out
}

func (s *Service) predict(ctx context.Context, rec features.RawInputRecord) (Result, error) {
	out := Result{Path: PathNone}

	t := time.Now()
	b, err := s.holder.Get()
	s.metrics.ObserveStage("bundle", time.Since(t))
	if err != nil {
		return out, err
	}
	out.BundleVersion = b.Version()

	t = time.Now()
	_, span := telemetry.Tracer().Start(ctx, "pipeline.assemble")
	path := PathPrimary
	vec := s.assembler.Assemble(rec, b)
	if !s.noFall {
		vec = vec.OrElse(features.IsAssemblyError, func(cause error) features.Result[features.Vector] {
			path = PathFallback
			s.log.Warn("primary assembly failed; using fallback",
				zap.String("path", PathFallback),
				zap.String("bundle_version", b.Version()),
				zap.Error(cause),
			)
			return s.fallback.Assemble(rec, b.ExpectedColumns())
		})
	}
	span.SetAttributes(attribute.String("pipeline.path", path))
	span.End()
	s.metrics.ObserveStage("assemble", time.Since(t))

	v, err := vec.Unwrap()
	if err != nil {
		return out, err
	}
	out.Path = path

	t = time.Now()
	_, span = telemetry.Tracer().Start(ctx, "pipeline.rank")
	pred, err := s.predictor.Rank(v, b)
	span.End()
	s.metrics.ObserveStage("rank", time.Since(t))
	if err != nil {
		return out, err
	}
	out.Prediction = pred
	return out, nil
}

func (s *Service) finish(ctx context.Context, requestID string, start time.Time, res Result, err error) {
	code := Code(err)
	latency := time.Since(start)
	s.metrics.ObservePrediction(res.Path, code, res.Padded)

	if err != nil {
		log := s.log.Warn
		if HTTPStatus(code) >= 500 {
			log = s.log.Error
		}
		log("prediction failed",
			zap.String("request_id", requestID),
			zap.String("code", code),
			zap.String("path", res.Path),
			zap.Error(err),
		)
	} else {
		s.log.Debug("prediction served",
			zap.String("request_id", requestID),
			zap.String("path", res.Path),
			zap.String("prediction", res.Prediction.Prediction),
			zap.Float64("confidence", res.Confidence),
			zap.Duration("took", latency),
		)
	}

	if s.history == nil {
		return
	}
	ev := history.NewEvent(requestID)
	ev.Path = res.Path
	ev.BundleVersion = res.BundleVersion
	ev.Prediction = res.Prediction.Prediction
	ev.Confidence = res.Confidence
	ev.Suggestions = res.Suggestions
	ev.Padded = res.Padded
	ev.Code = code
	ev.LatencyMs = float64(latency.Microseconds()) / 1000
	s.history.Emit(ctx, ev)
}

// Reload swaps in a freshly loaded bundle. On failure the active bundle, if
// any, keeps serving.
func (s *Service) Reload() (string, artifact.ReloadOutcome, error) {
	b, outcome, err := s.holder.Reload()
	version := ""
	if b != nil {
		version = b.Version()
	}
	return version, outcome, err
}

// Ready reports the active bundle, loading it if needed.
func (s *Service) Ready() (*artifact.Bundle, error) {
	return s.holder.Get()
}

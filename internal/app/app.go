// Package app assembles the prediction service from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/elavarasan2006/jobrole/internal/artifact"
	"github.com/elavarasan2006/jobrole/internal/config"
	"github.com/elavarasan2006/jobrole/internal/features"
	"github.com/elavarasan2006/jobrole/internal/history"
	"github.com/elavarasan2006/jobrole/internal/logger"
	"github.com/elavarasan2006/jobrole/internal/pipeline"
	"github.com/elavarasan2006/jobrole/internal/telemetry"
)

// App owns every long-lived component built from a Config.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *telemetry.Metrics
	Holder  *artifact.Holder
	Service *pipeline.Service
	History *history.Emitter
}

// BundleOptions maps configuration onto bundle loading options.
func BundleOptions(cfg *config.Config) artifact.Options {
	defaults := map[string]string{}
	if cfg.Prediction.DefaultSkill != "" {
		defaults[features.FieldSkills] = cfg.Prediction.DefaultSkill
	}
	if cfg.Prediction.DefaultCertification != "" {
		defaults[features.FieldCertification] = cfg.Prediction.DefaultCertification
	}
	return artifact.Options{
		DefaultLabels: defaults,
		ORTLibrary:    cfg.Artifacts.ORTLibrary,
		Verify:        cfg.Artifacts.Verify,
	}
}

// Keywords parses the configured fallback keywords. Empty means the built-in
// list.
func Keywords(cfg *config.Config) ([]features.Keyword, error) {
	out := make([]features.Keyword, 0, len(cfg.Fallback.Keywords))
	for _, raw := range cfg.Fallback.Keywords {
		kw, err := features.ParseKeyword(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, nil
}

// New builds the app. Nothing is loaded yet; call Start.
func New(cfg *config.Config, log *zap.Logger, withHistory bool) (*App, error) {
	log = logger.OrNop(log)
	keywords, err := Keywords(cfg)
	if err != nil {
		return nil, err
	}

	metrics := telemetry.NewMetrics()

	var emitter *history.Emitter
	if withHistory && len(cfg.History.Sinks) > 0 {
		sinkCfgs := make([]history.SinkConfig, 0, len(cfg.History.Sinks))
		for _, s := range cfg.History.Sinks {
			sinkCfgs = append(sinkCfgs, history.SinkConfig{
				Type:    s.Type,
				Path:    s.Path,
				URL:     s.URL,
				Subject: s.Subject,
				Headers: s.Headers,
				Timeout: s.Timeout,
			})
		}
		sinks, err := history.BuildSinks(sinkCfgs)
		if err != nil {
			return nil, err
		}
		emitter = history.NewEmitter(history.EmitterConfig{
			QueueSize:       cfg.History.QueueSize,
			Workers:         cfg.History.Workers,
			ShutdownTimeout: cfg.History.ShutdownTimeout,
			Logger:          log.Named("history"),
			Observer:        metrics,
		}, sinks)
	}

	opts := BundleOptions(cfg)
	dir := cfg.Artifacts.Dir
	holder := artifact.NewHolder(func() (*artifact.Bundle, error) {
		return artifact.Open(dir, opts)
	}, artifact.HolderOptions{
		RetireGrace: cfg.Artifacts.RetireGrace,
		Logger:      log.Named("artifact"),
		OnLoad: func(b *artifact.Bundle) {
			metrics.SetBundle(b.Version(), b.SupportsProbabilities())
		},
		OnReload: func(outcome artifact.ReloadOutcome, b *artifact.Bundle, _ error) {
			metrics.ObserveReload(string(outcome))
			if b != nil {
				metrics.SetBundle(b.Version(), b.SupportsProbabilities())
			}
		},
	})

	svc := pipeline.New(holder, pipeline.Options{
		Delimiter:         cfg.Prediction.Delimiter,
		TopN:              cfg.Prediction.TopN,
		DefaultConfidence: cfg.Prediction.DefaultConfidence,
		DisableFallback:   !cfg.Fallback.IsEnabled(),
		Keywords:          keywords,
		Logger:            log.Named("pipeline"),
		Metrics:           metrics,
		History:           emitter,
	})

	return &App{
		Config:  cfg,
		Log:     log,
		Metrics: metrics,
		Holder:  holder,
		Service: svc,
		History: emitter,
	}, nil
}

// Start loads the bundle unless loading is lazy, and starts the artifact
// watcher when enabled. The watcher stops with ctx.
func (a *App) Start(ctx context.Context) error {
	if !a.Config.Artifacts.Lazy {
		if _, err := a.Holder.Get(); err != nil {
			return fmt.Errorf("load bundle: %w", err)
		}
	}

	if a.Config.Artifacts.Watch {
		w, err := artifact.NewWatcher(a.Config.Artifacts.Dir, a.Holder, a.Config.Artifacts.Debounce, a.Log.Named("watcher"))
		if err != nil {
			return fmt.Errorf("watch artifacts: %w", err)
		}
		go w.Run(ctx)
	}
	return nil
}

// Close drains history and releases the bundle.
func (a *App) Close(ctx context.Context) {
	a.History.Close(ctx)
	if err := a.Holder.Close(); err != nil {
		a.Log.Warn("close bundle", zap.Error(err))
	}
}

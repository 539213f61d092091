package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	jobapp "github.com/elavarasan2006/jobrole/internal/app"
	"github.com/elavarasan2006/jobrole/internal/server"
	"github.com/elavarasan2006/jobrole/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().Bool("watch", false, "reload the bundle when its files change")
	serveCmd.Flags().Bool("lazy", false, "load the bundle on first request")
	serveCmd.Flags().Bool("enable-reload", false, "expose POST /v1/reload")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("artifacts.watch", serveCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("artifacts.lazy", serveCmd.Flags().Lookup("lazy"))
	_ = viper.BindPFlag("server.enable_reload", serveCmd.Flags().Lookup("enable-reload"))
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting jobrole",
		zap.String("version", version),
		zap.String("artifacts", cfg.Artifacts.Dir),
		zap.Bool("lazy", cfg.Artifacts.Lazy),
		zap.Bool("watch", cfg.Artifacts.Watch),
	)

	tp, err := telemetry.NewProvider(ctx, telemetry.ProviderConfig{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.ServiceName,
		Version:  version,
		Logger:   log,
	})
	if err != nil {
		log.Error("starting telemetry", zap.Error(err))
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			log.Warn("flushing traces", zap.Error(err))
		}
	}()

	a, err := jobapp.New(cfg, log, true)
	if err != nil {
		log.Error("building service", zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.History.ShutdownTimeout)
		defer cancel()
		a.Close(closeCtx)
	}()

	if err := a.Start(ctx); err != nil {
		log.Error("starting service", zap.Error(err))
		return err
	}

	srv := server.New(cfg.Server, a.Service, a.Metrics, log.Named("http"))
	return srv.Run(ctx)
}

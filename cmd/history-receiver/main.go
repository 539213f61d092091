package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elavarasan2006/jobrole/internal/history"
	"github.com/elavarasan2006/jobrole/internal/logger"
)

var (
	addr    string
	jsonLog bool
)

var receiverCmd = &cobra.Command{
	Use:          "history-receiver",
	Short:        "Log prediction history events POSTed by the webhook sink",
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		log, err := logger.New(jsonLog, true)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		mux := http.NewServeMux()
		mux.Handle("POST /history", handleEvent(log))
		mux.Handle("POST /", handleEvent(log))

		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		log.Info("history receiver listening", zap.String("addr", addr), zap.String("path", "/history"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func main() {
	receiverCmd.Flags().StringVar(&addr, "addr", ":8099", "listen address for history receiver")
	receiverCmd.Flags().BoolVarP(&jsonLog, "json", "j", false, "json format for logging")

	if err := receiverCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func handleEvent(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		_ = r.Body.Close()
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		var ev history.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			log.Warn("received malformed history event",
				zap.String("path", r.URL.Path),
				zap.String("body", logger.Truncate(string(body), 256)),
				zap.Error(err),
			)
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		log.Info("received history event",
			zap.String("id", ev.ID),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.String("path", ev.Path),
			zap.String("code", ev.Code),
			zap.String("prediction", ev.Prediction),
			zap.Float64("confidence", ev.Confidence),
			zap.Strings("suggestions", ev.Suggestions),
			zap.String("bundle_version", ev.BundleVersion),
			zap.Float64("latency_ms", ev.LatencyMs),
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintln(w, `{"status":"ok"}`)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	jobapp "github.com/elavarasan2006/jobrole/internal/app"
	"github.com/elavarasan2006/jobrole/internal/config"
	"github.com/elavarasan2006/jobrole/internal/features"
	"github.com/elavarasan2006/jobrole/internal/logger"
)

var (
	cfgPath    string
	iterations int
)

var benchCmd = &cobra.Command{
	Use:          "jobrole-bench",
	Short:        "Measure end-to-end prediction latency against a bundle",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return bench(cmd)
	},
}

func main() {
	benchCmd.Flags().StringVar(&cfgPath, "config", "jobrole.yaml", "path to config yaml")
	benchCmd.Flags().IntVarP(&iterations, "iterations", "n", 200, "number of iterations")

	if err := benchCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sampleProfile() features.RawInputRecord {
	return features.RawInputRecord{
		Degree:            "B.Tech",
		Major:             "CS",
		Specialization:    "Full Stack",
		CGPA:              "8.1",
		YearsExperience:   "2",
		PreferredIndustry: "Product",
		Skills:            "JavaScript, Node.js, React, SQL",
		Certification:     "AWS Cloud Practitioner",
	}
}

func bench(cmd *cobra.Command) error {
	log, err := logger.New(false, false)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Artifacts.Lazy = false
	cfg.Artifacts.Watch = false
	if err := config.Validate(cfg); err != nil {
		return err
	}

	a, err := jobapp.New(cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		return err
	}

	rec := sampleProfile()

	// Warmup
	for i := 0; i < 5; i++ {
		if _, err := a.Service.Predict(ctx, rec, ""); err != nil {
			log.Error("warmup predict failed", zap.Error(err))
			return err
		}
	}

	if iterations <= 0 {
		iterations = 1
	}

	paths := map[string]int{}
	durations := make([]time.Duration, 0, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		res, err := a.Service.Predict(ctx, rec, "")
		if err != nil {
			log.Error("predict failed", zap.Error(err))
			return err
		}
		durations = append(durations, time.Since(start))
		paths[res.Path]++
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	avg := float64(total.Microseconds()) / 1000.0 / float64(len(durations))
	p50 := float64(durations[len(durations)/2].Microseconds()) / 1000.0
	p95 := float64(durations[int(float64(len(durations))*0.95)].Microseconds()) / 1000.0

	b := a.Holder.Current()
	fmt.Fprintf(cmd.OutOrStdout(), "bench: n=%d avg_ms=%.3f p50_ms=%.3f p95_ms=%.3f paths=%v bundle_dir=%s version=%q probabilities=%t\n",
		len(durations),
		avg,
		p50,
		p95,
		paths,
		b.Dir(),
		b.Version(),
		b.SupportsProbabilities(),
	)
	return nil
}

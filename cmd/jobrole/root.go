package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/elavarasan2006/jobrole/internal/config"
	"github.com/elavarasan2006/jobrole/internal/logger"
)

const (
	app       = "jobrole"
	envPrefix = "JOBROLE"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "jobrole predicts job roles from candidate profiles",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobrole.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("artifacts", "", "artifact bundle directory (overrides config)")

	_ = viper.BindPFlag("logging.debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("logging.json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("artifacts.dir", rootCmd.PersistentFlags().Lookup("artifacts"))
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// overrides are the keys flags and JOBROLE_* variables may set on top of the
// config file.
var overrides = []struct {
	key   string
	apply func(*config.Config)
}{
	{"server.addr", func(c *config.Config) { c.Server.Addr = viper.GetString("server.addr") }},
	{"server.enable_reload", func(c *config.Config) { c.Server.EnableReload = viper.GetBool("server.enable_reload") }},
	{"artifacts.dir", func(c *config.Config) { c.Artifacts.Dir = viper.GetString("artifacts.dir") }},
	{"artifacts.lazy", func(c *config.Config) { c.Artifacts.Lazy = viper.GetBool("artifacts.lazy") }},
	{"artifacts.watch", func(c *config.Config) { c.Artifacts.Watch = viper.GetBool("artifacts.watch") }},
	{"artifacts.verify", func(c *config.Config) { c.Artifacts.Verify = viper.GetBool("artifacts.verify") }},
	{"artifacts.ort_library", func(c *config.Config) { c.Artifacts.ORTLibrary = viper.GetString("artifacts.ort_library") }},
	{"prediction.top_n", func(c *config.Config) { c.Prediction.TopN = viper.GetInt("prediction.top_n") }},
	{"logging.json", func(c *config.Config) { c.Logging.JSON = viper.GetBool("logging.json") }},
	{"logging.debug", func(c *config.Config) { c.Logging.Debug = viper.GetBool("logging.debug") }},
}

// loadConfig reads the config file and overlays flags and environment.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = app + ".yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	for _, o := range overrides {
		if viper.IsSet(o.key) {
			o.apply(cfg)
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup loads the config and builds the process logger from it.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logging.JSON, cfg.Logging.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, log, nil
}

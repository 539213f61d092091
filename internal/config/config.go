package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds jobrole configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Prediction PredictionConfig `yaml:"prediction"`
	Fallback   FallbackConfig   `yaml:"fallback"`
	Logging    LoggingConfig    `yaml:"logging"`
	History    HistoryConfig    `yaml:"history"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr            string          `yaml:"addr"`           // HTTP listen address, e.g. ":8080"
	MaxBodyBytes    int64           `yaml:"max_body_bytes"` // request body cap for /v1/predict
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	EnableReload    bool            `yaml:"enable_reload"` // expose POST /v1/reload
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"` // 0 disables limiting
	Burst int     `yaml:"burst"`
}

type ArtifactsConfig struct {
	Dir         string        `yaml:"dir"`         // bundle dir, or base dir holding state.json
	Lazy        bool          `yaml:"lazy"`        // load on first request instead of at startup
	Watch       bool          `yaml:"watch"`       // reload when files under dir change
	Verify      bool          `yaml:"verify"`      // check manifest.json before loading
	Debounce    time.Duration `yaml:"debounce"`    // watch event coalescing window
	RetireGrace time.Duration `yaml:"retire_grace"` // keep a replaced bundle open this long
	ORTLibrary  string        `yaml:"ort_library"` // onnxruntime shared library path
}

type PredictionConfig struct {
	TopN                 int     `yaml:"top_n"`
	DefaultConfidence    float64 `yaml:"default_confidence"` // reported for label-only classifiers
	Delimiter            string  `yaml:"delimiter"`          // multi-valued field separator
	DefaultSkill         string  `yaml:"default_skill"`
	DefaultCertification string  `yaml:"default_certification"`
}

type FallbackConfig struct {
	Enabled  *bool    `yaml:"enabled"`
	Keywords []string `yaml:"keywords"` // "Term" or "Term=column"
}

// IsEnabled reports whether the fallback path is on; it is on unless
// explicitly disabled.
func (f FallbackConfig) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

type LoggingConfig struct {
	JSON  bool `yaml:"json"`
	Debug bool `yaml:"debug"`
}

type HistoryConfig struct {
	QueueSize       int                 `yaml:"queue_size"`
	Workers         int                 `yaml:"workers"`
	ShutdownTimeout time.Duration       `yaml:"shutdown_timeout"`
	Sinks           []HistorySinkConfig `yaml:"sinks"`
}

type HistorySinkConfig struct {
	Type                 string            `yaml:"type"` // file_jsonl | webhook | nats
	Path                 string            `yaml:"path"`
	URL                  string            `yaml:"url"`
	Subject              string            `yaml:"subject"`
	Headers              map[string]string `yaml:"headers"`
	Timeout              time.Duration     `yaml:"timeout"`
	AllowPrivateNetworks bool              `yaml:"allow_private_networks"`
}

// TelemetryConfig controls OTLP trace export. Spans are always created;
// without an exporter they are dropped.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"` // host:port of the collector
	Protocol    string `yaml:"protocol"` // grpc | http
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 64 << 10
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimit.RPS > 0 && cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = int(cfg.Server.RateLimit.RPS) + 1
	}

	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "./ml"
	}
	if cfg.Artifacts.Debounce == 0 {
		cfg.Artifacts.Debounce = 500 * time.Millisecond
	}
	if cfg.Artifacts.RetireGrace == 0 {
		cfg.Artifacts.RetireGrace = 30 * time.Second
	}

	if cfg.Prediction.TopN == 0 {
		cfg.Prediction.TopN = 3
	}
	if cfg.Prediction.DefaultConfidence == 0 {
		cfg.Prediction.DefaultConfidence = 85.0
	}
	if cfg.Prediction.Delimiter == "" {
		cfg.Prediction.Delimiter = ","
	}

	if cfg.History.QueueSize == 0 {
		cfg.History.QueueSize = 1000
	}
	if cfg.History.Workers == 0 {
		cfg.History.Workers = 1
	}
	if cfg.History.ShutdownTimeout == 0 {
		cfg.History.ShutdownTimeout = 2 * time.Second
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "jobrole"
	}
}

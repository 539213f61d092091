package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/elavarasan2006/jobrole/internal/features"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return errors.New("server.max_body_bytes must not be negative")
	}
	if cfg.Server.RateLimit.RPS < 0 {
		return errors.New("server.rate_limit.rps must not be negative")
	}
	if cfg.Server.RateLimit.RPS > 0 && cfg.Server.RateLimit.Burst < 1 {
		return errors.New("server.rate_limit.burst must be at least 1 when rps is set")
	}

	if strings.TrimSpace(cfg.Artifacts.Dir) == "" {
		return errors.New("artifacts.dir must be set")
	}
	if cfg.Artifacts.Debounce < 0 || cfg.Artifacts.RetireGrace < 0 {
		return errors.New("artifacts durations must not be negative")
	}

	if err := validatePredictionConfig(cfg.Prediction); err != nil {
		return err
	}

	for _, kw := range cfg.Fallback.Keywords {
		if _, err := features.ParseKeyword(kw); err != nil {
			return fmt.Errorf("fallback.keywords: %w", err)
		}
	}

	if err := validateHistoryConfig(cfg.History); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled {
		switch strings.ToLower(strings.TrimSpace(cfg.Telemetry.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", cfg.Telemetry.Protocol)
		}
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			return errors.New("telemetry.endpoint must be set when telemetry is enabled")
		}
	}

	return nil
}

func validatePredictionConfig(p PredictionConfig) error {
	if p.TopN < 1 || p.TopN > 50 {
		return fmt.Errorf("prediction.top_n must be between 1 and 50, got %d", p.TopN)
	}
	if p.DefaultConfidence <= 0 || p.DefaultConfidence > 100 {
		return fmt.Errorf("prediction.default_confidence must be in (0, 100], got %v", p.DefaultConfidence)
	}
	if strings.TrimSpace(p.Delimiter) == "" {
		return errors.New("prediction.delimiter must not be blank")
	}
	return nil
}

func validateHistoryConfig(h HistoryConfig) error {
	if h.QueueSize < 0 || h.Workers < 0 {
		return errors.New("history.queue_size and history.workers must not be negative")
	}
	for i, s := range h.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "file_jsonl":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("history sink %d (file_jsonl) missing path", i)
			}
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("history sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("history sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("history sink %d (webhook) url must be http or https", i)
			}
			if err := blockPrivateHost(u.Host, s.AllowPrivateNetworks); err != nil {
				return fmt.Errorf("history sink %d (webhook) url blocked: %w", i, err)
			}
		case "nats":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("history sink %d (nats) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Host == "" {
				return fmt.Errorf("history sink %d (nats) has invalid url", i)
			}
			switch u.Scheme {
			case "nats", "tls", "ws", "wss":
			default:
				return fmt.Errorf("history sink %d (nats) url must be nats, tls, ws or wss", i)
			}
		default:
			return fmt.Errorf("history sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func blockPrivateHost(hostport string, allowPrivate bool) error {
	if allowPrivate {
		return nil
	}
	host := hostport
	if strings.Contains(hostport, "]") || strings.Contains(hostport, ":") {
		h, _, err := net.SplitHostPort(hostport)
		if err == nil {
			host = h
		}
	}
	lc := strings.ToLower(strings.TrimSpace(host))
	if lc == "localhost" {
		return errors.New("private network host localhost blocked for SSRF safety")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("private network IP %s blocked for SSRF safety", ip.String())
		}
		return nil
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	privateBlocks := []*net.IPNet{
		{IP: net.ParseIP("127.0.0.0"), Mask: net.CIDRMask(8, 32)},
		{IP: net.ParseIP("10.0.0.0"), Mask: net.CIDRMask(8, 32)},
		{IP: net.ParseIP("172.16.0.0"), Mask: net.CIDRMask(12, 32)},
		{IP: net.ParseIP("192.168.0.0"), Mask: net.CIDRMask(16, 32)},
		{IP: net.ParseIP("169.254.0.0"), Mask: net.CIDRMask(16, 32)},
		{IP: net.ParseIP("::1"), Mask: net.CIDRMask(128, 128)},
		{IP: net.ParseIP("fc00::"), Mask: net.CIDRMask(7, 128)},
		{IP: net.ParseIP("fe80::"), Mask: net.CIDRMask(10, 128)},
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

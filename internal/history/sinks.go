package history

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sink types accepted in configuration.
const (
	SinkFileJSONL = "file_jsonl"
	SinkWebhook   = "webhook"
	SinkNATS      = "nats"
)

// SinkConfig describes one configured sink.
type SinkConfig struct {
	Type    string
	Path    string
	URL     string
	Subject string
	Headers map[string]string
	Timeout time.Duration
}

// BuildSinks opens every configured sink. On error the sinks opened so far
// are closed.
func BuildSinks(cfgs []SinkConfig) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := buildSink(c)
		if err != nil {
			for _, opened := range sinks {
				_ = opened.Close(context.Background())
			}
			return nil, fmt.Errorf("history sink %d (%s): %w", i, c.Type, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func buildSink(c SinkConfig) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case SinkFileJSONL:
		return NewFileSink(c.Path)
	case SinkWebhook:
		return NewWebhookSink(c.URL, c.Headers, c.Timeout)
	case SinkNATS:
		return NewNATSSink(c.URL, c.Subject, c.Timeout)
	}
	return nil, fmt.Errorf("unknown sink type %q", c.Type)
}

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultSubject is used when a NATS sink is configured without one.
const DefaultSubject = "jobrole.history.prediction"

// msgPublisher is the part of *nats.Conn the sink needs.
type msgPublisher interface {
	PublishMsg(*nats.Msg) error
	FlushTimeout(time.Duration) error
	Close()
}

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSSink publishes history events as JSON on a NATS subject. Trace context
// from the delivery context travels in the message headers.
type NATSSink struct {
	url     string
	subject string
	conn    msgPublisher
	// nil uses the global propagator.
	propagator propagation.TextMapPropagator
}

// NewNATSSink connects to url and publishes on subject.
func NewNATSSink(url, subject string, timeout time.Duration) (*NATSSink, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("nats url is empty")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	nc, err := nats.Connect(url,
		nats.Name("jobrole-history"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return newNATSSink(url, subject, nc), nil
}

func newNATSSink(url, subject string, conn msgPublisher) *NATSSink {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	return &NATSSink{url: url, subject: subject, conn: conn}
}

func (s *NATSSink) Name() string { return "nats:" + s.subject }

func (s *NATSSink) Deliver(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &nats.Msg{
		Subject: s.subject,
		Data:    data,
	}
	prop := s.propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	prop.Inject(ctx, (*natsHeaderCarrier)(msg))
	if ev.RequestID != "" {
		(*natsHeaderCarrier)(msg).Set("X-Request-ID", ev.RequestID)
	}
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (s *NATSSink) Close(ctx context.Context) error {
	timeout := time.Second
	if ctx == nil {
		ctx = context.Background()
	}
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	var err error
	if timeout > 0 {
		err = s.conn.FlushTimeout(timeout)
	}
	s.conn.Close()
	return err
}

// Package history delivers prediction outcomes to external history stores
// without blocking the request path.
package history

import (
	"time"

	"github.com/google/uuid"
)

// Event records one served prediction. Raw profile input is never included.
type Event struct {
	ID            string    `json:"id"`
	RequestID     string    `json:"request_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Path          string    `json:"path"`
	BundleVersion string    `json:"bundle_version,omitempty"`
	Prediction    string    `json:"prediction,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
	Suggestions   []string  `json:"suggestions,omitempty"`
	Padded        int       `json:"padded,omitempty"`
	Code          string    `json:"code"`
	LatencyMs     float64   `json:"latency_ms"`
}

// NewEvent stamps a fresh event with an id and the current time.
func NewEvent(requestID string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
}

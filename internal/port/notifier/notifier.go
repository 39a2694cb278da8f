// Package notifier defines the port through which review decisions are
// reported to external systems.
package notifier

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// DecisionEvent describes one decision made by the reviewer.
type DecisionEvent struct {
	RequestID string    `json:"request_id"`
	ConnID    string    `json:"conn_id"`
	Status    string    `json:"status"` // "accepted" or "rejected"
	Metadata  *string   `json:"metadata,omitempty"`
	Files     []string  `json:"files"`
	Added     int       `json:"added"`
	Removed   int       `json:"removed"`
	DecidedAt time.Time `json:"decided_at"`
}

// Notifier is the port interface for publishing decisions.
// Implementations must be safe for concurrent use.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "nats").
	Name() string

	// Notify delivers a decision event.
	Notify(ctx context.Context, event DecisionEvent) error

	// Close releases the notifier's resources.
	Close() error
}

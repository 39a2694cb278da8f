// Package nats publishes review decisions to NATS as an audit trail.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Strob0t/patchpal/internal/port/notifier"
)

const (
	providerName   = "nats"
	defaultSubject = "patchpal.decisions"
)

// Publisher implements notifier.Notifier with core NATS publish.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// Connect establishes a connection to NATS. Decisions go to subject.
func Connect(url, subject string) (*Publisher, error) {
	if url == "" {
		return nil, notifier.ErrNotConfigured
	}
	if subject == "" {
		subject = defaultSubject
	}

	nc, err := nats.Connect(url,
		nats.Name("patchpal"),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	slog.Info("nats connected", "url", url, "subject", subject)
	return &Publisher{nc: nc, subject: subject}, nil
}

func (p *Publisher) Name() string { return providerName }

// Notify publishes the event as JSON.
func (p *Publisher) Notify(_ context.Context, event notifier.DecisionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending publishes and closes the connection.
func (p *Publisher) Close() error {
	if err := p.nc.FlushTimeout(2 * time.Second); err != nil {
		slog.Warn("nats flush", "error", err)
	}
	p.nc.Close()
	return nil
}

func init() {
	notifier.Register(providerName, func(cfg map[string]string) (notifier.Notifier, error) {
		return Connect(cfg["url"], cfg["subject"])
	})
}

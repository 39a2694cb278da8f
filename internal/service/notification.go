// Package service contains the broker's application services: the review
// loop that owns the reviewer's decisions and the submitter client.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Strob0t/patchpal/internal/port/notifier"
	"github.com/Strob0t/patchpal/internal/resilience"
)

// A notifier that fails this many times in a row is skipped for
// notifierCooldown.
const (
	notifierFailureThreshold = 3
	notifierCooldown         = 30 * time.Second
)

type guardedNotifier struct {
	notifier.Notifier
	breaker *resilience.Breaker
}

// NotificationService dispatches decision events to all registered notifiers.
type NotificationService struct {
	notifiers []guardedNotifier
}

// NewNotificationService creates a NotificationService with the given notifiers.
// Nil entries are skipped.
func NewNotificationService(notifiers ...notifier.Notifier) *NotificationService {
	kept := make([]guardedNotifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, guardedNotifier{
				Notifier: n,
				breaker:  resilience.NewBreaker(notifierFailureThreshold, notifierCooldown),
			})
		}
	}
	return &NotificationService{notifiers: kept}
}

// Notify sends an event to all registered notifiers.
// Errors are logged but do not interrupt delivery to other notifiers.
func (s *NotificationService) Notify(ctx context.Context, e notifier.DecisionEvent) {
	if s == nil {
		return
	}
	for _, provider := range s.notifiers {
		err := provider.breaker.Do(func() error { return provider.Notify(ctx, e) })
		if errors.Is(err, resilience.ErrOpen) {
			slog.Debug("decision notification skipped", "provider", provider.Name(), "request_id", e.RequestID)
			continue
		}
		if err != nil {
			slog.Warn("decision notification failed",
				"provider", provider.Name(),
				"request_id", e.RequestID,
				"error", err,
			)
			continue
		}
		slog.Debug("decision notification sent", "provider", provider.Name(), "request_id", e.RequestID)
	}
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	if s == nil {
		return 0
	}
	return len(s.notifiers)
}

// Close closes every notifier.
func (s *NotificationService) Close() {
	if s == nil {
		return
	}
	for _, provider := range s.notifiers {
		if err := provider.Close(); err != nil {
			slog.Warn("notifier close failed", "provider", provider.Name(), "error", err)
		}
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Strob0t/patchpal/internal/port/notifier"
)

// mockNotifier implements notifier.Notifier for testing.
type mockNotifier struct {
	name    string
	sendErr error

	mu       sync.Mutex
	sent     []notifier.DecisionEvent
	attempts int
	closed   bool
}

func (m *mockNotifier) Name() string { return m.name }
func (m *mockNotifier) Notify(_ context.Context, e notifier.DecisionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, e)
	return nil
}
func (m *mockNotifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockNotifier) events() []notifier.DecisionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notifier.DecisionEvent(nil), m.sent...)
}

func TestNotificationService_Notify(t *testing.T) {
	m1 := &mockNotifier{name: "mock1"}
	m2 := &mockNotifier{name: "mock2"}
	svc := NewNotificationService(m1, nil, m2)

	if svc.NotifierCount() != 2 {
		t.Fatalf("expected 2 notifiers, got %d", svc.NotifierCount())
	}

	svc.Notify(context.Background(), notifier.DecisionEvent{RequestID: "r1", Status: "accepted"})

	if len(m1.events()) != 1 || len(m2.events()) != 1 {
		t.Fatalf("expected one event per notifier, got %d and %d", len(m1.events()), len(m2.events()))
	}
}

func TestNotificationService_ErrorDoesNotStopOthers(t *testing.T) {
	failing := &mockNotifier{name: "failing", sendErr: errors.New("down")}
	ok := &mockNotifier{name: "ok"}
	svc := NewNotificationService(failing, ok)

	svc.Notify(context.Background(), notifier.DecisionEvent{RequestID: "r1"})

	if len(ok.events()) != 1 {
		t.Fatalf("expected delivery to continue after a failure, got %d", len(ok.events()))
	}
}

func TestNotificationService_NilIsNoop(t *testing.T) {
	var svc *NotificationService
	svc.Notify(context.Background(), notifier.DecisionEvent{})
	svc.Close()
	if svc.NotifierCount() != 0 {
		t.Fatal("expected 0 notifiers")
	}
}

func TestNotificationService_Close(t *testing.T) {
	m := &mockNotifier{name: "mock"}
	NewNotificationService(m).Close()
	if !m.closed {
		t.Fatal("expected notifier to be closed")
	}
}

func TestNotificationService_SkipsFailingNotifier(t *testing.T) {
	failing := &mockNotifier{name: "failing", sendErr: errors.New("down")}
	ok := &mockNotifier{name: "ok"}
	svc := NewNotificationService(failing, ok)

	for range notifierFailureThreshold + 2 {
		svc.Notify(context.Background(), notifier.DecisionEvent{RequestID: "r"})
	}

	failing.mu.Lock()
	attempts := failing.attempts
	failing.mu.Unlock()
	if attempts != notifierFailureThreshold {
		t.Fatalf("expected %d attempts before the breaker opened, got %d", notifierFailureThreshold, attempts)
	}
	if got := len(ok.events()); got != notifierFailureThreshold+2 {
		t.Fatalf("healthy notifier must receive every event, got %d", got)
	}
}

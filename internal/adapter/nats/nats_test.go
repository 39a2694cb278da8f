package nats

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Strob0t/patchpal/internal/port/notifier"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T, subject string) *Publisher {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	p, err := Connect(url, subject)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := p.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return p
}

func TestConnectWithoutURL(t *testing.T) {
	if _, err := Connect("", ""); !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestRegistered(t *testing.T) {
	if _, err := notifier.New(providerName, nil); !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected registered nats notifier to require a url, got %v", err)
	}
}

func TestPublisher_Notify(t *testing.T) {
	subject := "patchpal.test." + t.Name()
	p := testConnect(t, subject)

	sub, err := p.nc.SubscribeSync(subject)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	meta := "build-42"
	event := notifier.DecisionEvent{
		RequestID: "r1",
		Status:    "accepted",
		Metadata:  &meta,
		Files:     []string{"a.txt"},
		Added:     3,
		Removed:   1,
		DecidedAt: time.Now().UTC(),
	}
	if err := p.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}
	var got notifier.DecisionEvent
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.RequestID != "r1" || got.Status != "accepted" || got.Added != 3 || got.Removed != 1 {
		t.Errorf("unexpected event %+v", got)
	}
	if got.Metadata == nil || *got.Metadata != "build-42" {
		t.Errorf("expected metadata build-42, got %v", got.Metadata)
	}
}

func TestPublisher_DefaultSubject(t *testing.T) {
	p := testConnect(t, "")
	if p.subject != defaultSubject {
		t.Fatalf("expected %s, got %s", defaultSubject, p.subject)
	}
	if !p.nc.IsConnected() {
		t.Fatal("expected live connection")
	}
}

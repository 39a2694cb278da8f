package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/patchpal/internal/domain"
	"github.com/Strob0t/patchpal/internal/domain/review"
)

func TestRespondSingleUse(t *testing.T) {
	r := NewRequest(context.Background(), "c1", nil, nil)

	if err := r.Respond(review.StatusAccepted); err != nil {
		t.Fatalf("first Respond: %v", err)
	}
	if err := r.Respond(review.StatusRejected); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("second Respond: expected ErrAlreadyAnswered, got %v", err)
	}
	if got := <-r.Response(); got != review.StatusAccepted {
		t.Fatalf("expected accepted, got %s", got)
	}
}

func TestRespondUnknownIsProtocolViolation(t *testing.T) {
	r := NewRequest(context.Background(), "c1", nil, nil)

	if err := r.Respond(review.StatusUnknown); !errors.Is(err, domain.ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
	// The slot is still usable for a valid decision.
	if err := r.Respond(review.StatusRejected); err != nil {
		t.Fatalf("Respond after violation: %v", err)
	}
}

func TestRespondAfterAbandonIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRequest(ctx, "c1", nil, nil)
	cancel()

	if !r.Abandoned() {
		t.Fatal("expected request to be abandoned")
	}
	// Nobody will ever read the slot; the send must neither block nor fail.
	if err := r.Respond(review.StatusAccepted); err != nil {
		t.Fatalf("Respond on abandoned request: %v", err)
	}
}

func TestRequestIDsUnique(t *testing.T) {
	a := NewRequest(context.Background(), "c1", nil, nil)
	b := NewRequest(context.Background(), "c1", nil, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
}

func TestMetadataOr(t *testing.T) {
	meta := "build-42"
	r := NewRequest(context.Background(), "c1", nil, &meta)
	if got := r.MetadataOr("-"); got != "build-42" {
		t.Errorf("expected build-42, got %q", got)
	}
	r = NewRequest(context.Background(), "c1", nil, nil)
	if got := r.MetadataOr("-"); got != "-" {
		t.Errorf("expected fallback, got %q", got)
	}
}

// Package broker holds review requests and the single-consumer queue that
// orders them for the reviewer.
package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/patchpal/internal/domain/patch"
	"github.com/Strob0t/patchpal/internal/domain/review"
)

// ErrAlreadyAnswered is returned when a request is answered a second time.
var ErrAlreadyAnswered = errors.New("broker: request already answered")

// Request is one submission waiting for a decision. Its response slot is
// owned by the connection that created it and is written at most once.
type Request struct {
	ID       string
	ConnID   string
	Patch    *patch.Set
	Metadata *string
	Received time.Time

	once     sync.Once
	response chan review.Status
	ctx      context.Context

	// Set by the queue that holds the request.
	released sync.Once
	unwatch  func() bool
}

// NewRequest creates a request bound to ctx: once ctx is done the request
// counts as abandoned.
func NewRequest(ctx context.Context, connID string, set *patch.Set, metadata *string) *Request {
	return &Request{
		ID:       uuid.NewString(),
		ConnID:   connID,
		Patch:    set,
		Metadata: metadata,
		Received: time.Now(),
		response: make(chan review.Status, 1),
		ctx:      ctx,
	}
}

// Respond delivers the decision. It never blocks: when the owning connection
// is already gone the value lands in the unread slot and is dropped with the
// request. Anything other than Accepted/Rejected is a protocol violation.
func (r *Request) Respond(s review.Status) error {
	if err := review.Enforce(s); err != nil {
		return err
	}
	sent := false
	r.once.Do(func() {
		r.response <- s
		sent = true
	})
	if !sent {
		return ErrAlreadyAnswered
	}
	return nil
}

// Response is the receive side of the response slot.
func (r *Request) Response() <-chan review.Status {
	return r.response
}

// Abandoned reports whether the submitting connection stopped waiting.
func (r *Request) Abandoned() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

// MetadataOr returns the metadata or fallback when none was sent.
func (r *Request) MetadataOr(fallback string) string {
	if r.Metadata == nil {
		return fallback
	}
	return *r.Metadata
}

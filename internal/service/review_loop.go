package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Strob0t/patchpal/internal/adapter/otel"
	"github.com/Strob0t/patchpal/internal/broker"
	"github.com/Strob0t/patchpal/internal/domain/patch"
	"github.com/Strob0t/patchpal/internal/domain/review"
	"github.com/Strob0t/patchpal/internal/port/notifier"
)

// Key is a reviewer command delivered to the review loop.
type Key int

const (
	KeyQuit Key = iota + 1
	KeyAccept
	KeyReject
	KeyAcceptAll
	KeyRejectAll
	KeyScrollUp
	KeyScrollDown
	KeyPageUp
	KeyPageDown
	KeyHome
)

var keyNames = map[Key]string{
	KeyQuit:       "quit",
	KeyAccept:     "accept",
	KeyReject:     "reject",
	KeyAcceptAll:  "accept-all",
	KeyRejectAll:  "reject-all",
	KeyScrollUp:   "scroll-up",
	KeyScrollDown: "scroll-down",
	KeyPageUp:     "page-up",
	KeyPageDown:   "page-down",
	KeyHome:       "home",
}

func (k Key) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return "unknown"
}

const (
	defaultTickInterval = 100 * time.Millisecond
	defaultPageSize     = 20
	keyBuffer           = 16
)

// Snapshot is the read-only view of the loop published to the display.
type Snapshot struct {
	HasActive      bool
	ActiveID       string
	ActiveMetadata string
	HasMetadata    bool
	ActiveFiles    int
	Added          int
	Removed        int
	// Patch is the active request's diff. Readers must not modify it.
	Patch *patch.Set
	// Pending counts requests still awaiting a decision, the active one
	// included. Requests whose submitter left are not counted.
	Pending int
	Scroll  int
	Exiting bool
}

// ReviewOptions configures a ReviewLoop.
type ReviewOptions struct {
	TickInterval time.Duration
	PageSize     int
	Notifier     *NotificationService
	// Observer receives the snapshot after every loop iteration. It runs on
	// the loop goroutine and must not block for long.
	Observer func(Snapshot)
}

// ReviewLoop is the single consumer of the broker queue. It presents the
// oldest request to the reviewer and answers it on the reviewer's command.
type ReviewLoop struct {
	queue *broker.Queue
	opts  ReviewOptions
	keys  chan Key

	active *broker.Request
	span   trace.Span
	scroll int

	mu   sync.Mutex
	snap Snapshot
}

// NewReviewLoop creates a loop consuming queue.
func NewReviewLoop(queue *broker.Queue, opts ReviewOptions) *ReviewLoop {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	return &ReviewLoop{
		queue: queue,
		opts:  opts,
		keys:  make(chan Key, keyBuffer),
	}
}

// Press forwards a key without blocking. It reports false when the key was
// dropped because the loop is not keeping up.
func (l *ReviewLoop) Press(k Key) bool {
	select {
	case l.keys <- k:
		return true
	default:
		return false
	}
}

// Snapshot returns the most recently published view.
func (l *ReviewLoop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Run consumes the queue until the reviewer quits, drains it, or ctx is
// cancelled. It never answers a request on cancellation.
func (l *ReviewLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.TickInterval)
	defer ticker.Stop()

	slog.Info("review loop started")
	l.refresh(ctx)
	l.publish(false)

	for {
		var arrival <-chan *broker.Request
		if l.active == nil {
			arrival = l.queue.Arrival()
		}

		select {
		case <-ctx.Done():
			slog.Info("review loop cancelled")
			l.endSpan("cancelled")
			l.publish(true)
			return nil

		case k := <-l.keys:
			if l.handleKey(ctx, k) {
				l.endSpan("abandoned by reviewer")
				l.publish(true)
				return nil
			}

		case r := <-arrival:
			l.queue.Admit(r)

		case <-ticker.C:
		}

		l.refresh(ctx)
		l.publish(false)
	}
}

// handleKey applies one reviewer command and reports whether the loop exits.
func (l *ReviewLoop) handleKey(ctx context.Context, k Key) bool {
	switch k {
	case KeyQuit:
		if l.active != nil {
			slog.Info("reviewer quit with a request undecided", "request_id", l.active.ID)
		} else {
			slog.Info("reviewer quit")
		}
		return true

	case KeyAccept:
		l.decideActive(ctx, review.StatusAccepted)
	case KeyReject:
		l.decideActive(ctx, review.StatusRejected)

	case KeyAcceptAll:
		l.drain(ctx, review.StatusAccepted)
		return true
	case KeyRejectAll:
		l.drain(ctx, review.StatusRejected)
		return true

	case KeyScrollUp:
		l.scrollBy(-1)
	case KeyScrollDown:
		l.scrollBy(1)
	case KeyPageUp:
		l.scrollBy(-l.opts.PageSize)
	case KeyPageDown:
		l.scrollBy(l.opts.PageSize)
	case KeyHome:
		l.scroll = 0

	default:
		slog.Debug("ignoring unknown key", "key", int(k))
	}
	return false
}

// decideActive answers the request on screen. If the request vanished
// since it was displayed, nothing is answered and the display catches up.
func (l *ReviewLoop) decideActive(ctx context.Context, s review.Status) {
	if l.active == nil {
		return
	}
	if l.queue.Peek() != l.active {
		slog.Info("active request went away before the decision", "request_id", l.active.ID)
		return
	}
	l.decide(ctx, l.queue.Pop(), s)
}

func (l *ReviewLoop) drain(ctx context.Context, s review.Status) {
	n := 0
	for r := l.queue.Pop(); r != nil; r = l.queue.Pop() {
		l.decide(ctx, r, s)
		n++
	}
	slog.Info("queue drained", "status", s.String(), "count", n)
}

func (l *ReviewLoop) decide(ctx context.Context, r *broker.Request, s review.Status) {
	if err := r.Respond(s); err != nil {
		slog.Error("decision not recorded", "request_id", r.ID, "status", s.String(), "error", err)
		return
	}

	files, added, removed := 0, 0, 0
	var paths []string
	if r.Patch != nil {
		files = len(r.Patch.Files)
		added, removed = r.Patch.Stats()
		paths = r.Patch.Paths()
	}
	slog.Info("decision",
		"request_id", r.ID,
		"conn_id", r.ConnID,
		"status", s.String(),
		"metadata", r.MetadataOr(""),
		"files", files,
		"added", added,
		"removed", removed,
	)

	if r == l.active {
		l.span.SetAttributes(attribute.String("review.status", s.String()))
		l.endSpan("")
	}

	l.opts.Notifier.Notify(ctx, notifier.DecisionEvent{
		RequestID: r.ID,
		ConnID:    r.ConnID,
		Status:    s.String(),
		Metadata:  r.Metadata,
		Files:     paths,
		Added:     added,
		Removed:   removed,
		DecidedAt: time.Now().UTC(),
	})
}

// refresh makes the queue head the active request, resetting the scroll
// offset when it changes.
func (l *ReviewLoop) refresh(ctx context.Context) {
	head := l.queue.Peek()
	if head == l.active {
		return
	}
	if l.active != nil && l.span != nil {
		l.endSpan("submitter went away")
	}
	l.active = head
	l.scroll = 0
	if head != nil {
		files := 0
		if head.Patch != nil {
			files = len(head.Patch.Files)
		}
		_, l.span = otel.StartReviewSpan(ctx, head.ID, head.ConnID, files)
		slog.Debug("reviewing", "request_id", head.ID, "pending", l.queue.Pending())
	}
}

func (l *ReviewLoop) endSpan(abandonReason string) {
	if l.span == nil {
		return
	}
	if abandonReason != "" {
		l.span.SetStatus(codes.Error, abandonReason)
	}
	l.span.End()
	l.span = nil
}

func (l *ReviewLoop) scrollBy(delta int) {
	if l.active == nil || l.active.Patch == nil {
		return
	}
	maxScroll := l.active.Patch.LineCount() - 1
	l.scroll = min(max(l.scroll+delta, 0), max(maxScroll, 0))
}

func (l *ReviewLoop) publish(exiting bool) {
	snap := Snapshot{
		Pending: l.queue.Pending(),
		Scroll:  l.scroll,
		Exiting: exiting,
	}
	if r := l.active; r != nil {
		snap.HasActive = true
		snap.ActiveID = r.ID
		snap.HasMetadata = r.Metadata != nil
		snap.ActiveMetadata = r.MetadataOr("")
		if r.Patch != nil {
			snap.Patch = r.Patch
			snap.ActiveFiles = len(r.Patch.Files)
			snap.Added, snap.Removed = r.Patch.Stats()
		}
	}
	if exiting {
		snap.HasActive = false
		snap.Patch = nil
	}

	l.mu.Lock()
	l.snap = snap
	l.mu.Unlock()

	if l.opts.Observer != nil {
		l.opts.Observer(snap)
	}
}

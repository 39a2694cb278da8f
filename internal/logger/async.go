package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping a logger's handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

type closerFunc func()

func (f closerFunc) Close() { f() }

// AsyncHandler hands records to a single writer goroutine through a buffered
// channel so callers never block on log I/O. One writer keeps records in
// submission order. Records are dropped when the buffer is full.
type AsyncHandler struct {
	inner  slog.Handler
	shared *asyncState
}

type asyncState struct {
	mu      sync.RWMutex // guards closed against sends on a closed channel
	closed  bool
	ch      chan asyncRecord
	done    chan struct{}
	dropped atomic.Int64
}

// asyncRecord pairs a record with the handler that must write it, so
// WithAttrs/WithGroup derivatives share one ordered writer.
type asyncRecord struct {
	h   slog.Handler
	rec slog.Record
}

// NewAsyncHandler creates an AsyncHandler buffering up to size records.
func NewAsyncHandler(inner slog.Handler, size int) *AsyncHandler {
	s := &asyncState{
		ch:   make(chan asyncRecord, size),
		done: make(chan struct{}),
	}
	go s.drain()
	return &AsyncHandler{inner: inner, shared: s}
}

func (s *asyncState) drain() {
	defer close(s.done)
	for r := range s.ch {
		_ = r.h.Handle(context.Background(), r.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Drops if the buffer is full or the handler is closed.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.shared.mu.RLock()
	defer h.shared.mu.RUnlock()
	if h.shared.closed {
		h.shared.dropped.Add(1)
		return nil
	}
	select {
	case h.shared.ch <- asyncRecord{h: h.inner, rec: rec.Clone()}:
	default:
		h.shared.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same writer.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), shared: h.shared}
}

// WithGroup returns a handler sharing the same writer.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), shared: h.shared}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.shared.dropped.Load()
}

// Close stops accepting records, writes what is buffered and, if anything was
// dropped, a final record saying how many. Safe to call more than once.
func (h *AsyncHandler) Close() {
	h.shared.mu.Lock()
	if h.shared.closed {
		h.shared.mu.Unlock()
		return
	}
	h.shared.closed = true
	close(h.shared.ch)
	h.shared.mu.Unlock()

	<-h.shared.done
	if n := h.shared.dropped.Load(); n > 0 {
		rec := slog.NewRecord(timeNow(), slog.LevelWarn, "log records dropped", 0)
		rec.AddAttrs(slog.Int64("dropped", n))
		_ = h.inner.Handle(context.Background(), rec)
	}
}

// Package ws implements the WebSocket side of the broker: one handler per
// submitter connection plus the acceptor that spawns them.
package ws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/patchpal/internal/adapter/otel"
	"github.com/Strob0t/patchpal/internal/adapter/wire"
	"github.com/Strob0t/patchpal/internal/broker"
	"github.com/Strob0t/patchpal/internal/domain"
	"github.com/Strob0t/patchpal/internal/domain/patch"
	"github.com/Strob0t/patchpal/internal/domain/review"
	"github.com/Strob0t/patchpal/internal/logger"
)

const (
	writeTimeout   = 10 * time.Second
	readBufferSize = 16
)

// ErrReviewTimeout is returned when no decision arrived within the
// configured decision timeout.
var ErrReviewTimeout = errors.New("ws: review timed out")

type frame struct {
	typ  websocket.MessageType
	data []byte
}

// handler serves a single submitter connection. It alternates between
// awaiting a submission and waiting for the decision on the request it
// dispatched, so at most one request per connection is in flight.
type handler struct {
	conn    *websocket.Conn
	connID  string
	queue   *broker.Queue
	metrics *otel.Metrics
	timeout time.Duration

	// onDispatch and onSettle bracket the Dispatched state.
	onDispatch func()
	onSettle   func()

	frames  chan frame
	backlog []frame
}

// run drives the connection until it is lost or ctx is cancelled.
// A normal shutdown returns nil.
func (h *handler) run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	connCtx, lose := context.WithCancelCause(ctx)
	defer lose(nil)

	readCtx, stopReader := context.WithCancel(context.WithoutCancel(ctx))
	readerDone := make(chan struct{})
	h.frames = make(chan frame, readBufferSize)
	go h.read(readCtx, lose, readerDone)

	defer func() {
		_ = h.conn.CloseNow()
		stopReader()
		<-readerDone
	}()

	for {
		f, err := h.next(connCtx)
		if err != nil {
			return h.closing(ctx, err)
		}
		if f.typ != websocket.MessageBinary {
			log.Debug("ignoring non-binary frame", "type", f.typ.String())
			continue
		}

		req, reqCancel, err := h.admit(connCtx, f.data)
		if err != nil {
			log.Warn("dropping malformed submission", "error", err)
			h.metrics.Malformed(ctx)
			continue
		}

		if err := h.queue.Enqueue(connCtx, req); err != nil {
			reqCancel()
			return h.closing(ctx, context.Cause(connCtx))
		}
		h.metrics.Received(ctx)
		log.Info("submission queued", "request_id", req.ID, "files", len(req.Patch.Files))

		finished, err := h.await(ctx, connCtx, req)
		reqCancel()
		if finished {
			return err
		}
	}
}

// read pumps frames from the socket until it fails. A read failure marks
// the connection as lost.
func (h *handler) read(ctx context.Context, lose context.CancelCauseFunc, done chan<- struct{}) {
	defer close(done)
	for {
		typ, data, err := h.conn.Read(ctx)
		if err != nil {
			lose(fmt.Errorf("%w: %w", domain.ErrConnectionLost, err))
			return
		}
		select {
		case h.frames <- frame{typ: typ, data: data}:
		case <-ctx.Done():
			return
		}
	}
}

// next returns the oldest unprocessed frame, from the backlog first.
func (h *handler) next(ctx context.Context) (frame, error) {
	if len(h.backlog) > 0 {
		f := h.backlog[0]
		h.backlog = h.backlog[1:]
		return f, nil
	}
	select {
	case f := <-h.frames:
		return f, nil
	case <-ctx.Done():
		return frame{}, context.Cause(ctx)
	}
}

// admit decodes a submission and wraps it in a request whose lifetime ends
// with the returned cancel func.
func (h *handler) admit(ctx context.Context, data []byte) (*broker.Request, context.CancelFunc, error) {
	sub, err := wire.DecodeSubmission(data)
	if err != nil {
		return nil, nil, err
	}
	set, err := patch.Parse(sub.Patch)
	if err != nil {
		return nil, nil, err
	}
	reqCtx, cancel := context.WithCancel(ctx)
	return broker.NewRequest(reqCtx, h.connID, set, sub.Metadata), cancel, nil
}

// await holds the connection in the Dispatched state until the decision
// arrives. It reports finished once the connection has reached its end,
// otherwise the decision was delivered and the next submission may follow.
func (h *handler) await(ctx, connCtx context.Context, req *broker.Request) (finished bool, err error) {
	log := logger.FromContext(ctx).With("request_id", req.ID)

	if h.onDispatch != nil {
		h.onDispatch()
	}
	if h.onSettle != nil {
		defer h.onSettle()
	}

	var expired <-chan time.Time
	if h.timeout > 0 {
		timer := time.NewTimer(h.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case status := <-req.Response():
			if err := review.Enforce(status); err != nil {
				log.Error("refusing to send decision", "status", status.String(), "error", err)
				h.metrics.Abandoned(ctx, otel.ReasonViolation)
				_ = h.conn.Close(websocket.StatusInternalError, "protocol violation")
				return true, err
			}
			if err := h.write(ctx, status); err != nil {
				log.Warn("decision not delivered", "status", status.String(), "error", err)
				h.metrics.Abandoned(ctx, otel.ReasonDisconnect)
				return true, fmt.Errorf("%w: %w", domain.ErrConnectionLost, err)
			}
			h.metrics.Decided(ctx, status.String(), req.Received)
			log.Info("decision sent", "status", status.String())
			return false, nil

		case f := <-h.frames:
			h.backlog = append(h.backlog, f)

		case <-expired:
			log.Warn("review timed out", "timeout", h.timeout)
			h.metrics.Abandoned(ctx, otel.ReasonTimeout)
			_ = h.conn.Close(websocket.StatusTryAgainLater, "review timed out")
			return true, ErrReviewTimeout

		case <-connCtx.Done():
			err := context.Cause(connCtx)
			if errors.Is(err, domain.ErrConnectionLost) {
				log.Info("submitter went away before a decision", "error", err)
				h.metrics.Abandoned(ctx, otel.ReasonDisconnect)
			} else {
				h.metrics.Abandoned(ctx, otel.ReasonShutdown)
			}
			return true, h.closing(ctx, err)
		}
	}
}

func (h *handler) write(ctx context.Context, status review.Status) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	return h.conn.Write(wctx, websocket.MessageBinary, wire.EncodeDecision(status))
}

// closing ends the connection. Lost connections report ErrConnectionLost;
// cancellation closes the socket with going-away and is not an error.
func (h *handler) closing(ctx context.Context, cause error) error {
	if errors.Is(cause, domain.ErrConnectionLost) {
		logger.FromContext(ctx).Info("connection closed", "reason", cause)
		return cause
	}
	logger.FromContext(ctx).Debug("closing connection on shutdown")
	_ = h.conn.Close(websocket.StatusGoingAway, "server shutting down")
	return nil
}

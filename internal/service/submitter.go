package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"

	"github.com/Strob0t/patchpal/internal/adapter/otel"
	"github.com/Strob0t/patchpal/internal/adapter/wire"
	"github.com/Strob0t/patchpal/internal/config"
	"github.com/Strob0t/patchpal/internal/domain"
	"github.com/Strob0t/patchpal/internal/domain/patch"
	"github.com/Strob0t/patchpal/internal/domain/review"
	"github.com/Strob0t/patchpal/internal/port/diffsource"
)

// ErrRejected is returned by Submit when the reviewer rejected the patch.
var ErrRejected = errors.New("patch rejected")

// Exit codes reported by the submitter command.
const (
	ExitAccepted = 0
	ExitRejected = 1
	ExitFailure  = 2
)

const previewLines = 10

// ExitCode maps the result of Submit to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitAccepted
	case errors.Is(err, ErrRejected):
		return ExitRejected
	default:
		return ExitFailure
	}
}

// Submitter sends one diff to the broker and waits for the verdict.
type Submitter struct {
	cfg      config.Client
	mode     diffsource.Mode
	deps     diffsource.Deps
	metadata string
}

// NewSubmitter creates a Submitter reading its diff from mode.
// An empty metadata string sends no metadata.
func NewSubmitter(cfg config.Client, mode diffsource.Mode, deps diffsource.Deps, metadata string) *Submitter {
	if cfg.DialAttempts < 1 {
		cfg.DialAttempts = 1
	}
	return &Submitter{cfg: cfg, mode: mode, deps: deps, metadata: metadata}
}

// Submit resolves the diff, sends it and blocks until a decision arrives.
// Accepted yields nil, Rejected yields ErrRejected.
func (s *Submitter) Submit(ctx context.Context) (review.Status, error) {
	mode := s.mode
	if mode == nil {
		mode = diffsource.Local{}
	}
	ctx, span := otel.StartSubmitSpan(ctx, mode.String())
	defer span.End()

	d, err := diffsource.Open(ctx, mode, s.deps)
	if err != nil {
		return review.StatusUnknown, err
	}
	set, err := patch.Parse(d.Text)
	if err != nil {
		return review.StatusUnknown, fmt.Errorf("diff from %s: %w", d.Source, err)
	}
	added, removed := set.Stats()
	slog.Info("diff ready", "source", d.Source, "files", len(set.Files), "added", added, "removed", removed)
	if preview, more := d.Preview(previewLines); preview != "" {
		slog.Debug("diff preview", "lines", preview, "more", more)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return review.StatusUnknown, err
	}
	defer func() { _ = conn.CloseNow() }()

	payload := wire.EncodeSubmission(review.NewSubmission(d.Text, s.metadata))
	if err := conn.Write(ctx, websocket.MessageBinary, payload); err != nil {
		return review.StatusUnknown, fmt.Errorf("%w: send submission: %w", domain.ErrConnectionLost, err)
	}
	slog.Info("submission sent, waiting for review", "url", s.cfg.URL)

	status, err := awaitDecision(ctx, conn)
	if err != nil {
		return review.StatusUnknown, err
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")

	switch status {
	case review.StatusAccepted:
		slog.Info("patch accepted")
		return status, nil
	case review.StatusRejected:
		slog.Info("patch rejected")
		return status, ErrRejected
	default:
		return status, fmt.Errorf("server answered %s: %w", status, domain.ErrProtocolViolation)
	}
}

// dial connects to the broker, retrying with exponential backoff. Nothing
// has been sent yet, so every attempt is safe to repeat.
func (s *Submitter) dial(ctx context.Context) (*websocket.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.cfg.DialAttempts-1)), ctx)

	var conn *websocket.Conn
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		dctx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
		defer cancel()

		c, resp, err := websocket.Dial(dctx, s.cfg.URL, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			slog.Debug("dial failed", "url", s.cfg.URL, "attempt", attempt, "error", err)
			return err
		}
		conn = c
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("connect to %s after %d attempt(s): %w", s.cfg.URL, attempt, err)
	}
	slog.Debug("connected", "url", s.cfg.URL, "attempts", attempt)
	return conn, nil
}

// awaitDecision reads until a binary decision frame arrives. Text frames
// are ignored.
func awaitDecision(ctx context.Context, conn *websocket.Conn) (review.Status, error) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return review.StatusUnknown, ctx.Err()
			}
			var ce websocket.CloseError
			if errors.As(err, &ce) {
				return review.StatusUnknown, fmt.Errorf("%w: server closed the connection (%s): %s",
					domain.ErrConnectionLost, ce.Code, ce.Reason)
			}
			return review.StatusUnknown, fmt.Errorf("%w: %w", domain.ErrConnectionLost, err)
		}
		if typ != websocket.MessageBinary {
			slog.Debug("ignoring non-binary frame", "type", typ.String())
			continue
		}
		return wire.DecodeDecision(data)
	}
}

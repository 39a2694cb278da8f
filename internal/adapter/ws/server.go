package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Strob0t/patchpal/internal/adapter/otel"
	"github.com/Strob0t/patchpal/internal/broker"
	"github.com/Strob0t/patchpal/internal/domain"
	"github.com/Strob0t/patchpal/internal/logger"
	"github.com/Strob0t/patchpal/internal/middleware"
)

// ErrBind is returned when the listening socket cannot be bound.
var ErrBind = errors.New("ws: bind failed")

const shutdownTimeout = 5 * time.Second

// DefaultMaxMessageBytes is the frame size limit used when Options leaves it unset.
const DefaultMaxMessageBytes int64 = 8 << 20

// Options configures a Server.
type Options struct {
	// DecisionTimeout bounds how long a connection waits for a decision.
	// Zero waits until the connection or the server goes away.
	DecisionTimeout time.Duration
	// MaxMessageBytes caps one inbound frame. Larger frames end the connection.
	MaxMessageBytes int64
	Metrics         *otel.Metrics
	ServiceName     string
}

// Server accepts submitter connections and runs one handler per connection.
type Server struct {
	queue *broker.Queue
	opts  Options

	listener net.Listener

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup

	conns      atomic.Int64
	dispatched atomic.Int64
}

// NewServer creates a Server feeding queue.
func NewServer(queue *broker.Queue, opts Options) *Server {
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return &Server{queue: queue, opts: opts}
}

// Listen binds addr. Serve must be called afterwards.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the HTTP routes served by the acceptor.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer, middleware.AccessLog)

	r.Get("/", s.HandleWS)
	r.Get("/ws", s.HandleWS)

	health := http.Handler(http.HandlerFunc(s.healthHandler))
	if s.opts.ServiceName != "" {
		health = otel.HTTPMiddleware(s.opts.ServiceName)(health)
	}
	r.Method(http.MethodGet, "/healthz", health)
	return r
}

// Serve accepts connections until ctx is cancelled, then stops accepting
// and waits for every connection handler to finish.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("%w: Serve called before Listen", ErrBind)
	}

	// Handlers derive from connCtx so they unwind even when Serve stops
	// because the listener failed rather than ctx being cancelled.
	connCtx, stopConns := context.WithCancel(ctx)
	defer stopConns()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return connCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(s.listener)
	}()

	slog.Info("listening for submitters", "addr", s.Addr())

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	stopConns()

	s.wg.Wait()
	slog.Info("acceptor stopped")
	return serveErr
}

// HandleWS upgrades the request and serves the connection until it ends.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if !s.track() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.wg.Done()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // submitters are local CLI tools, not browsers
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}
	c.SetReadLimit(s.opts.MaxMessageBytes)

	connID := uuid.NewString()
	ctx := logger.WithConnID(r.Context(), connID)
	log := logger.FromContext(ctx)

	s.conns.Add(1)
	defer s.conns.Add(-1)
	log.Info("submitter connected", "remote", r.RemoteAddr)

	h := &handler{
		conn:       c,
		connID:     connID,
		queue:      s.queue,
		metrics:    s.opts.Metrics,
		timeout:    s.opts.DecisionTimeout,
		onDispatch: func() { s.dispatched.Add(1) },
		onSettle:   func() { s.dispatched.Add(-1) },
	}
	err = h.run(ctx)
	switch {
	case err == nil:
		log.Info("submitter disconnected")
	case errors.Is(err, domain.ErrConnectionLost):
		log.Info("submitter disconnected", "reason", err)
	default:
		log.Warn("connection ended", "error", err)
	}
}

// ConnectionCount returns the number of live connection handlers.
func (s *Server) ConnectionCount() int {
	return int(s.conns.Load())
}

// Pending returns the number of connections waiting for a decision.
func (s *Server) Pending() int {
	return int(s.dispatched.Load())
}

func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	type healthStatus struct {
		Status      string `json:"status"`
		Pending     int    `json:"pending"`
		Connections int    `json:"connections"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthStatus{
		Status:      "ok",
		Pending:     s.Pending(),
		Connections: s.ConnectionCount(),
	})
}

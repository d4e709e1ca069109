// Package status serves a small read-only HTTP view of a running clock.
//
// The [Server] collects events through the observability hooks and exposes
// them on two endpoints:
//
//	GET /status     JSON snapshot: link state, session, counters, last error
//	GET /frame.png  the most recently encoded payload
//
// Register the server before starting the loop and the transport:
//
//	srv := status.New(status.Options{Logger: logger})
//	observability.SetTickHooks(srv)
//	observability.SetTransportHooks(srv)
//	go srv.ListenAndServe(ctx, ":8080")
package status

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/observability"
)

// shutdownTimeout bounds graceful shutdown of the listener.
const shutdownTimeout = 5 * time.Second

var (
	_ observability.TickHooks      = (*Server)(nil)
	_ observability.TransportHooks = (*Server)(nil)
)

// Options configures a Server.
type Options struct {
	// Logger receives request and lifecycle logs. Defaults to a discard logger.
	Logger *log.Logger

	// Now returns the wall-clock time. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Snapshot is the JSON body of GET /status.
type Snapshot struct {
	State   string `json:"state"`
	Session string `json:"session,omitempty"`
	Device  string `json:"device,omitempty"`

	FramesSent    int64 `json:"frames_sent"`
	FramesFailed  int64 `json:"frames_failed"`
	FramesDropped int64 `json:"frames_dropped"`
	Ticks         int64 `json:"ticks"`

	LastTick    time.Time `json:"last_tick,omitzero"`
	LastPayload int       `json:"last_payload_bytes"`
	LastError   string    `json:"last_error,omitempty"`

	Providers map[string]Provider `json:"providers"`
}

// Provider is the refresh status of one content provider.
type Provider struct {
	LastRefresh time.Time `json:"last_refresh"`
	Duration    string    `json:"duration"`
	Error       string    `json:"error,omitempty"`
}

// Server records hook events and serves them over HTTP. It is safe for
// concurrent use.
type Server struct {
	opts   Options
	logger *log.Logger
	router chi.Router

	mu    sync.RWMutex
	snap  Snapshot
	frame []byte
}

// New returns a Server in the disconnected state.
func New(opts Options) *Server {
	opts.setDefaults()
	s := &Server{
		opts:   opts,
		logger: opts.Logger,
		snap: Snapshot{
			State:     "disconnected",
			Providers: map[string]Provider{},
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/status", s.handleStatus)
	r.Get("/frame.png", s.handleFrame)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("status server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "status server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "shut down status server")
	}
	return nil
}

// Snapshot returns a copy of the current status.
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Providers = make(map[string]Provider, len(s.snap.Providers))
	for k, v := range s.snap.Providers {
		snap.Providers[k] = v
	}
	return snap
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Snapshot()); err != nil {
		s.logger.Warn("write status", "err", err)
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	frame := s.frame
	s.mu.RUnlock()

	if frame == nil {
		http.Error(w, "no frame rendered yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(frame)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

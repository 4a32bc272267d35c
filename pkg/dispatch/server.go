package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server defaults.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
)

// Server errors.
var (
	ErrServerStarted = errors.New("server already started")
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":80".
	Addr string

	// ReadHeaderTimeout bounds how long a client may take to send headers.
	// Default: DefaultReadHeaderTimeout.
	ReadHeaderTimeout time.Duration

	// Logger receives lifecycle output. Nil disables logging.
	Logger *slog.Logger
}

// Server runs a Dispatcher on a TCP listener.
type Server struct {
	config ServerConfig
	http   *http.Server

	mu       sync.Mutex
	listener net.Listener
	done     chan error
}

// NewServer creates a server for d. Nothing listens until Start.
func NewServer(cfg ServerConfig, d *Dispatcher) *Server {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	return &Server{
		config: cfg,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           d,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
	}
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return ErrServerStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.done = make(chan error, 1)

	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	if s.config.Logger != nil {
		s.config.Logger.Info("http server listening", "addr", ln.Addr().String())
	}
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	return <-done
}

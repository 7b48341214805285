// Package server accepts TCP connections and serves one request per
// connection, strictly one connection at a time.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/request"
)

var (
	ErrServerClosed   = errors.New("server closed")
	ErrAlreadyServing = errors.New("server already serving")
)

// Options configures a Server
type Options struct {
	Addr string
	// ReadTimeout bounds reading one request. Zero waits forever.
	ReadTimeout time.Duration
	MaxBodySize int64
	Logger      logging.Logger
	// Metrics is shared with MetricsMiddleware. Nil allocates a new set.
	Metrics *Metrics
}

type Server struct {
	opts    Options
	handler Handler
	logger  logging.Logger
	metrics *Metrics

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	active   net.Conn
	done     chan struct{}
	closed   atomic.Bool
}

func New(opts Options, handler Handler) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = request.DefaultMaxBodySize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:    opts,
		handler: handler,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Metrics returns the live counters
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the listening address, or nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until the server is closed. Each
// connection is handled to completion before the next Accept.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	if s.listener != nil {
		s.mu.Unlock()
		return ErrAlreadyServing
	}
	s.listener = ln
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()
	defer close(done)

	s.logger.Info("Listening", logging.F("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error("Error accepting connection", logging.F("error", err))
			continue
		}

		s.serveConn(conn)
	}
}

// Close stops accepting and drops the in-flight connection
func (s *Server) Close() error {
	s.closed.Store(true)
	s.cancel()

	s.mu.Lock()
	ln, active := s.listener, s.active
	s.mu.Unlock()

	if active != nil {
		active.Close()
	}
	if ln == nil {
		return nil
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting and waits for the in-flight connection to
// finish. If ctx expires first the connection is dropped and ctx.Err()
// is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	s.mu.Lock()
	ln, done := s.listener, s.done
	s.mu.Unlock()

	if ln == nil {
		s.cancel()
		return nil
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("Error closing listener", logging.F("error", err))
	}

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	}
}

func (s *Server) setActive(conn net.Conn) {
	s.mu.Lock()
	s.active = conn
	s.mu.Unlock()
}

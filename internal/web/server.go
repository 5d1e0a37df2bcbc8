package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cjeanneret/irdapower/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr       string
	handlers   *Handlers
	mcp        http.Handler
	middleware func(http.Handler) http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMCP mounts h on /mcp.
func WithMCP(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithMiddleware wraps every route, e.g. with bearer authentication.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.middleware = mw }
}

// NewServer creates a server configured for the given address and handlers.
func NewServer(addr string, handlers *Handlers, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		handlers: handlers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /power_cfg", s.handlers.HandlePowerCfgGet)
	mux.HandleFunc("PUT /power_cfg", s.handlers.HandlePowerCfgSet)
	mux.HandleFunc("POST /power_cfg", s.handlers.HandlePowerCfgSet)
	mux.HandleFunc("GET /status", s.handlers.HandleStatus)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}

	if s.middleware != nil {
		return s.middleware(mux)
	}
	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

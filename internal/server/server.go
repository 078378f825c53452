package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server hosts a Pipeline behind the request-scoped middleware every
// request gets: request IDs, access logging, an optional deadline and
// optional OpenTelemetry instrumentation.
type Server struct {
	Port int

	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	requestTimeout time.Duration
	tracingName    string
}

// WithRequestTimeout bounds every request context. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		o.requestTimeout = d
	}
}

// WithTracing wraps the handler with otelhttp under the given operation name.
func WithTracing(operation string) Option {
	return func(o *serverOptions) {
		o.tracingName = operation
	}
}

func New(port int, pipeline *Pipeline, logger *slog.Logger, opts ...Option) *Server {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	// Apply middleware in order
	chain := chi.Chain(
		RequestIDMiddleware,
		LoggingMiddleware(logger),
		TimeoutMiddleware(o.requestTimeout),
	)
	if o.tracingName != "" {
		chain = append(chain, func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, o.tracingName)
		})
	}

	handler := chain.Handler(pipeline.Handler())

	return &Server{
		Port:    port,
		handler: handler,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured port and serves until Shutdown is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener. It returns nil after a clean Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.httpServer.Shutdown(ctx)
}

package httpt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"orderdesk/internal/config"
	"orderdesk/pkg/logger"
)

type HTTPServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	log             logger.Logger
}

func NewHTTPServer(handler http.Handler, cfg *config.HTTP, log logger.Logger) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log,
	}
}

// Start binds the configured address and serves until ctx ends.
func (s *HTTPServer) Start(ctx context.Context) error {
	const op = "transport.http.HTTPServer.Start"

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("%s: listen: %w", op, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs on an existing listener. Requests in flight get the shutdown
// timeout to finish once ctx ends.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	const op = "transport.http.HTTPServer.Serve"

	s.log.Infow("dashboard API listening", "addr", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	case <-ctx.Done():
	}

	s.log.Infow("dashboard API shutting down", "timeout", s.shutdownTimeout.String())
	if err := s.Stop(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Errorw("dashboard API forced shutdown", "error", err)
		return fmt.Errorf("transport.http.HTTPServer.Stop: %w", err)
	}
	s.log.Infow("dashboard API stopped")
	return nil
}

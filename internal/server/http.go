package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/textrelay/wa-assistant/internal/conf"
)

const defaultShutdownTimeout = 60 * time.Second

// Drainer waits for background work started by requests
type Drainer interface {
	Wait(ctx context.Context) error
}

// HTTPServer runs the HTTP listener and drains in-flight replies on stop
type HTTPServer struct {
	srv             *http.Server
	drainer         Drainer
	shutdownTimeout time.Duration
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(cfg conf.ServerConfig, handler http.Handler, drainer Drainer) *HTTPServer {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return &HTTPServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		drainer:         drainer,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Start serves until Stop is called
func (s *HTTPServer) Start() error {
	log.Info().Str("component", "server").Str("addr", s.srv.Addr).Msg("HTTP server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop closes the listener, then waits up to the shutdown timeout for
// in-flight pipeline runs. Runs still going after that are abandoned.
func (s *HTTPServer) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	logger := log.With().Str("component", "server").Logger()
	logger.Info().Dur("timeout", s.shutdownTimeout).Msg("shutting down")

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if s.drainer == nil {
		return nil
	}
	if err := s.drainer.Wait(ctx); err != nil {
		logger.Warn().Err(err).Msg("in-flight replies did not finish before shutdown timeout")
		return err
	}
	logger.Info().Msg("all in-flight replies finished")
	return nil
}

// Package server manages the lifecycle of the HTTP listener and the
// background scheduler for the Ellie backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/elliebot/internal/config"
	"github.com/edgard/elliebot/internal/scheduler"
)

// Server owns the HTTP listener and the scheduler and runs them until the
// context is cancelled.
type Server struct {
	logger    *slog.Logger
	cfg       *config.Config
	httpSrv   *http.Server
	scheduler *scheduler.Scheduler
}

// New creates a server instance around the given handler and scheduler.
func New(logger *slog.Logger, cfg *config.Config, handler http.Handler, sched *scheduler.Scheduler) *Server {
	return &Server{
		logger: logger.With("component", "server"),
		cfg:    cfg,
		httpSrv: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		scheduler: sched,
	}
}

// Run starts the HTTP listener and the scheduler, then blocks until the
// context is cancelled or a component fails. Shutdown drains in-flight
// requests within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP listener", "addr", s.httpSrv.Addr)

		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http listener failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info("Shutdown signal received, stopping HTTP listener...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.logger.Info("Starting scheduler...")
		if err := s.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		s.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := s.scheduler.Stop(); err != nil {
			s.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Server stopped due to error", "error", err)
		return err
	}

	s.logger.Info("Server stopped gracefully.")
	return nil
}

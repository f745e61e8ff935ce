// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package ops serves the operational HTTP surface: liveness, readiness
// and Prometheus metrics. The dashboard consumes the streams directly;
// nothing here exposes pipeline data.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pulseguard/pulseguard/internal/logging"
)

// ReadyCheck reports whether one dependency is ready. Name is used in
// the readiness payload.
type ReadyCheck struct {
	Name  string
	Check func() bool
}

// Server is the ops HTTP server.
type Server struct {
	addr   string
	checks []ReadyCheck
	logger zerolog.Logger
}

// NewServer creates an ops server bound to host:port.
func NewServer(host string, port int, checks ...ReadyCheck) *Server {
	return &Server{
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		checks: checks,
		logger: logging.With().Str("component", "ops").Logger(),
	}
}

// Serve runs the HTTP server until context cancellation, implementing
// the suture service contract.
func (s *Server) Serve(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("ops server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops server: %w", err)
	}
}

// handleReady returns 200 only when every registered check passes.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	for _, c := range s.checks {
		if !c.Check() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready: " + c.Name))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

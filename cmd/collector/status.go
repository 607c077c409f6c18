// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/vesselwatch/internal/logging"
	"github.com/tomtom215/vesselwatch/internal/supervisor"
)

// statusServer exposes the operational surface: prometheus metrics, the
// per-source status document, and a liveness probe.
type statusServer struct {
	srv *http.Server
}

func newStatusServer(addr string, manager *supervisor.Manager) *statusServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(manager.Status()); err != nil {
			logging.Error().Err(err).Msg("Status encoding failed")
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &statusServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// start serves in the background until shutdown.
func (s *statusServer) start() {
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("Status listener started")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("Status listener failed")
		}
	}()
}

func (s *statusServer) shutdown(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Status listener shutdown failed")
	}
}

// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

// Command collector runs the AIS ingestion pipeline: one supervised adapter
// per configured feed, publishing canonical position records to NATS
// JetStream, with prometheus metrics and a JSON status endpoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/vesselwatch/internal/collector"
	"github.com/tomtom215/vesselwatch/internal/config"
	"github.com/tomtom215/vesselwatch/internal/logging"
	"github.com/tomtom215/vesselwatch/internal/sink"
	"github.com/tomtom215/vesselwatch/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Configuration load failed")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Collector exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting VesselWatch collector")

	// Broker sink, or the in-memory fallback for broker-less runs.
	natsComponents, err := InitNATS(cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		natsComponents.Shutdown(shutdownCtx)
	}()

	var recordSink sink.Sink = natsComponents.Sink()
	if recordSink == nil {
		recordSink = sink.NewMemory()
	}
	defer func() {
		if err := recordSink.Close(); err != nil {
			logging.Error().Err(err).Msg("Sink close failed")
		}
	}()

	// Supervisor tree and adapter manager
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	manager := supervisor.NewManager(tree, cfg.Collector.StopTimeout)

	sources := buildSources(cfg)
	if len(sources) == 0 {
		logging.Warn().Msg("No sources enabled, nothing to collect")
	}
	for _, src := range sources {
		if err := manager.Add(collector.NewRunner(src, recordSink)); err != nil {
			return err
		}
	}

	treeErr := tree.ServeBackground(ctx)
	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	logging.Info().Strs("sources", manager.Names()).Msg("Collectors started")

	var status *statusServer
	if cfg.Metrics.Enabled {
		status = newStatusServer(cfg.Metrics.ListenAddr, manager)
		status.start()
	}

	// Block until a signal arrives or the tree dies.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-treeErr:
		if err != nil && err != context.Canceled {
			logging.Error().Err(err).Msg("Supervisor tree exited")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Collector.StopTimeout+5*time.Second)
	defer cancel()

	if err := manager.StopAll(shutdownCtx, cfg.Collector.StopTimeout); err != nil {
		logging.Error().Err(err).Msg("Collector shutdown incomplete")
	}
	if status != nil {
		status.shutdown(shutdownCtx)
	}

	logging.Info().Msg("VesselWatch collector stopped")
	return nil
}

// buildSources constructs an adapter for every enabled feed section.
func buildSources(cfg *config.Config) []collector.Source {
	var sources []collector.Source
	if cfg.Sources.AISHub.Enabled {
		sources = append(sources, collector.NewPollingSource(cfg.Sources.AISHub))
	}
	if cfg.Sources.AISStream.Enabled {
		sources = append(sources, collector.NewStreamSource(cfg.Sources.AISStream))
	}
	if cfg.Sources.Digitraffic.Enabled {
		sources = append(sources, collector.NewGeoJSONSource(cfg.Sources.Digitraffic))
	}
	return sources
}

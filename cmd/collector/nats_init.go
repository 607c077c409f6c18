// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/vesselwatch/internal/config"
	"github.com/tomtom215/vesselwatch/internal/logging"
	"github.com/tomtom215/vesselwatch/internal/sink"
)

// NATSComponents holds all NATS-related components for lifecycle management.
type NATSComponents struct {
	server            *sink.EmbeddedServer
	natsConn          *natsgo.Conn
	streamInitializer *sink.StreamInitializer
	publisher         *sink.NATSSink

	mu      sync.Mutex
	running bool
}

// InitNATS initializes the broker sink when nats.enabled is set: the
// embedded server (optional), the client connection, the stream, and the
// publisher with its circuit breaker.
//
// Returns (nil, nil) when NATS is disabled; the caller falls back to the
// in-memory sink.
func InitNATS(cfg *config.Config) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS publishing disabled, using in-memory sink")
		return nil, nil
	}

	logging.Info().Msg("Initializing NATS publishing...")

	components := &NATSComponents{}

	var natsURL string

	// Step 1: Embedded NATS server if enabled
	if cfg.NATS.EmbeddedServer {
		host, port := embeddedListenAddr(cfg.NATS.URL)
		serverCfg := sink.ServerConfig{
			Host:              host,
			Port:              port,
			StoreDir:          cfg.NATS.StoreDir,
			JetStreamMaxMem:   cfg.NATS.MaxMemory,
			JetStreamMaxStore: cfg.NATS.MaxStore,
		}

		server, err := sink.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, err
		}
		components.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		natsURL = cfg.NATS.URL
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	// Step 2: Connect and ensure the stream exists
	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.NATS.MaxReconnects),
		natsgo.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	components.natsConn = nc
	logging.Info().Msg("NATS connection established")

	js, err := jetstream.New(nc)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := sink.DefaultStreamConfig(cfg.NATS.SubjectRoot)
	if cfg.NATS.StreamName != "" {
		streamCfg.Name = cfg.NATS.StreamName
	}
	if cfg.NATS.RetentionDays > 0 {
		streamCfg.MaxAge = time.Duration(cfg.NATS.RetentionDays) * 24 * time.Hour
	}

	streamInitializer, err := sink.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create stream initializer: %w", err)
	}
	components.streamInitializer = streamInitializer

	stream, err := streamInitializer.EnsureStream(context.Background())
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure stream exists: %w", err)
	}
	streamInfo := stream.CachedInfo()
	logging.Info().
		Str("name", streamInfo.Config.Name).
		Strs("subjects", streamInfo.Config.Subjects).
		Dur("max_age", streamInfo.Config.MaxAge).
		Msg("JetStream stream ready")

	// Step 3: Publisher with circuit breaker
	publisherCfg := sink.DefaultPublisherConfig(natsURL)
	publisherCfg.SubjectRoot = cfg.NATS.SubjectRoot
	publisherCfg.MaxReconnects = cfg.NATS.MaxReconnects
	publisherCfg.ReconnectWait = cfg.NATS.ReconnectWait
	publisherCfg.ReconnectBuffer = cfg.NATS.ReconnectBuffer

	publisher, err := sink.NewNATSSink(publisherCfg, sink.NewWatermillLogger())
	if err != nil {
		components.Shutdown(context.Background())
		return nil, err
	}
	publisher.SetCircuitBreaker(sink.NewCircuitBreaker(sink.DefaultCircuitBreakerConfig("nats-publish")))
	components.publisher = publisher
	logging.Info().Msg("NATS publisher created")

	components.mu.Lock()
	components.running = true
	components.mu.Unlock()

	logging.Info().Msg("NATS publishing initialized successfully")
	return components, nil
}

// embeddedListenAddr derives the embedded server's listen address from the
// configured nats.url, so the URL stays authoritative whether the server is
// embedded or external. Missing or unparseable pieces fall back to the
// loopback defaults.
func embeddedListenAddr(rawURL string) (string, int) {
	host, port := "127.0.0.1", 4222
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return host, port
	}
	if h := u.Hostname(); h != "" {
		host = h
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			port = n
		}
	}
	return host, port
}

// Sink returns the broker sink, or nil when NATS is disabled.
func (c *NATSComponents) Sink() sink.Sink {
	if c == nil || c.publisher == nil {
		return nil
	}
	return c.publisher
}

// Shutdown gracefully stops all NATS components.
//
// Shutdown order is critical for clean termination:
//  1. Close publisher (flushes pending publishes)
//  2. Close NATS connection
//  3. Shutdown embedded server last
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	c.mu.Unlock()

	if !wasRunning && c.publisher == nil && c.natsConn == nil && c.server == nil {
		return
	}

	logging.Info().Msg("Shutting down NATS components...")

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
		logging.Info().Msg("Publisher closed")
	}

	if c.natsConn != nil {
		c.natsConn.Close()
		logging.Info().Msg("NATS connection closed")
	}

	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down NATS server")
		}
		logging.Info().Msg("Embedded NATS server stopped")
	}

	logging.Info().Msg("NATS shutdown complete")
}

// IsRunning returns whether NATS components are active.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

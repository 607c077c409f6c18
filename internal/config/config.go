// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

// Package config defines the VesselWatch configuration model and its
// Koanf-based loader. Configuration is layered: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/vesselwatch/internal/validation"
)

// Config is the root configuration for the collector process.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	NATS      NATSConfig      `koanf:"nats"`
	Collector CollectorConfig `koanf:"collector"`
	Sources   SourcesConfig   `koanf:"sources"`
}

// LoggingConfig controls the global zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig controls the prometheus /metrics and /status listener.
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listen_addr"`
}

// NATSConfig holds the broker sink configuration.
// When Enabled is false the pipeline runs with an in-memory sink, which is
// useful for dry runs and tests.
type NATSConfig struct {
	Enabled bool `koanf:"enabled"`

	// EmbeddedServer runs an in-process NATS JetStream server listening at
	// URL's host and port. If false, an external server at URL is expected.
	EmbeddedServer bool   `koanf:"embedded_server"`
	URL            string `koanf:"url"`

	// JetStream storage for the embedded server
	StoreDir  string `koanf:"store_dir"`
	MaxMemory int64  `koanf:"max_memory"`
	MaxStore  int64  `koanf:"max_store"`

	// Stream provisioning
	StreamName    string `koanf:"stream_name"`
	SubjectRoot   string `koanf:"subject_root"`
	RetentionDays int    `koanf:"retention_days" validate:"gte=0"`

	// Client reconnection behavior
	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	ReconnectBuffer int           `koanf:"reconnect_buffer"`
}

// CollectorConfig holds supervisor-level settings shared by all adapters.
type CollectorConfig struct {
	// StopTimeout is the per-adapter grace period during shutdown before
	// the supervisor forces cancellation.
	StopTimeout time.Duration `koanf:"stop_timeout"`
}

// SourcesConfig holds one section per external feed.
type SourcesConfig struct {
	AISHub      SourceConfig `koanf:"aishub"`
	AISStream   SourceConfig `koanf:"aisstream"`
	Digitraffic SourceConfig `koanf:"digitraffic"`
}

// SourceConfig is the per-adapter configuration. It is constructed once at
// startup and immutable afterwards; adapters receive it by value.
type SourceConfig struct {
	Name    string `koanf:"name"`
	Enabled bool   `koanf:"enabled"`

	// Exactly one of BaseURL/SocketURL is used, depending on the variant.
	BaseURL   string `koanf:"base_url" validate:"omitempty,url"`
	SocketURL string `koanf:"socket_url" validate:"omitempty,url"`

	APIKey string `koanf:"api_key"`

	// RateLimit is the maximum outbound requests per minute. Zero disables
	// rate limiting (streaming sources do not poll and leave it at zero).
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`

	Bounds BoundingBox `koanf:"bounds"`
}

// BoundingBox is the geographic filter sent to each feed.
// Order on the streaming wire is [north, west, south, east].
type BoundingBox struct {
	North float64 `koanf:"north" validate:"latitude"`
	West  float64 `koanf:"west" validate:"longitude"`
	South float64 `koanf:"south" validate:"latitude"`
	East  float64 `koanf:"east" validate:"longitude"`
}

// WorldBounds covers the whole globe, the default when no region is configured.
func WorldBounds() BoundingBox {
	return BoundingBox{North: 90, West: -180, South: -90, East: 180}
}

// defaultConfig returns a Config with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1:9090",
		},
		NATS: NATSConfig{
			Enabled:         true,
			EmbeddedServer:  true,
			URL:             "nats://127.0.0.1:4222",
			StoreDir:        "/data/nats/jetstream",
			MaxMemory:       1 << 30,  // 1GB
			MaxStore:        10 << 30, // 10GB
			StreamName:      "AIS",
			SubjectRoot:     "ais.positions",
			RetentionDays:   7,
			MaxReconnects:   -1, // retry forever
			ReconnectWait:   2 * time.Second,
			ReconnectBuffer: 8 * 1024 * 1024,
		},
		Collector: CollectorConfig{
			StopTimeout: 30 * time.Second,
		},
		Sources: SourcesConfig{
			AISHub: SourceConfig{
				Name:      "aishub",
				Enabled:   false, // requires an account username
				BaseURL:   "https://data.aishub.net/ws.php",
				RateLimit: 60,
				Bounds:    WorldBounds(),
			},
			AISStream: SourceConfig{
				Name:      "aisstream",
				Enabled:   false, // requires an API key
				SocketURL: "wss://stream.aisstream.io/v0/stream",
				Bounds:    WorldBounds(),
			},
			Digitraffic: SourceConfig{
				// Digitraffic is keyless, so it is the out-of-the-box source.
				Name:      "digitraffic",
				Enabled:   true,
				BaseURL:   "https://meri.digitraffic.fi/api/ais/v1/locations/latest",
				RateLimit: 60,
				Bounds:    WorldBounds(),
			},
		},
	}
}

// Validate checks the full configuration, including every enabled source.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	for _, src := range []SourceConfig{c.Sources.AISHub, c.Sources.AISStream, c.Sources.Digitraffic} {
		if !src.Enabled {
			continue
		}
		if err := src.Validate(); err != nil {
			return err
		}
	}

	if c.Collector.StopTimeout <= 0 {
		return fmt.Errorf("collector: stop_timeout must be positive")
	}

	return nil
}

// Validate checks one source section.
func (c SourceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("source: name is required")
	}
	if c.BaseURL == "" && c.SocketURL == "" {
		return fmt.Errorf("source %s: one of base_url or socket_url is required", c.Name)
	}
	if err := validation.ValidateStruct(&c); err != nil {
		return fmt.Errorf("source %s: %w", c.Name, err)
	}
	if err := validation.ValidateStruct(&c.Bounds); err != nil {
		return fmt.Errorf("source %s bounds: %w", c.Name, err)
	}
	return nil
}

// EnabledSources returns the enabled source sections in a stable order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, src := range []SourceConfig{c.Sources.AISHub, c.Sources.AISStream, c.Sources.Digitraffic} {
		if src.Enabled {
			out = append(out, src)
		}
	}
	return out
}

// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vesselwatch/config.yaml",
	"/etc/vesselwatch/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if exists)
//  3. Environment variables: override any setting
//
// Precedence: ENV > file > defaults. The result is validated before use.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// AISSTREAM_API_KEY -> sources.aisstream.api_key
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables are dropped so unrelated process environment does not
// leak into the configuration.
//
// Examples:
//   - LOG_LEVEL -> logging.level
//   - NATS_URL -> nats.url
//   - AISSTREAM_API_KEY -> sources.aisstream.api_key
//   - DIGITRAFFIC_RATE_LIMIT -> sources.digitraffic.rate_limit
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Metrics listener
		"metrics_enabled":     "metrics.enabled",
		"metrics_listen_addr": "metrics.listen_addr",

		// NATS sink
		"nats_enabled":        "nats.enabled",
		"nats_embedded":       "nats.embedded_server",
		"nats_url":            "nats.url",
		"nats_store_dir":      "nats.store_dir",
		"nats_max_memory":     "nats.max_memory",
		"nats_max_store":      "nats.max_store",
		"nats_stream_name":    "nats.stream_name",
		"nats_subject_root":   "nats.subject_root",
		"nats_retention_days": "nats.retention_days",

		// Collector supervisor
		"collector_stop_timeout": "collector.stop_timeout",

		// AISHub polling source
		"aishub_enabled":      "sources.aishub.enabled",
		"aishub_base_url":     "sources.aishub.base_url",
		"aishub_api_key":      "sources.aishub.api_key",
		"aishub_rate_limit":   "sources.aishub.rate_limit",
		"aishub_bounds_north": "sources.aishub.bounds.north",
		"aishub_bounds_west":  "sources.aishub.bounds.west",
		"aishub_bounds_south": "sources.aishub.bounds.south",
		"aishub_bounds_east":  "sources.aishub.bounds.east",

		// AISStream streaming source
		"aisstream_enabled":      "sources.aisstream.enabled",
		"aisstream_socket_url":   "sources.aisstream.socket_url",
		"aisstream_api_key":      "sources.aisstream.api_key",
		"aisstream_bounds_north": "sources.aisstream.bounds.north",
		"aisstream_bounds_west":  "sources.aisstream.bounds.west",
		"aisstream_bounds_south": "sources.aisstream.bounds.south",
		"aisstream_bounds_east":  "sources.aisstream.bounds.east",

		// Digitraffic GeoJSON source
		"digitraffic_enabled":      "sources.digitraffic.enabled",
		"digitraffic_base_url":     "sources.digitraffic.base_url",
		"digitraffic_rate_limit":   "sources.digitraffic.rate_limit",
		"digitraffic_bounds_north": "sources.digitraffic.bounds.north",
		"digitraffic_bounds_west":  "sources.digitraffic.bounds.west",
		"digitraffic_bounds_south": "sources.digitraffic.bounds.south",
		"digitraffic_bounds_east":  "sources.digitraffic.bounds.east",
	}

	if path, ok := envMappings[key]; ok {
		return path
	}

	// Drop unmapped environment variables
	return ""
}

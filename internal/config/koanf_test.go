// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected level info, got %s", cfg.Logging.Level)
	}
	if cfg.NATS.StreamName != "AIS" {
		t.Errorf("Expected stream AIS, got %s", cfg.NATS.StreamName)
	}
	if cfg.Sources.Digitraffic.BaseURL != "https://meri.digitraffic.fi/api/ais/v1/locations/latest" {
		t.Errorf("Unexpected digitraffic URL: %s", cfg.Sources.Digitraffic.BaseURL)
	}
	if got := cfg.EnabledSources(); len(got) != 1 || got[0].Name != "digitraffic" {
		t.Errorf("Expected digitraffic as the only default source, got %v", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NATS_SUBJECT_ROOT", "fleet.positions")
	t.Setenv("COLLECTOR_STOP_TIMEOUT", "45s")
	t.Setenv("AISSTREAM_ENABLED", "true")
	t.Setenv("AISSTREAM_API_KEY", "test-key")
	t.Setenv("DIGITRAFFIC_RATE_LIMIT", "120")
	t.Setenv("DIGITRAFFIC_BOUNDS_NORTH", "70.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level debug, got %s", cfg.Logging.Level)
	}
	if cfg.NATS.SubjectRoot != "fleet.positions" {
		t.Errorf("Expected subject root fleet.positions, got %s", cfg.NATS.SubjectRoot)
	}
	if cfg.Collector.StopTimeout != 45*time.Second {
		t.Errorf("Expected 45s stop timeout, got %v", cfg.Collector.StopTimeout)
	}
	if !cfg.Sources.AISStream.Enabled || cfg.Sources.AISStream.APIKey != "test-key" {
		t.Errorf("Expected aisstream enabled with key, got %+v", cfg.Sources.AISStream)
	}
	if cfg.Sources.Digitraffic.RateLimit != 120 {
		t.Errorf("Expected rate limit 120, got %v", cfg.Sources.Digitraffic.RateLimit)
	}
	if cfg.Sources.Digitraffic.Bounds.North != 70.5 {
		t.Errorf("Expected north bound 70.5, got %v", cfg.Sources.Digitraffic.Bounds.North)
	}
}

func TestLoad_UnmappedEnvIgnored(t *testing.T) {
	// Arbitrary process environment must not leak into the configuration.
	t.Setenv("PATH_INFO", "/tmp/nope")
	t.Setenv("AISSTREAM_UNKNOWN_SETTING", "garbage")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sources.AISStream.Enabled {
		t.Error("Unmapped env vars should not change the configuration")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
logging:
  level: warn
nats:
  subject_root: harbor.positions
sources:
  digitraffic:
    rate_limit: 30
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected level warn from file, got %s", cfg.Logging.Level)
	}
	if cfg.NATS.SubjectRoot != "harbor.positions" {
		t.Errorf("Expected subject root harbor.positions, got %s", cfg.NATS.SubjectRoot)
	}
	if cfg.Sources.Digitraffic.RateLimit != 30 {
		t.Errorf("Expected rate limit 30, got %v", cfg.Sources.Digitraffic.RateLimit)
	}
	// Unset keys keep their defaults.
	if cfg.Sources.Digitraffic.BaseURL == "" {
		t.Error("File layer should not clear default values")
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Environment should override file, got %s", cfg.Logging.Level)
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	if _, err := Load(); err == nil {
		t.Fatal("Expected validation error for bad log level")
	}
}

func TestFindConfigFile_MissingPathIgnored(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")
	if got := findConfigFile(); got != "" {
		t.Errorf("Expected empty path for missing file, got %s", got)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"LOG_LEVEL", "logging.level"},
		{"NATS_URL", "nats.url"},
		{"AISHUB_API_KEY", "sources.aishub.api_key"},
		{"AISSTREAM_BOUNDS_WEST", "sources.aisstream.bounds.west"},
		{"DIGITRAFFIC_ENABLED", "sources.digitraffic.enabled"},
		{"HOME", ""},
		{"GOPATH", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.key); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

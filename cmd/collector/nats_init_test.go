// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package main

import "testing"

func TestEmbeddedListenAddr(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPort int
	}{
		{"default url", "nats://127.0.0.1:4222", "127.0.0.1", 4222},
		{"custom host and port", "nats://0.0.0.0:4333", "0.0.0.0", 4333},
		{"host without port", "nats://nats.internal", "nats.internal", 4222},
		{"empty url", "", "127.0.0.1", 4222},
		{"garbage url", "://not-a-url", "127.0.0.1", 4222},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port := embeddedListenAddr(tt.url)
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("embeddedListenAddr(%q) = %s:%d, want %s:%d",
					tt.url, host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

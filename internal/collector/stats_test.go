// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package collector

import (
	"sync"
	"testing"
)

func TestStats_FreshSnapshot(t *testing.T) {
	snap := NewStats().Snapshot()

	if snap.Running {
		t.Error("Expected not running")
	}
	if snap.RequestCount != 0 || snap.ErrorCount != 0 {
		t.Errorf("Expected zero counts, got %d/%d", snap.RequestCount, snap.ErrorCount)
	}
	if snap.ErrorRate != 0 {
		t.Errorf("Expected zero error rate with no requests, got %f", snap.ErrorRate)
	}
	if snap.LastRequestAt != nil {
		t.Errorf("Expected no last-request time, got %v", snap.LastRequestAt)
	}
}

func TestStats_ErrorRate(t *testing.T) {
	tests := []struct {
		name     string
		requests int
		errors   int
		want     float64
	}{
		{"no traffic", 0, 0, 0},
		{"errors only", 0, 3, 3}, // denominator floors at 1
		{"clean run", 10, 0, 0},
		{"half bad", 4, 2, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStats()
			for i := 0; i < tt.requests; i++ {
				s.markRequest()
			}
			for i := 0; i < tt.errors; i++ {
				s.markError()
			}
			if got := s.Snapshot().ErrorRate; got != tt.want {
				t.Errorf("Expected error rate %f, got %f", tt.want, got)
			}
		})
	}
}

func TestStats_TracksLastRequest(t *testing.T) {
	s := NewStats()
	s.markRequest()

	snap := s.Snapshot()
	if snap.LastRequestAt == nil {
		t.Fatal("Expected last-request time after markRequest")
	}
	if snap.RequestCount != 1 {
		t.Errorf("Expected request count 1, got %d", snap.RequestCount)
	}
}

func TestStats_ConcurrentAccess(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.markRequest()
				s.markError()
				s.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.RequestCount != 800 || snap.ErrorCount != 800 {
		t.Errorf("Expected 800/800, got %d/%d", snap.RequestCount, snap.ErrorCount)
	}
}

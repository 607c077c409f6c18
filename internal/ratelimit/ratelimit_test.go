// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Interval(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want time.Duration
	}{
		{"sixty per minute", 60, time.Second},
		{"six per minute", 6, 10 * time.Second},
		{"one per minute", 1, time.Minute},
		{"disabled", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(tt.rate)
			if got := l.Interval(); got != tt.want {
				t.Errorf("Expected interval %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLimiter_EnforcesSpacing(t *testing.T) {
	// 1200/min gives a 50ms interval, fast enough to observe in a test.
	l := NewLimiter(1200)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Second wait failed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 40*time.Millisecond {
		t.Errorf("Expected at least ~50ms spacing, got %v", elapsed)
	}
}

func TestLimiter_DisabledNeverBlocks(t *testing.T) {
	l := NewLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Disabled limiter blocked for %v", elapsed)
	}
}

func TestLimiter_CanceledContext(t *testing.T) {
	l := NewLimiter(1) // 60s interval, would block the second call
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Wait(canceled); err == nil {
		t.Error("Expected error from canceled context")
	}
}

func TestLimiter_LastRequest(t *testing.T) {
	l := NewLimiter(600)

	if !l.LastRequest().IsZero() {
		t.Error("Expected zero last-request time before first wait")
	}

	before := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	got := l.LastRequest()
	if got.Before(before) || got.After(time.Now()) {
		t.Errorf("Last-request time %v outside expected window", got)
	}
}

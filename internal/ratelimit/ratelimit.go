// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

// Package ratelimit enforces per-source spacing between outbound requests.
//
// Each adapter owns one Limiter; the limiter's state is never shared across
// adapters. A source configured for N requests per minute gets a minimum
// inter-request interval of 60/N seconds, enforced with a token bucket of
// burst one.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces outbound requests to a single source.
// The zero-rate limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	lastRequest time.Time
}

// NewLimiter creates a limiter for a source allowed requestsPerMinute
// outbound requests. A rate of zero or less disables limiting entirely.
func NewLimiter(requestsPerMinute float64) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{}
	}

	interval := time.Duration(float64(time.Minute) / requestsPerMinute)
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until at least the minimum interval has elapsed since the
// previous call, or until ctx is canceled. It must be called exactly once
// per outbound request attempt, before the attempt; the last-request time is
// recorded as a side effect.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.lastRequest = time.Now()
	l.mu.Unlock()
	return nil
}

// LastRequest returns the time of the most recent Wait that completed.
// Zero if no request has been made yet.
func (l *Limiter) LastRequest() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastRequest
}

// Interval returns the enforced minimum spacing between requests.
// Zero when limiting is disabled.
func (l *Limiter) Interval() time.Duration {
	if l.limiter == nil {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.limiter.Limit()))
}

// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package collector

import (
	"sync/atomic"
	"time"
)

// Stats holds one adapter's per-run counters. All methods are safe for
// concurrent use; the run loop writes, the status endpoint reads.
//
// Counting rules:
//   - requests counts records successfully parsed and forwarded to the sink
//   - errors counts parse rejections only
//
// Transport and protocol failures are retried by the source itself and are
// tracked in prometheus, not here, so a feed outage does not inflate the
// error rate of the records that did arrive.
type Stats struct {
	running     atomic.Bool
	requests    atomic.Uint64
	errors      atomic.Uint64
	lastRequest atomic.Int64 // unix nanoseconds, 0 when never
}

// NewStats returns zeroed statistics.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) setRunning(v bool) {
	s.running.Store(v)
}

// markRequest records one successfully processed record.
func (s *Stats) markRequest() {
	s.requests.Add(1)
	s.lastRequest.Store(time.Now().UnixNano())
}

// markError records one parse rejection.
func (s *Stats) markError() {
	s.errors.Add(1)
}

// Snapshot is a point-in-time view of one adapter's state, shaped for the
// status endpoint.
type Snapshot struct {
	Running       bool       `json:"is_running"`
	RequestCount  uint64     `json:"request_count"`
	ErrorCount    uint64     `json:"error_count"`
	ErrorRate     float64    `json:"error_rate"`
	LastRequestAt *time.Time `json:"last_request_at,omitempty"`
}

// Snapshot returns the current counters. ErrorRate is errors divided by
// max(requests, 1) so a fresh adapter reports 0 rather than NaN.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Running:      s.running.Load(),
		RequestCount: s.requests.Load(),
		ErrorCount:   s.errors.Load(),
	}
	denom := snap.RequestCount
	if denom == 0 {
		denom = 1
	}
	snap.ErrorRate = float64(snap.ErrorCount) / float64(denom)
	if ns := s.lastRequest.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		snap.LastRequestAt = &t
	}
	return snap
}

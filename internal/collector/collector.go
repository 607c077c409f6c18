// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

// Package collector implements the source adapters that ingest AIS position
// reports from external feeds.
//
// Each feed is a Source: a fetch half (Collect) that streams raw messages
// until canceled, and a parse half (Parse) that converts one raw message to
// the canonical record. A Runner binds one Source to the publisher sink and
// owns the adapter's run loop, counters, and lifecycle; runners are
// supervised as independent suture services so a stalled feed never starves
// the others.
//
// Three variants exist:
//   - PollingSource: request/response JSON APIs (vessel arrays)
//   - StreamSource: a persistent WebSocket feed with per-connection subscription
//   - GeoJSONSource: polling APIs that return GeoJSON feature collections
//
// Failure policy: transport and protocol failures are retried forever with
// fixed cooldowns; a single unparseable message is dropped and counted,
// never aborting the loop. Nothing in this package is fatal to the process.
package collector

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vesselwatch/internal/ais"
)

// RawMessage is one undecoded message as received from a feed: an array
// element for the polling variants, a frame for the streaming variant.
type RawMessage = json.RawMessage

// Source is one external AIS feed.
//
// Collect and Parse are deliberately split: Collect owns all network I/O and
// retry behavior, Parse is a pure function so it can be tested without a
// feed. A Collect stream is not resumable mid-run; restarting an adapter
// means calling Collect again.
type Source interface {
	// Name identifies the source in records, logs, and statistics.
	Name() string

	// Collect streams raw messages until ctx is canceled. The returned
	// channel is closed when the stream ends. Fetch failures are retried
	// internally with the configured cooldowns and never surface here.
	Collect(ctx context.Context) <-chan RawMessage

	// Parse converts one raw message into a validated canonical position.
	// It has no side effects; the caller counts failures.
	Parse(raw RawMessage) (*ais.Position, error)
}

// Cooldowns are the fixed waits applied after fetch failures.
// They are configurable only so tests can shrink them; production uses the
// defaults.
type Cooldowns struct {
	// Protocol applies after a source protocol failure (non-2xx response).
	Protocol time.Duration

	// Transport applies after a transport-level failure (timeout,
	// connection reset, disconnect).
	Transport time.Duration
}

// DefaultCooldowns returns the production cooldowns.
func DefaultCooldowns() Cooldowns {
	return Cooldowns{
		Protocol:  60 * time.Second,
		Transport: 30 * time.Second,
	}
}

// withDefaults fills zero values.
func (c Cooldowns) withDefaults() Cooldowns {
	d := DefaultCooldowns()
	if c.Protocol <= 0 {
		c.Protocol = d.Protocol
	}
	if c.Transport <= 0 {
		c.Transport = d.Transport
	}
	return c
}

// sleepCtx waits d unless ctx is canceled first. Returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// emit sends one raw message unless ctx is canceled first.
// Returns false on cancel.
func emit(ctx context.Context, ch chan<- RawMessage, raw RawMessage) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- raw:
		return true
	}
}

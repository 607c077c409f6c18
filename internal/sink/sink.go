// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

// Package sink delivers canonical position records to downstream consumers.
//
// The production sink publishes to NATS JetStream through Watermill with a
// circuit breaker in front; Memory is an in-process sink for tests and for
// running the collector without a broker.
package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/vesselwatch/internal/ais"
)

var (
	// ErrSinkClosed is returned by Publish after Close.
	ErrSinkClosed = errors.New("sink is closed")

	// ErrNilPosition is returned when a nil record is published.
	ErrNilPosition = errors.New("position is nil")
)

// Sink receives validated position records from adapter run loops.
// Implementations must be safe for concurrent use: every adapter publishes
// from its own goroutine.
type Sink interface {
	// Publish delivers one record. A non-nil error means the record was
	// not accepted; the caller decides whether to drop or retry.
	Publish(ctx context.Context, p *ais.Position) error

	// Close releases resources. Publish after Close returns an error.
	Close() error
}

// Memory is an in-process Sink that retains every published record.
type Memory struct {
	mu      sync.Mutex
	records []*ais.Position
	closed  bool
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish stores the record.
func (m *Memory) Publish(_ context.Context, p *ais.Position) error {
	if p == nil {
		return ErrNilPosition
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrSinkClosed
	}
	cp := *p
	m.records = append(m.records, &cp)
	return nil
}

// Records returns a copy of everything published so far.
func (m *Memory) Records() []*ais.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ais.Position, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of published records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Close marks the sink closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

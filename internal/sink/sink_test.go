// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/vesselwatch/internal/ais"
)

func testPosition(mmsi int64) *ais.Position {
	p := ais.NewPosition("aishub")
	p.MMSI = mmsi
	p.Latitude = 60.17
	p.Longitude = 24.94
	p.ObservedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return p
}

func TestMemory_PublishAndRecords(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := m.Publish(ctx, testPosition(230000000+i)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	if m.Len() != 3 {
		t.Errorf("Expected 3 records, got %d", m.Len())
	}
	records := m.Records()
	if records[0].MMSI != 230000001 {
		t.Errorf("Expected first MMSI 230000001, got %d", records[0].MMSI)
	}
}

func TestMemory_CopiesRecords(t *testing.T) {
	m := NewMemory()
	p := testPosition(230000001)

	if err := m.Publish(context.Background(), p); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Mutating the caller's record must not reach the stored copy.
	p.MMSI = 999999999
	if got := m.Records()[0].MMSI; got != 230000001 {
		t.Errorf("Stored record was mutated, got MMSI %d", got)
	}
}

func TestMemory_NilPosition(t *testing.T) {
	m := NewMemory()
	if err := m.Publish(context.Background(), nil); !errors.Is(err, ErrNilPosition) {
		t.Errorf("Expected ErrNilPosition, got %v", err)
	}
}

func TestMemory_PublishAfterClose(t *testing.T) {
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := m.Publish(context.Background(), testPosition(230000001))
	if !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Expected ErrSinkClosed, got %v", err)
	}
}

func TestMemory_ConcurrentPublish(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.Publish(context.Background(), testPosition(230000001))
			}
		}()
	}
	wg.Wait()

	if m.Len() != 400 {
		t.Errorf("Expected 400 records, got %d", m.Len())
	}
}

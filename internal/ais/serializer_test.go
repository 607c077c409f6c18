// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package ais

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSerializer_RoundTrip(t *testing.T) {
	p := validPosition()
	p.CourseOverGround = Float(182.4)
	p.SpeedOverGround = Float(11.2)
	p.TrueHeading = Float(180)
	p.NavigationStatus = StatusUnderWayEngine
	p.Destination = "HELSINKI"

	data, err := SerializePosition(p)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	got, err := DeserializePosition(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	if got.MMSI != p.MMSI {
		t.Errorf("Expected MMSI %d, got %d", p.MMSI, got.MMSI)
	}
	if got.NavigationStatus != StatusUnderWayEngine {
		t.Errorf("Expected status %s, got %s", StatusUnderWayEngine, got.NavigationStatus)
	}
	if got.TrueHeading == nil || *got.TrueHeading != 180 {
		t.Errorf("Expected heading 180, got %v", got.TrueHeading)
	}
	if !got.ObservedAt.Equal(p.ObservedAt) {
		t.Errorf("Expected observed_at %v, got %v", p.ObservedAt, got.ObservedAt)
	}
}

func TestSerializer_RejectsInvalid(t *testing.T) {
	p := validPosition()
	p.MMSI = 0

	if _, err := SerializePosition(p); !errors.Is(err, ErrMissingMMSI) {
		t.Errorf("Expected ErrMissingMMSI, got %v", err)
	}
}

func TestSerializer_OmitsAbsentFields(t *testing.T) {
	p := validPosition()

	data, err := SerializePosition(p)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	s := string(data)
	for _, field := range []string{"true_heading", "course_over_ground", "speed_over_ground", "destination", "eta"} {
		if strings.Contains(s, field) {
			t.Errorf("Expected absent field %s to be omitted, got %s", field, s)
		}
	}
}

func TestSerializer_ZeroHeadingSerialized(t *testing.T) {
	// A genuine heading of 0 must survive, distinguishable from absent.
	p := validPosition()
	p.TrueHeading = Float(0)

	data, err := SerializePosition(p)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !strings.Contains(string(data), `"true_heading":0`) {
		t.Errorf("Expected true_heading:0 on the wire, got %s", data)
	}

	got, err := DeserializePosition(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if got.TrueHeading == nil || *got.TrueHeading != 0 {
		t.Errorf("Expected heading 0, got %v", got.TrueHeading)
	}
}

func TestDeserialize_Garbage(t *testing.T) {
	if _, err := DeserializePosition([]byte("{not json")); err == nil {
		t.Error("Expected error for malformed payload")
	}
}

func TestSerializer_ETA(t *testing.T) {
	p := validPosition()
	eta := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	p.ETA = &eta

	data, err := SerializePosition(p)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	got, err := DeserializePosition(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if got.ETA == nil || !got.ETA.Equal(eta) {
		t.Errorf("Expected ETA %v, got %v", eta, got.ETA)
	}
}

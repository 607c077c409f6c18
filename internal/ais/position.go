// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package ais

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// SchemaVersion is the current position schema version.
// Increment this when making breaking changes to Position.
const SchemaVersion = 1

// HeadingUnavailable is the AIS sentinel for "true heading not available".
// Feeds report it literally; it must never appear on a published record.
const HeadingUnavailable = 511

// Validation errors returned by Position.Validate.
var (
	ErrMissingMMSI      = errors.New("mmsi is required")
	ErrInvalidMMSI      = errors.New("mmsi must be a positive integer of at most 9 digits")
	ErrLatitudeRange    = errors.New("latitude out of range [-90, 90]")
	ErrLongitudeRange   = errors.New("longitude out of range [-180, 180]")
	ErrNoPosition       = errors.New("no position available")
	ErrCourseRange      = errors.New("course over ground out of range [0, 360)")
	ErrSpeedRange       = errors.New("speed over ground must be non-negative")
	ErrHeadingRange     = errors.New("true heading out of range [0, 360)")
	ErrMissingSource    = errors.New("source is required")
	ErrMissingTimestamp = errors.New("observation timestamp is required")
)

// Position is the canonical vessel position record produced by every adapter,
// independent of the source wire format.
//
// Optional navigation fields use pointers so that "absent" and "zero" stay
// distinguishable on the wire: a vessel genuinely heading 0 serializes as 0,
// a vessel without heading data omits the field entirely.
type Position struct {
	// Schema version for forward/backward compatibility
	SchemaVersion int `json:"schema_version,omitempty"`

	// Identification
	MMSI   int64  `json:"mmsi"`
	Source string `json:"source"`

	// Position
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Navigation data (all optional)
	CourseOverGround *float64         `json:"course_over_ground,omitempty"`
	SpeedOverGround  *float64         `json:"speed_over_ground,omitempty"`
	TrueHeading      *float64         `json:"true_heading,omitempty"`
	NavigationStatus NavigationStatus `json:"navigation_status,omitempty"`

	// Voyage data (optional)
	Destination string     `json:"destination,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`

	// Timing
	ObservedAt time.Time `json:"observed_at"`
	ReceivedAt time.Time `json:"received_at"`

	// Raw payload for audit and debugging
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}

// NewPosition creates a position stamped with the schema version, the
// producing source, and the ingestion-time clock.
func NewPosition(source string) *Position {
	return &Position{
		SchemaVersion: SchemaVersion,
		Source:        source,
		ReceivedAt:    time.Now().UTC(),
	}
}

// Validate checks the record invariants. A record that fails validation is
// dropped by the caller and counted as a parse error; it is never published.
func (p *Position) Validate() error {
	if p.MMSI == 0 {
		return ErrMissingMMSI
	}
	if p.MMSI < 0 || p.MMSI > 999999999 {
		return ErrInvalidMMSI
	}
	if p.Source == "" {
		return ErrMissingSource
	}
	// (0,0) means "no position reported" on every feed this pipeline
	// ingests; rejecting is the conservative choice over publishing a
	// vessel at the equator/prime-meridian intersection.
	if p.Latitude == 0 && p.Longitude == 0 {
		return ErrNoPosition
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return ErrLatitudeRange
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return ErrLongitudeRange
	}
	// Absent navigation fields are fine; present ones must be physical.
	// The 511 heading sentinel is normalized to absent before validation,
	// so reaching here with it is a parser bug and gets rejected.
	if p.CourseOverGround != nil && (*p.CourseOverGround < 0 || *p.CourseOverGround >= 360) {
		return ErrCourseRange
	}
	if p.SpeedOverGround != nil && *p.SpeedOverGround < 0 {
		return ErrSpeedRange
	}
	if p.TrueHeading != nil && (*p.TrueHeading < 0 || *p.TrueHeading >= 360) {
		return ErrHeadingRange
	}
	if p.ObservedAt.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// Key returns the broker partitioning key: the decimal MMSI.
// Brokers that provide per-key ordering preserve per-vessel ordering with it.
func (p *Position) Key() string {
	return strconv.FormatInt(p.MMSI, 10)
}

// Topic returns the broker subject for this record under the given root.
// Format: <root>.<source>
// Example: ais.positions.aisstream
func (p *Position) Topic(root string) string {
	return root + "." + p.Source
}

// NormalizeHeading maps the 511 "unavailable" sentinel to absent.
// Every adapter variant must pass headings through this before emitting.
func NormalizeHeading(h *float64) *float64 {
	if h == nil || *h == HeadingUnavailable {
		return nil
	}
	return h
}

// Float returns a pointer to v, for populating optional fields.
func Float(v float64) *float64 {
	return &v
}

// ParseTimestamp parses a source timestamp. Feeds send ISO-8601 with a
// trailing Z (UTC offset zero) or without any offset at all; both are
// accepted. Returns the zero time for an empty string so callers can default
// to the ingestion clock.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	// Some feeds omit the offset entirely; treat as UTC.
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package ais

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Serializer handles position encoding/decoding for broker messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts a position to JSON bytes.
// Serialization is the last gate before the broker, so invalid records are
// refused here as well.
func (s *Serializer) Marshal(p *Position) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate position: %w", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal position: %w", err)
	}

	return data, nil
}

// Unmarshal converts JSON bytes to a position.
func (s *Serializer) Unmarshal(data []byte) (*Position, error) {
	var p Position
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal position: %w", err)
	}

	return &p, nil
}

// SerializePosition is a convenience function that marshals a position to JSON.
func SerializePosition(p *Position) ([]byte, error) {
	return NewSerializer().Marshal(p)
}

// DeserializePosition is a convenience function that unmarshals JSON to a position.
func DeserializePosition(data []byte) (*Position, error) {
	return NewSerializer().Unmarshal(data)
}

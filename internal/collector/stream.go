// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vesselwatch/internal/ais"
	"github.com/tomtom215/vesselwatch/internal/config"
	"github.com/tomtom215/vesselwatch/internal/logging"
	"github.com/tomtom215/vesselwatch/internal/metrics"
)

// streamHandshakeTimeout bounds the WebSocket dial.
const streamHandshakeTimeout = 15 * time.Second

// StreamSource ingests AIS positions from a persistent WebSocket feed
// (AISStream-style). After each successful dial it sends one subscription
// frame carrying the API key and bounding box, then yields every frame the
// server pushes.
//
// Disconnects and dial failures share one recovery path: close, wait the
// transport cooldown, redial, resubscribe. The subscription is
// per-connection state, so it is resent on every reconnect, exactly once
// per connection.
type StreamSource struct {
	cfg       config.SourceConfig
	dialer    *websocket.Dialer
	cooldowns Cooldowns
	logger    zerolog.Logger
}

// NewStreamSource creates a streaming adapter from its configuration.
func NewStreamSource(cfg config.SourceConfig) *StreamSource {
	return &StreamSource{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: streamHandshakeTimeout,
		},
		cooldowns: DefaultCooldowns(),
		logger:    logging.With().Str("component", "collector").Str("source", cfg.Name).Logger(),
	}
}

// SetDialer replaces the WebSocket dialer, for tests.
func (s *StreamSource) SetDialer(d *websocket.Dialer) {
	s.dialer = d
}

// SetCooldowns overrides the failure cooldowns, for tests.
func (s *StreamSource) SetCooldowns(c Cooldowns) {
	s.cooldowns = c.withDefaults()
}

// Name implements Source.
func (s *StreamSource) Name() string {
	return s.cfg.Name
}

// subscriptionFrame is the message sent after every connect. The feed
// expects the bounding box as [[north, west], [south, east]]-style nested
// arrays; this wire uses one box per entry in [north, west, south, east]
// order.
type subscriptionFrame struct {
	APIKey             string      `json:"APIKey"`
	BoundingBoxes      [][]float64 `json:"BoundingBoxes"`
	FilterMessageTypes []string    `json:"FilterMessageTypes"`
}

func (s *StreamSource) subscription() subscriptionFrame {
	b := s.cfg.Bounds
	return subscriptionFrame{
		APIKey:             s.cfg.APIKey,
		BoundingBoxes:      [][]float64{{b.North, b.West, b.South, b.East}},
		FilterMessageTypes: []string{"PositionReport"},
	}
}

// Collect implements Source. It maintains the connection until ctx is
// canceled, reconnecting with the transport cooldown on any failure.
func (s *StreamSource) Collect(ctx context.Context) <-chan RawMessage {
	ch := make(chan RawMessage)

	go func() {
		defer close(ch)
		first := true
		for ctx.Err() == nil {
			if !first {
				metrics.RecordReconnect(s.cfg.Name)
				if !sleepCtx(ctx, s.cooldowns.Transport) {
					return
				}
			}
			first = false

			if !s.runConnection(ctx, ch) {
				return
			}
		}
	}()

	return ch
}

// runConnection dials, subscribes, and reads frames until the connection
// fails or ctx is canceled. Returns false when ctx ended the connection.
func (s *StreamSource) runConnection(ctx context.Context, ch chan<- RawMessage) bool {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.SocketURL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.logger.Warn().Err(err).Msg("Stream dial failed")
		metrics.RecordTransportError(s.cfg.Name)
		return true
	}

	// Unblock ReadMessage when ctx is canceled.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer func() {
		close(stop)
		conn.Close()
	}()

	if err := conn.WriteJSON(s.subscription()); err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.logger.Warn().Err(err).Msg("Stream subscribe failed")
		metrics.RecordTransportError(s.cfg.Name)
		return true
	}
	s.logger.Info().Msg("Stream connected and subscribed")

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			s.logger.Warn().Err(err).Msg("Stream read failed, reconnecting")
			metrics.RecordTransportError(s.cfg.Name)
			return true
		}
		if !emit(ctx, ch, RawMessage(frame)) {
			return false
		}
	}
}

// streamFrame is the wire shape of one pushed position report.
type streamFrame struct {
	Message struct {
		UserID             int64    `json:"UserID"`
		Latitude           float64  `json:"Latitude"`
		Longitude          float64  `json:"Longitude"`
		CourseOverGround   *float64 `json:"CourseOverGround"`
		SpeedOverGround    *float64 `json:"SpeedOverGround"`
		TrueHeading        *float64 `json:"TrueHeading"`
		NavigationalStatus *int     `json:"NavigationalStatus"`
	} `json:"Message"`
	MetaData struct {
		TimeUTC string `json:"time_utc"`
	} `json:"MetaData"`
}

// Parse implements Source. It maps one pushed frame onto the canonical
// record. The full frame is retained as the raw payload.
func (s *StreamSource) Parse(raw RawMessage) (*ais.Position, error) {
	var f streamFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	p := ais.NewPosition(s.cfg.Name)
	p.MMSI = f.Message.UserID
	p.Latitude = f.Message.Latitude
	p.Longitude = f.Message.Longitude
	p.CourseOverGround = f.Message.CourseOverGround
	p.SpeedOverGround = f.Message.SpeedOverGround
	p.TrueHeading = ais.NormalizeHeading(f.Message.TrueHeading)
	if f.Message.NavigationalStatus != nil {
		p.NavigationStatus = ais.NavigationStatusFromCode(*f.Message.NavigationalStatus)
	}
	p.RawPayload = append([]byte(nil), raw...)

	observed, err := ais.ParseTimestamp(f.MetaData.TimeUTC)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", f.MetaData.TimeUTC, err)
	}
	if observed.IsZero() {
		observed = time.Now().UTC()
	}
	p.ObservedAt = observed

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vesselwatch/internal/ais"
	"github.com/tomtom215/vesselwatch/internal/config"
	"github.com/tomtom215/vesselwatch/internal/logging"
	"github.com/tomtom215/vesselwatch/internal/metrics"
	"github.com/tomtom215/vesselwatch/internal/ratelimit"
)

// GeoJSONSource ingests AIS positions from a polling API that returns a
// GeoJSON FeatureCollection (Digitraffic-style). Each poll yields one raw
// message per feature.
//
// GeoJSON coordinates are [longitude, latitude], the reverse of everything
// else in this pipeline; Parse is the only place that ordering is touched.
type GeoJSONSource struct {
	cfg       config.SourceConfig
	client    *http.Client
	limiter   *ratelimit.Limiter
	cooldowns Cooldowns
	logger    zerolog.Logger
}

// NewGeoJSONSource creates a GeoJSON polling adapter from its configuration.
func NewGeoJSONSource(cfg config.SourceConfig) *GeoJSONSource {
	return &GeoJSONSource{
		cfg:       cfg,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter(cfg.RateLimit),
		cooldowns: DefaultCooldowns(),
		logger:    logging.With().Str("component", "collector").Str("source", cfg.Name).Logger(),
	}
}

// SetHTTPClient replaces the HTTP client, for tests.
func (s *GeoJSONSource) SetHTTPClient(c *http.Client) {
	s.client = c
}

// SetCooldowns overrides the failure cooldowns, for tests.
func (s *GeoJSONSource) SetCooldowns(c Cooldowns) {
	s.cooldowns = c.withDefaults()
}

// Name implements Source.
func (s *GeoJSONSource) Name() string {
	return s.cfg.Name
}

// Collect implements Source. It polls until ctx is canceled.
func (s *GeoJSONSource) Collect(ctx context.Context) <-chan RawMessage {
	ch := make(chan RawMessage)

	go func() {
		defer close(ch)
		for ctx.Err() == nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}

			features, err := s.poll(ctx)
			if err != nil {
				cooldown := s.cooldowns.Transport
				if _, ok := err.(*protocolError); ok {
					cooldown = s.cooldowns.Protocol
				}
				if !sleepCtx(ctx, cooldown) {
					return
				}
				continue
			}

			for _, f := range features {
				if !emit(ctx, ch, f) {
					return
				}
			}
		}
	}()

	return ch
}

// poll issues one GET and splits the FeatureCollection into raw features.
func (s *GeoJSONSource) poll(ctx context.Context) ([]RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL, nil)
	if err != nil {
		return nil, &transportError{err: err}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Digitraffic-User", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Poll request failed")
		metrics.RecordTransportError(s.cfg.Name)
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordProtocolError(s.cfg.Name, strconv.Itoa(resp.StatusCode))
		s.logger.Warn().Int("status", resp.StatusCode).Msg("Poll request rejected")
		return nil, &protocolError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Poll response read failed")
		metrics.RecordTransportError(s.cfg.Name)
		return nil, &transportError{err: err}
	}

	var collection struct {
		Features []RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &collection); err != nil {
		s.logger.Warn().Err(err).Msg("Poll response is not a feature collection")
		metrics.RecordTransportError(s.cfg.Name)
		return nil, &transportError{err: err}
	}

	s.logger.Debug().Int("count", len(collection.Features)).Msg("Poll completed")
	return collection.Features, nil
}

// geoFeature is the wire shape of one GeoJSON vessel feature.
type geoFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		MMSI      int64           `json:"mmsi"`
		SOG       *float64        `json:"sog"`
		COG       *float64        `json:"cog"`
		Heading   *float64        `json:"heading"`
		NavStat   *int            `json:"navStat"`
		Timestamp json.RawMessage `json:"timestampExternal"`
	} `json:"properties"`
}

// Parse implements Source. It maps one feature onto the canonical record.
func (s *GeoJSONSource) Parse(raw RawMessage) (*ais.Position, error) {
	var f geoFeature
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode feature: %w", err)
	}
	if len(f.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("feature has no coordinates")
	}

	p := ais.NewPosition(s.cfg.Name)
	p.MMSI = f.Properties.MMSI
	// GeoJSON order is [lon, lat]
	p.Longitude = f.Geometry.Coordinates[0]
	p.Latitude = f.Geometry.Coordinates[1]
	p.CourseOverGround = f.Properties.COG
	p.SpeedOverGround = f.Properties.SOG
	p.TrueHeading = ais.NormalizeHeading(f.Properties.Heading)
	if f.Properties.NavStat != nil {
		p.NavigationStatus = ais.NavigationStatusFromCode(*f.Properties.NavStat)
	}
	p.RawPayload = append([]byte(nil), raw...)

	observed, err := parseExternalTimestamp(f.Properties.Timestamp)
	if err != nil {
		return nil, err
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

// parseExternalTimestamp accepts the two encodings seen on GeoJSON feeds:
// an ISO-8601 string or epoch milliseconds. Returns the zero time when the
// property is absent or null.
func parseExternalTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
		}
		t, err := ais.ParseTimestamp(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		return t, nil
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
	}
	return time.UnixMilli(millis).UTC(), nil
}

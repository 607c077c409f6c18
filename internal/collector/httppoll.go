// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vesselwatch/internal/ais"
	"github.com/tomtom215/vesselwatch/internal/config"
	"github.com/tomtom215/vesselwatch/internal/logging"
	"github.com/tomtom215/vesselwatch/internal/metrics"
	"github.com/tomtom215/vesselwatch/internal/ratelimit"
)

// maxResponseBytes caps how much of a polling response is read.
// The largest real-world vessel list is a few tens of MB.
const maxResponseBytes = 64 << 20

// PollingSource ingests AIS positions from a request/response JSON API
// (AISHub-style). Each poll issues one GET, rate-limited to the configured
// requests per minute, and yields every element of the returned vessel
// array.
//
// Failure handling: a non-200 response applies the protocol cooldown, a
// transport failure the transport cooldown; both retry forever. A 401 is
// logged at error level (the API key is likely wrong) but retried like any
// other protocol failure, since feeds return 401 transiently during
// maintenance windows.
type PollingSource struct {
	cfg       config.SourceConfig
	client    *http.Client
	limiter   *ratelimit.Limiter
	cooldowns Cooldowns
	logger    zerolog.Logger
}

// NewPollingSource creates a polling adapter from its configuration.
func NewPollingSource(cfg config.SourceConfig) *PollingSource {
	return &PollingSource{
		cfg:       cfg,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter(cfg.RateLimit),
		cooldowns: DefaultCooldowns(),
		logger:    logging.With().Str("component", "collector").Str("source", cfg.Name).Logger(),
	}
}

// SetHTTPClient replaces the HTTP client, for tests.
func (s *PollingSource) SetHTTPClient(c *http.Client) {
	s.client = c
}

// SetCooldowns overrides the failure cooldowns, for tests.
func (s *PollingSource) SetCooldowns(c Cooldowns) {
	s.cooldowns = c.withDefaults()
}

// Name implements Source.
func (s *PollingSource) Name() string {
	return s.cfg.Name
}

// Collect implements Source. It polls until ctx is canceled.
func (s *PollingSource) Collect(ctx context.Context) <-chan RawMessage {
	ch := make(chan RawMessage)

	go func() {
		defer close(ch)
		for ctx.Err() == nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}

			vessels, err := s.poll(ctx)
			if err != nil {
				if !sleepCtx(ctx, s.cooldownFor(err)) {
					return
				}
				continue
			}

			for _, v := range vessels {
				if !emit(ctx, ch, v) {
					return
				}
			}
		}
	}()

	return ch
}

// poll issues one GET and splits the response into raw vessel messages.
func (s *PollingSource) poll(ctx context.Context) ([]RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.requestURL(), nil)
	if err != nil {
		return nil, &transportError{err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Poll request failed")
		metrics.RecordTransportError(s.cfg.Name)
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordProtocolError(s.cfg.Name, strconv.Itoa(resp.StatusCode))
		ev := s.logger.Warn()
		if resp.StatusCode == http.StatusUnauthorized {
			ev = s.logger.Error()
		}
		ev.Int("status", resp.StatusCode).Msg("Poll request rejected")
		return nil, &protocolError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Poll response read failed")
		metrics.RecordTransportError(s.cfg.Name)
		return nil, &transportError{err: err}
	}

	vessels, err := decodeVesselArray(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Poll response is not a vessel list")
		metrics.RecordTransportError(s.cfg.Name)
		return nil, &transportError{err: err}
	}

	s.logger.Debug().Int("count", len(vessels)).Msg("Poll completed")
	return vessels, nil
}

// requestURL builds the poll URL with format, bounding box, and credential
// parameters.
func (s *PollingSource) requestURL() string {
	q := url.Values{}
	q.Set("format", "1")
	q.Set("output", "json")
	q.Set("compress", "0")
	q.Set("latmin", formatCoord(s.cfg.Bounds.South))
	q.Set("latmax", formatCoord(s.cfg.Bounds.North))
	q.Set("lonmin", formatCoord(s.cfg.Bounds.West))
	q.Set("lonmax", formatCoord(s.cfg.Bounds.East))
	if s.cfg.APIKey != "" {
		q.Set("username", s.cfg.APIKey)
	}

	sep := "?"
	if strings.Contains(s.cfg.BaseURL, "?") {
		sep = "&"
	}
	return s.cfg.BaseURL + sep + q.Encode()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// cooldownFor maps a poll failure to its retry wait.
func (s *PollingSource) cooldownFor(err error) time.Duration {
	if _, ok := err.(*protocolError); ok {
		return s.cooldowns.Protocol
	}
	return s.cooldowns.Transport
}

type protocolError struct{ status int }

func (e *protocolError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

type transportError struct{ err error }

func (e *transportError) Error() string {
	return "transport failure: " + e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

// decodeVesselArray splits a poll response into raw vessel messages.
// Feeds return either a bare JSON array or a {"data": [...]} envelope.
func decodeVesselArray(body []byte) ([]RawMessage, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var vessels []RawMessage
		if err := json.Unmarshal(trimmed, &vessels); err != nil {
			return nil, fmt.Errorf("decode vessel array: %w", err)
		}
		return vessels, nil
	}

	var envelope struct {
		Data []RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode vessel envelope: %w", err)
	}
	return envelope.Data, nil
}

// pollVessel is the wire shape of one vessel in an AISHub-style response.
// Keys are uppercase on the wire.
type pollVessel struct {
	MMSI        int64    `json:"MMSI"`
	Latitude    float64  `json:"LATITUDE"`
	Longitude   float64  `json:"LONGITUDE"`
	COG         *float64 `json:"COG"`
	SOG         *float64 `json:"SOG"`
	Heading     *float64 `json:"HEADING"`
	NavStat     *int     `json:"NAVSTAT"`
	Destination string   `json:"DESTINATION"`
	ETA         string   `json:"ETA"`
	Timestamp   string   `json:"TIMESTAMP"`
}

// Parse implements Source. It maps one uppercase-keyed vessel object onto
// the canonical record.
func (s *PollingSource) Parse(raw RawMessage) (*ais.Position, error) {
	var v pollVessel
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode vessel: %w", err)
	}

	p := ais.NewPosition(s.cfg.Name)
	p.MMSI = v.MMSI
	p.Latitude = v.Latitude
	p.Longitude = v.Longitude
	p.CourseOverGround = v.COG
	p.SpeedOverGround = v.SOG
	p.TrueHeading = ais.NormalizeHeading(v.Heading)
	if v.NavStat != nil {
		p.NavigationStatus = ais.NavigationStatusFromCode(*v.NavStat)
	}
	p.Destination = strings.TrimSpace(v.Destination)
	p.RawPayload = append([]byte(nil), raw...)

	if v.ETA != "" {
		// ETA is advisory; an unparseable one never rejects the record.
		if eta, err := ais.ParseTimestamp(v.ETA); err == nil && !eta.IsZero() {
			p.ETA = &eta
		}
	}

	observed, err := ais.ParseTimestamp(v.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", v.Timestamp, err)
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

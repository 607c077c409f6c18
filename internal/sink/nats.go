// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vesselwatch/internal/ais"
	"github.com/tomtom215/vesselwatch/internal/metrics"
)

// NATSSink publishes position records to NATS JetStream through Watermill,
// with circuit breaker protection and automatic reconnection handling.
//
// Each record is published to "<root>.<source>" with the vessel's MMSI as
// the message key metadata. The message UUID doubles as Nats-Msg-Id so
// JetStream deduplication can drop broker-side retries.
type NATSSink struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	serializer     *ais.Serializer
	subjectRoot    string
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewNATSSink creates a resilient Watermill NATS publisher.
// The publisher is configured for JetStream with message ID tracking for
// deduplication; the stream itself is pre-created by StreamInitializer.
func NewNATSSink(cfg PublisherConfig, logger watermill.LoggerAdapter) (*NATSSink, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	if cfg.SubjectRoot == "" {
		cfg.SubjectRoot = DefaultPublisherConfig(cfg.URL).SubjectRoot
	}

	// NATS connection options with reconnection handling
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
		natsgo.ErrorHandler(func(nc *natsgo.Conn, sub *natsgo.Subscription, err error) {
			logger.Error("NATS error", err, watermill.LogFields{
				"subject": sub.Subject,
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // Stream is pre-created by StreamInitializer
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &NATSSink{
		publisher:   pub,
		serializer:  ais.NewSerializer(),
		subjectRoot: cfg.SubjectRoot,
		logger:      logger,
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (s *NATSSink) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	s.circuitBreaker = cb
}

// Publish serializes and publishes one position record.
// The record is validated during serialization; an invalid record is
// rejected before touching the broker.
func (s *NATSSink) Publish(ctx context.Context, p *ais.Position) error {
	if p == nil {
		return ErrNilPosition
	}

	data, err := s.serializer.Marshal(p)
	if err != nil {
		return fmt.Errorf("serialize position: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), data)
	msg.Metadata.Set("mmsi", p.Key())
	msg.Metadata.Set("source", p.Source)

	return s.publishMessage(ctx, p.Topic(s.subjectRoot), msg)
}

// publishMessage sends a message to the given topic with circuit breaker
// protection. The message UUID is used as Nats-Msg-Id for deduplication if
// not already set.
func (s *NATSSink) publishMessage(_ context.Context, topic string, msg *message.Message) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSinkClosed
	}
	s.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if s.circuitBreaker != nil {
		_, err = s.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, s.publisher.Publish(topic, msg)
		})
	} else {
		err = s.publisher.Publish(topic, msg)
	}

	if err != nil {
		metrics.RecordPublishError(msg.Metadata.Get("source"))
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	metrics.RecordPublish()
	return nil
}

// Close gracefully shuts down the publisher.
func (s *NATSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.publisher.Close()
}

// WatermillPublisher returns the underlying Watermill publisher.
func (s *NATSSink) WatermillPublisher() message.Publisher {
	return s.publisher
}

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

	"github.com/nats-io/nats.go/jetstream"
)

// MockStream implements jetstream.Stream for testing.
type MockStream struct {
	config  jetstream.StreamConfig
	infoErr error
}

func (m *MockStream) Info(ctx context.Context, opts ...jetstream.StreamInfoOpt) (*jetstream.StreamInfo, error) {
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	return &jetstream.StreamInfo{Config: m.config}, nil
}

func (m *MockStream) CachedInfo() *jetstream.StreamInfo {
	return &jetstream.StreamInfo{Config: m.config}
}

func (m *MockStream) Purge(ctx context.Context, opts ...jetstream.StreamPurgeOpt) error { return nil }

func (m *MockStream) CreateOrUpdateConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) OrderedConsumer(ctx context.Context, cfg jetstream.OrderedConsumerConfig) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) Consumer(ctx context.Context, name string) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) DeleteConsumer(ctx context.Context, name string) error { return nil }

func (m *MockStream) CreateConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) UpdateConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	return nil, nil
}

func (m *MockStream) ListConsumers(ctx context.Context) jetstream.ConsumerInfoLister { return nil }

func (m *MockStream) ConsumerNames(ctx context.Context) jetstream.ConsumerNameLister { return nil }

func (m *MockStream) CreateOrUpdatePushConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.PushConsumer, error) {
	return nil, nil
}

func (m *MockStream) CreatePushConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.PushConsumer, error) {
	return nil, nil
}

func (m *MockStream) UpdatePushConsumer(ctx context.Context, cfg jetstream.ConsumerConfig) (jetstream.PushConsumer, error) {
	return nil, nil
}

func (m *MockStream) PushConsumer(ctx context.Context, name string) (jetstream.PushConsumer, error) {
	return nil, nil
}

func (m *MockStream) PauseConsumer(ctx context.Context, name string, pauseUntil time.Time) (*jetstream.ConsumerPauseResponse, error) {
	return nil, nil
}

func (m *MockStream) ResumeConsumer(ctx context.Context, name string) (*jetstream.ConsumerPauseResponse, error) {
	return nil, nil
}

func (m *MockStream) UnpinConsumer(ctx context.Context, name string, group string) error {
	return nil
}

func (m *MockStream) GetMsg(ctx context.Context, seq uint64, opts ...jetstream.GetMsgOpt) (*jetstream.RawStreamMsg, error) {
	return nil, nil
}

func (m *MockStream) GetLastMsgForSubject(ctx context.Context, subject string) (*jetstream.RawStreamMsg, error) {
	return nil, nil
}

func (m *MockStream) DeleteMsg(ctx context.Context, seq uint64) error { return nil }

func (m *MockStream) SecureDeleteMsg(ctx context.Context, seq uint64) error { return nil }

// MockJetStreamContext implements JetStreamContext for testing.
type MockJetStreamContext struct {
	mu          sync.Mutex
	streams     map[string]*MockStream
	createErr   error
	updateErr   error
	createCalls int
	updateCalls int
}

func NewMockJetStreamContext() *MockJetStreamContext {
	return &MockJetStreamContext{streams: make(map[string]*MockStream)}
}

func (m *MockJetStreamContext) Stream(ctx context.Context, name string) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stream, ok := m.streams[name]; ok {
		return stream, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (m *MockJetStreamContext) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	stream := &MockStream{config: cfg}
	m.streams[cfg.Name] = stream
	return stream, nil
}

func (m *MockJetStreamContext) UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if stream, ok := m.streams[cfg.Name]; ok {
		stream.config = cfg
		return stream, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (m *MockJetStreamContext) DeleteStream(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, name)
	return nil
}

func (m *MockJetStreamContext) AddStream(name string, cfg jetstream.StreamConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[name] = &MockStream{config: cfg}
}

func (m *MockJetStreamContext) Calls() (creates, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls, m.updateCalls
}

func TestStreamInitializer_NilArguments(t *testing.T) {
	cfg := DefaultStreamConfig("ais.positions")

	if _, err := NewStreamInitializer(nil, &cfg); err == nil {
		t.Error("Expected error on nil JetStream context")
	}
	if _, err := NewStreamInitializer(NewMockJetStreamContext(), nil); err == nil {
		t.Error("Expected error on nil config")
	}
}

func TestStreamInitializer_EnsureStream_CreatesNew(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultStreamConfig("ais.positions")

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	stream, err := initializer.EnsureStream(context.Background())
	if err != nil {
		t.Fatalf("EnsureStream() error = %v", err)
	}

	creates, updates := js.Calls()
	if creates != 1 || updates != 0 {
		t.Errorf("Expected 1 create / 0 updates, got %d/%d", creates, updates)
	}

	info := stream.CachedInfo()
	if info.Config.Name != "AIS" {
		t.Errorf("Stream name = %s, want AIS", info.Config.Name)
	}
	if len(info.Config.Subjects) != 1 || info.Config.Subjects[0] != "ais.positions.>" {
		t.Errorf("Subjects = %v, want [ais.positions.>]", info.Config.Subjects)
	}
}

func TestStreamInitializer_EnsureStream_UpdatesExisting(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultStreamConfig("ais.positions")

	js.AddStream(cfg.Name, jetstream.StreamConfig{
		Name:     cfg.Name,
		Subjects: []string{"old.subject"},
	})

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	stream, err := initializer.EnsureStream(context.Background())
	if err != nil {
		t.Fatalf("EnsureStream() error = %v", err)
	}

	creates, updates := js.Calls()
	if creates != 0 || updates != 1 {
		t.Errorf("Expected 0 creates / 1 update, got %d/%d", creates, updates)
	}
	if got := stream.CachedInfo().Config.Subjects[0]; got != "ais.positions.>" {
		t.Errorf("Expected subjects replaced, got %s", got)
	}
}

func TestStreamInitializer_EnsureStream_Idempotent(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultStreamConfig("ais.positions")

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := initializer.EnsureStream(context.Background()); err != nil {
			t.Fatalf("EnsureStream() call %d error = %v", i+1, err)
		}
	}

	creates, updates := js.Calls()
	if creates != 1 || updates != 2 {
		t.Errorf("Expected 1 create / 2 updates, got %d/%d", creates, updates)
	}
}

func TestStreamInitializer_EnsureStream_CreateError(t *testing.T) {
	js := NewMockJetStreamContext()
	js.createErr = errors.New("insufficient storage")
	cfg := DefaultStreamConfig("ais.positions")

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	if _, err := initializer.EnsureStream(context.Background()); err == nil {
		t.Fatal("EnsureStream() should return error on create failure")
	}
}

func TestStreamInitializer_IsHealthy(t *testing.T) {
	js := NewMockJetStreamContext()
	cfg := DefaultStreamConfig("ais.positions")

	initializer, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	if initializer.IsHealthy(context.Background()) {
		t.Error("Expected unhealthy before the stream exists")
	}

	js.AddStream(cfg.Name, jetstream.StreamConfig{Name: cfg.Name})
	if !initializer.IsHealthy(context.Background()) {
		t.Error("Expected healthy once the stream exists")
	}
}

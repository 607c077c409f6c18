// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/vesselwatch/internal/collector"
	"github.com/tomtom215/vesselwatch/internal/logging"
)

var (
	// ErrAlreadyRegistered is returned when a source name is added twice.
	ErrAlreadyRegistered = errors.New("source already registered")

	// ErrAlreadyStarted is returned when Add is called after StartAll.
	ErrAlreadyStarted = errors.New("manager already started")
)

// Manager owns the set of adapter runners: registration before startup,
// supervised startup, bounded shutdown, and aggregated status.
//
// The manager does not run the runners itself; it hands them to the ingest
// layer of the Tree, which restarts crashed adapters independently.
type Manager struct {
	tree        *Tree
	stopTimeout time.Duration

	mu      sync.RWMutex
	runners map[string]*managedRunner
	order   []string
	started bool
}

type managedRunner struct {
	runner  *collector.Runner
	token   suture.ServiceToken
	running bool
}

// NewManager creates a manager over the given tree. stopTimeout is the
// default per-adapter shutdown grace period.
func NewManager(tree *Tree, stopTimeout time.Duration) *Manager {
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	return &Manager{
		tree:        tree,
		stopTimeout: stopTimeout,
		runners:     make(map[string]*managedRunner),
	}
}

// Add registers a runner. All adapters must be registered before StartAll;
// the adapter set is fixed for the life of the process.
func (m *Manager) Add(r *collector.Runner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	name := r.Name()
	if _, ok := m.runners[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	m.runners[name] = &managedRunner{runner: r}
	m.order = append(m.order, name)
	return nil
}

// StartAll hands every registered runner to the supervisor and returns
// immediately; the adapters run in supervised goroutines. The tree must
// already be serving.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.started = true

	for _, name := range m.order {
		mr := m.runners[name]
		mr.token = m.tree.AddIngestService(mr.runner)
		mr.running = true
		logging.Info().Str("source", name).Msg("Collector scheduled")
	}
	return nil
}

// StopAll removes every runner from the supervisor, waiting up to timeout
// for each to drain. A runner that misses its deadline has already had its
// context canceled; it is logged and marked stopped rather than holding up
// the rest of shutdown. Pass timeout <= 0 to use the configured default.
//
// The lock covers only the bookkeeping, not the waits, so Status keeps
// answering while adapters drain.
func (m *Manager) StopAll(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = m.stopTimeout
	}

	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	var stopping []*managedRunner
	for _, name := range m.order {
		mr := m.runners[name]
		if !mr.running {
			continue
		}
		mr.running = false
		stopping = append(stopping, mr)
	}
	m.started = false
	m.mu.Unlock()

	var firstErr error
	for _, mr := range stopping {
		name := mr.runner.Name()

		err := m.tree.RemoveIngestServiceAndWait(mr.token, timeout)
		switch {
		case err == nil:
			logging.Info().Str("source", name).Msg("Collector stopped")
		case errors.Is(err, suture.ErrTimeout):
			logging.Warn().
				Str("source", name).
				Dur("timeout", timeout).
				Msg("Collector did not stop in time, forcing")
			mr.runner.MarkStopped()
		default:
			logging.Error().Err(err).Str("source", name).Msg("Collector removal failed")
			mr.runner.MarkStopped()
			if firstErr == nil {
				firstErr = fmt.Errorf("stop %s: %w", name, err)
			}
		}

		if ctx.Err() != nil && firstErr == nil {
			firstErr = ctx.Err()
		}
	}

	return firstErr
}

// Status returns a point-in-time snapshot of every adapter, keyed by
// source name.
func (m *Manager) Status() map[string]collector.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]collector.Snapshot, len(m.runners))
	for name, mr := range m.runners {
		out[name] = mr.runner.Stats().Snapshot()
	}
	return out
}

// Names returns the registered source names in registration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

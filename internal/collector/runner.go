// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vesselwatch/internal/logging"
	"github.com/tomtom215/vesselwatch/internal/metrics"
	"github.com/tomtom215/vesselwatch/internal/sink"
)

// Runner binds one Source to the sink and owns the adapter's run loop.
// It implements suture.Service so the supervisor can restart it if the
// loop ever returns unexpectedly.
//
// Per-record behavior:
//   - parse failure: counted as an error, record dropped, loop continues
//   - publish failure: logged and counted in prometheus, loop continues
//   - success: forwarded and counted as a request
type Runner struct {
	source Source
	sink   sink.Sink
	stats  *Stats
	logger zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner for the given source and sink.
func NewRunner(source Source, s sink.Sink) *Runner {
	return &Runner{
		source: source,
		sink:   s,
		stats:  NewStats(),
		logger: logging.With().Str("component", "collector").Str("source", source.Name()).Logger(),
	}
}

// Name returns the source name this runner serves.
func (r *Runner) Name() string {
	return r.source.Name()
}

// Stats returns the runner's live counters.
func (r *Runner) Stats() *Stats {
	return r.stats
}

// String implements fmt.Stringer for supervisor logs.
func (r *Runner) String() string {
	return "collector-" + r.source.Name()
}

// Serve implements suture.Service. It runs the collect/parse/publish loop
// until ctx is canceled.
func (r *Runner) Serve(ctx context.Context) error {
	name := r.source.Name()

	r.stats.setRunning(true)
	metrics.SetRunning(name, true)
	r.logger.Info().Msg("Collector started")

	defer func() {
		r.stats.setRunning(false)
		metrics.SetRunning(name, false)
		r.logger.Info().Msg("Collector stopped")
	}()

	for raw := range r.source.Collect(ctx) {
		pos, err := r.source.Parse(raw)
		if err != nil {
			r.stats.markError()
			metrics.RecordParseError(name)
			r.logger.Debug().Err(err).Msg("Dropped unparseable message")
			continue
		}

		if pos.ReceivedAt.IsZero() {
			pos.ReceivedAt = time.Now().UTC()
		}

		if err := r.sink.Publish(ctx, pos); err != nil {
			r.logger.Warn().Err(err).Int64("mmsi", pos.MMSI).Msg("Publish failed, record dropped")
		}

		r.stats.markRequest()
		metrics.RecordCollected(name)
	}

	return ctx.Err()
}

// Start launches the run loop in its own goroutine, for running a single
// adapter without a supervisor. It is a no-op when already started.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go func() {
		defer close(done)
		_ = r.Serve(runCtx)
	}()
}

// Stop cancels a Start-ed run loop and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// MarkStopped forces the externally visible running flag to false.
// The supervisor calls this when a shutdown wait times out and the adapter
// has already had its context canceled.
func (r *Runner) MarkStopped() {
	r.stats.setRunning(false)
	metrics.SetRunning(r.source.Name(), false)
}

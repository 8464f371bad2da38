// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/m15lab/classbridge/internal/delivery"
	"github.com/m15lab/classbridge/internal/metrics"
	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/store"
)

// Config holds poller configuration.
type Config struct {
	// PollInterval is how often to check for due reminders.
	PollInterval time.Duration

	// MaxConcurrent bounds parallel deliveries within one cycle.
	MaxConcurrent int

	// ExecutionTimeout is the maximum time allowed for one delivery.
	ExecutionTimeout time.Duration

	// Enabled controls whether the poller is active.
	Enabled bool
}

// DefaultConfig returns the default poller configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:     time.Minute,
		MaxConcurrent:    5,
		ExecutionTimeout: 30 * time.Second,
		Enabled:          true,
	}
}

// Poller periodically selects due reminders and delivers them. It runs
// concurrently with request handling as a second, unsynchronized writer
// against the same event store; the store serializes per-event updates.
type Poller struct {
	store        store.EventStore
	orchestrator *delivery.Orchestrator
	loc          *time.Location
	logger       zerolog.Logger
	config       Config

	// Runtime state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPoller creates a reminder poller.
func NewPoller(st store.EventStore, orch *delivery.Orchestrator, loc *time.Location, logger *zerolog.Logger, config Config) *Poller {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 5
	}
	if config.ExecutionTimeout <= 0 {
		config.ExecutionTimeout = 30 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Poller{
		store:        st,
		orchestrator: orch,
		loc:          loc,
		logger:       logger.With().Str("component", "reminder-poller").Logger(),
		config:       config,
	}
}

// Start begins the poll loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	if !p.config.Enabled {
		p.logger.Info().Msg("Reminder poller disabled")
		go func() {
			defer close(p.doneCh)
			<-p.stopCh
		}()
		return nil
	}

	p.logger.Info().
		Dur("poll_interval", p.config.PollInterval).
		Int("max_concurrent", p.config.MaxConcurrent).
		Msg("Starting reminder poller")

	go p.run(ctx)
	return nil
}

// Stop stops the poll loop and waits for it to complete.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.logger.Info().Msg("Stopping reminder poller...")
	close(p.stopCh)
	<-p.doneCh

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info().Msg("Reminder poller stopped")
	return nil
}

// run is the main poll loop.
func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	p.Poll(ctx, time.Now())

	for {
		select {
		case <-ticker.C:
			p.Poll(ctx, time.Now())
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Poll runs one reminder cycle at the given instant. Exported so tests
// and administrative triggers can run a cycle without the loop.
func (p *Poller) Poll(ctx context.Context, now time.Time) {
	start := time.Now()

	due, err := DueSet(ctx, p.store, now, p.loc)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to select due reminders")
		metrics.RecordPollCycle(time.Since(start), 0, err)
		return
	}
	metrics.RecordPollCycle(time.Since(start), len(due), nil)

	if len(due) == 0 {
		p.logger.Debug().Msg("No reminders due")
		return
	}

	p.logger.Info().Int("count", len(due)).Msg("Found due reminders")

	sem := make(chan struct{}, p.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i := range due {
		wg.Add(1)
		sem <- struct{}{}

		go func(ev *models.Event) {
			defer wg.Done()
			defer func() { <-sem }()

			sendCtx, cancel := context.WithTimeout(ctx, p.config.ExecutionTimeout)
			defer cancel()

			p.deliver(sendCtx, ev)
		}(due[i])
	}

	wg.Wait()
}

// deliver sends one reminder and marks it sent on success. On failure
// the flag stays false so the event is retried next cycle.
func (p *Poller) deliver(ctx context.Context, ev *models.Event) {
	res := p.orchestrator.Send(ctx, ev, "reminder")
	if !res.OK {
		p.logger.Warn().
			Int64("event_id", ev.ID).
			Str("error_code", res.ErrorCode).
			Str("error", res.ErrorMessage).
			Msg("Reminder delivery failed, will retry next cycle")
		return
	}

	if _, err := p.store.Update(ctx, ev.ID, func(e *models.Event) error {
		e.ReminderSent = true
		return nil
	}); err != nil {
		// The reminder went out; if this write is lost the event will be
		// re-sent next cycle, which at-least-once delivery permits
		p.logger.Error().Err(err).Int64("event_id", ev.ID).Msg("Failed to mark reminder sent")
	}
}

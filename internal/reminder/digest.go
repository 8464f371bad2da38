// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/m15lab/classbridge/internal/delivery"
	"github.com/m15lab/classbridge/internal/eventtype"
	"github.com/m15lab/classbridge/internal/format"
	"github.com/m15lab/classbridge/internal/metrics"
	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/store"
)

// DigestConfig holds digest service configuration.
type DigestConfig struct {
	// Enabled controls whether the digest runs.
	Enabled bool

	// Cron is the 5-field schedule, evaluated in the service timezone.
	Cron string

	// ChatID receives the digest. Zero disables sending.
	ChatID int64

	// ThreadID optionally targets a topic thread.
	ThreadID int64
}

// Digest sends a daily summary of the next day's events to one chat.
// Unlike reminders it carries no per-event state: a missed run is simply
// skipped.
type Digest struct {
	store     store.EventStore
	relay     delivery.Relay
	formatter *format.Formatter
	schedule  *CronSchedule
	loc       *time.Location
	logger    zerolog.Logger
	config    DigestConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewDigest creates the digest service.
func NewDigest(st store.EventStore, relay delivery.Relay, formatter *format.Formatter, loc *time.Location, logger *zerolog.Logger, config DigestConfig) (*Digest, error) {
	if config.Cron == "" {
		config.Cron = "0 20 * * *"
	}
	schedule, err := ParseCron(config.Cron)
	if err != nil {
		return nil, fmt.Errorf("parse digest cron %q: %w", config.Cron, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Digest{
		store:     st,
		relay:     relay,
		formatter: formatter,
		schedule:  schedule,
		loc:       loc,
		logger:    logger.With().Str("component", "daily-digest").Logger(),
		config:    config,
	}, nil
}

// Start begins the digest loop.
func (d *Digest) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("digest already running")
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	if !d.config.Enabled || d.config.ChatID == 0 {
		d.logger.Info().Msg("Daily digest disabled")
		go func() {
			defer close(d.doneCh)
			<-d.stopCh
		}()
		return nil
	}

	d.logger.Info().Str("cron", d.config.Cron).Int64("chat_id", d.config.ChatID).Msg("Starting daily digest")
	go d.run(ctx)
	return nil
}

// Stop stops the digest loop and waits for it to complete.
func (d *Digest) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	close(d.stopCh)
	<-d.doneCh

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

func (d *Digest) run(ctx context.Context) {
	defer close(d.doneCh)

	for {
		next := d.schedule.NextRun(time.Now(), d.loc)
		if next.IsZero() {
			d.logger.Error().Msg("Digest cron never fires, stopping")
			return
		}
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			d.Run(ctx, next)
		case <-d.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// Run sends the digest for the day after the given instant. Exported so
// an administrative trigger can fire it outside the schedule.
func (d *Digest) Run(ctx context.Context, now time.Time) {
	tomorrow := models.DateOf(now.In(d.loc).AddDate(0, 0, 1))

	events, err := d.store.List(ctx, store.Filter{Date: &tomorrow})
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to list events for digest")
		metrics.RecordDigestRun("failed")
		return
	}
	if len(events) == 0 {
		d.logger.Debug().Str("date", tomorrow.String()).Msg("No events for digest")
		metrics.RecordDigestRun("empty")
		return
	}

	text := d.buildText(tomorrow, events)

	var threadID *int64
	if d.config.ThreadID != 0 {
		id := d.config.ThreadID
		threadID = &id
	}

	res := d.relay.Send(ctx, d.config.ChatID, threadID, text)
	if !res.OK() {
		d.logger.Error().
			Str("error_code", res.ErrorCode).
			Str("error", res.ErrorMessage).
			Msg("Digest delivery failed")
		metrics.RecordDigestRun("failed")
		return
	}

	d.logger.Info().Int("events", len(events)).Int64("message_id", res.MessageID).Msg("Digest sent")
	metrics.RecordDigestRun("sent")
}

// buildText renders the digest message. Events sort by start time, with
// undated times last, then by id for a stable order.
func (d *Digest) buildText(day models.CivilDate, events []*models.Event) string {
	sorted := make([]*models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, oki := sorted[i].Instant(d.loc)
		tj, okj := sorted[j].Instant(d.loc)
		if oki != okj {
			return oki
		}
		if oki && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "#digest Events for %s\n", day.String())
	for _, ev := range sorted {
		sb.WriteString("\n")
		if ev.Time != nil {
			fmt.Fprintf(&sb, "%s ", ev.Time.String())
		}
		typ := eventtype.Canonicalize(ev.Type)
		fmt.Fprintf(&sb, "[%s]", typ)
		if tag := format.SubjectTag(ev.Subject); tag != "" {
			fmt.Fprintf(&sb, " %s", tag)
		}
		if title := firstLine(ev.Title); title != "" {
			fmt.Fprintf(&sb, " %s", title)
		} else if body := firstLine(ev.Body); body != "" {
			fmt.Fprintf(&sb, " %s", body)
		}
	}
	return sb.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

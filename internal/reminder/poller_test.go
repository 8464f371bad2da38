// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m15lab/classbridge/internal/delivery"
	"github.com/m15lab/classbridge/internal/format"
	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/routing"
	"github.com/m15lab/classbridge/internal/store"
)

// scriptedRelay fails the first failFirst sends, then succeeds.
type scriptedRelay struct {
	mu        sync.Mutex
	calls     int
	failFirst int
}

func (r *scriptedRelay) Send(ctx context.Context, chatID int64, threadID *int64, text string) *delivery.RelayResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failFirst {
		return &delivery.RelayResult{ErrorCode: delivery.ErrorCodeServerError, ErrorMessage: "internal", IsTransient: true}
	}
	return &delivery.RelayResult{MessageID: int64(9000 + r.calls)}
}

func (r *scriptedRelay) CreateTopic(ctx context.Context, chatID int64, name string) (int64, error) {
	return 0, nil
}

func (r *scriptedRelay) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestPoller(t *testing.T, relay delivery.Relay) (*Poller, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	table := routing.Table{DefaultChatID: -100}
	orch := delivery.NewOrchestrator(st, relay, table, format.New("https://cal.example.edu"))
	logger := logging.Logger()
	return NewPoller(st, orch, time.UTC, &logger, DefaultConfig()), st
}

func TestPollDeliversAndMarksSent(t *testing.T) {
	relay := &scriptedRelay{}
	p, st := newTestPoller(t, relay)
	ctx := context.Background()

	ev := &models.Event{Type: "homework", Date: datep(2024, 5, 10), Time: timep(9, 0), ReminderOffsetHours: 24}
	id, err := st.Create(ctx, ev)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	p.Poll(ctx, time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC))

	if relay.callCount() != 1 {
		t.Fatalf("relay calls = %d, want 1", relay.callCount())
	}
	got, err := st.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.ReminderSent {
		t.Error("successful reminder must mark the flag")
	}
	if got.SentMessageID == nil {
		t.Error("delivery must record the message id")
	}
}

func TestPollSkipsNotYetDue(t *testing.T) {
	relay := &scriptedRelay{}
	p, st := newTestPoller(t, relay)
	ctx := context.Background()

	ev := &models.Event{Type: "homework", Date: datep(2030, 1, 1), ReminderOffsetHours: 24}
	if _, err := st.Create(ctx, ev); err != nil {
		t.Fatalf("Create: %v", err)
	}

	p.Poll(ctx, time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC))
	if relay.callCount() != 0 {
		t.Errorf("relay calls = %d, want 0", relay.callCount())
	}
}

func TestPollRetriesFailedReminderNextCycle(t *testing.T) {
	relay := &scriptedRelay{failFirst: 1}
	p, st := newTestPoller(t, relay)
	ctx := context.Background()

	ev := &models.Event{Type: "homework", Date: datep(2024, 5, 10), ReminderOffsetHours: 24}
	id, err := st.Create(ctx, ev)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)

	// First cycle fails; the flag stays false
	p.Poll(ctx, now)
	got, _ := st.Get(ctx, id)
	if got.ReminderSent {
		t.Fatal("failed reminder must not be marked sent")
	}

	// Second cycle retries the same event and succeeds
	p.Poll(ctx, now.Add(time.Minute))
	got, _ = st.Get(ctx, id)
	if !got.ReminderSent {
		t.Fatal("retried reminder must be marked sent")
	}
	if relay.callCount() != 2 {
		t.Errorf("relay calls = %d, want 2", relay.callCount())
	}
}

func TestPollDoesNotResendMarkedEvents(t *testing.T) {
	relay := &scriptedRelay{}
	p, st := newTestPoller(t, relay)
	ctx := context.Background()

	ev := &models.Event{Type: "homework", Date: datep(2024, 5, 10), ReminderOffsetHours: 24}
	if _, err := st.Create(ctx, ev); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)
	p.Poll(ctx, now)
	p.Poll(ctx, now.Add(time.Minute))

	if relay.callCount() != 1 {
		t.Errorf("relay calls = %d, want exactly 1 across two cycles", relay.callCount())
	}
}

func TestPollerStartStop(t *testing.T) {
	relay := &scriptedRelay{}
	p, _ := newTestPoller(t, relay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start must fail")
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stop is idempotent
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestPollerDisabled(t *testing.T) {
	relay := &scriptedRelay{}
	st := store.NewMemoryStore()
	orch := delivery.NewOrchestrator(st, relay, routing.Table{DefaultChatID: -1}, format.New("https://cal.example.edu"))
	logger := logging.Logger()

	cfg := DefaultConfig()
	cfg.Enabled = false
	p := NewPoller(st, orch, time.UTC, &logger, cfg)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if relay.callCount() != 0 {
		t.Error("disabled poller must not deliver")
	}
}

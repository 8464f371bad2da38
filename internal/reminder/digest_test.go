// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package reminder

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m15lab/classbridge/internal/delivery"
	"github.com/m15lab/classbridge/internal/format"
	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/store"
)

// captureRelay records the last sent message.
type captureRelay struct {
	mu       sync.Mutex
	calls    int
	lastChat int64
	lastText string
}

func (r *captureRelay) Send(ctx context.Context, chatID int64, threadID *int64, text string) *delivery.RelayResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastChat = chatID
	r.lastText = text
	return &delivery.RelayResult{MessageID: 1}
}

func (r *captureRelay) CreateTopic(ctx context.Context, chatID int64, name string) (int64, error) {
	return 0, nil
}

func newTestDigest(t *testing.T, st store.EventStore, relay delivery.Relay) *Digest {
	t.Helper()
	logger := logging.Logger()
	d, err := NewDigest(st, relay, format.New("https://cal.example.edu"), time.UTC, &logger, DigestConfig{
		Enabled: true,
		Cron:    "0 20 * * *",
		ChatID:  -100,
	})
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	return d
}

func TestDigestRunSendsTomorrowsEvents(t *testing.T) {
	st := store.NewMemoryStore()
	relay := &captureRelay{}
	d := newTestDigest(t, st, relay)
	ctx := context.Background()

	// Tomorrow relative to the run instant
	if _, err := st.Create(ctx, &models.Event{
		Type: "homework", Subject: "Algebra", Body: "Read ch.3",
		Date: datep(2026, 9, 15), Time: timep(9, 0),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := st.Create(ctx, &models.Event{
		Type: "schedule", Subject: "Physics",
		Date: datep(2026, 9, 15), Time: timep(11, 30),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// A different day must not appear
	if _, err := st.Create(ctx, &models.Event{
		Type: "homework", Subject: "Chemistry", Date: datep(2026, 9, 16),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	d.Run(ctx, time.Date(2026, 9, 14, 20, 0, 0, 0, time.UTC))

	if relay.calls != 1 {
		t.Fatalf("relay calls = %d, want 1", relay.calls)
	}
	if relay.lastChat != -100 {
		t.Errorf("chat = %d, want -100", relay.lastChat)
	}
	text := relay.lastText
	if !strings.Contains(text, "2026-09-15") {
		t.Errorf("digest missing date: %q", text)
	}
	if !strings.Contains(text, "#Algebra") || !strings.Contains(text, "#Physics") {
		t.Errorf("digest missing subjects: %q", text)
	}
	if strings.Contains(text, "Chemistry") {
		t.Errorf("digest leaked another day's event: %q", text)
	}
	// Timed events sort by clock time
	if strings.Index(text, "09:00") > strings.Index(text, "11:30") {
		t.Errorf("digest not ordered by time: %q", text)
	}
}

func TestDigestRunEmptyDaySendsNothing(t *testing.T) {
	st := store.NewMemoryStore()
	relay := &captureRelay{}
	d := newTestDigest(t, st, relay)

	d.Run(context.Background(), time.Date(2026, 9, 14, 20, 0, 0, 0, time.UTC))
	if relay.calls != 0 {
		t.Errorf("relay calls = %d, want 0 for an empty day", relay.calls)
	}
}

func TestDigestDefaultCronResolved(t *testing.T) {
	logger := logging.Logger()
	d, err := NewDigest(store.NewMemoryStore(), &captureRelay{}, format.New("x"), time.UTC, &logger, DigestConfig{
		Enabled: true,
		ChatID:  -1,
	})
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	if d.config.Cron != "0 20 * * *" {
		t.Errorf("cron = %q, want the 20:00 default", d.config.Cron)
	}
}

func TestDigestRejectsBadCron(t *testing.T) {
	logger := logging.Logger()
	_, err := NewDigest(store.NewMemoryStore(), &captureRelay{}, format.New("x"), time.UTC, &logger, DigestConfig{
		Enabled: true,
		Cron:    "not a cron",
		ChatID:  -1,
	})
	if err == nil {
		t.Fatal("expected error for invalid cron")
	}
}

func TestDigestStartStopDisabled(t *testing.T) {
	logger := logging.Logger()
	d, err := NewDigest(store.NewMemoryStore(), &captureRelay{}, format.New("x"), time.UTC, &logger, DigestConfig{
		Enabled: false,
		Cron:    "0 20 * * *",
	})
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

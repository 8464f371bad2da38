// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/store"
)

func datep(y, m, d int) *models.CivilDate {
	return &models.CivilDate{Year: y, Month: time.Month(m), Day: d}
}

func timep(h, min int) *models.ClockTime {
	return &models.ClockTime{Hour: h, Minute: min}
}

func TestDueBoundaryInclusive(t *testing.T) {
	// Event at 2024-05-10 09:00 with 24h offset reminds at 2024-05-09 09:00
	ev := &models.Event{
		ID:                  1,
		Type:                "homework",
		Date:                datep(2024, 5, 10),
		Time:                timep(9, 0),
		ReminderOffsetHours: 24,
	}

	exactly := time.Date(2024, 5, 9, 9, 0, 0, 0, time.UTC)

	if got := Due([]*models.Event{ev}, exactly, time.UTC); len(got) != 1 {
		t.Error("event due exactly at the boundary must be included")
	}
	if got := Due([]*models.Event{ev}, exactly.Add(-time.Second), time.UTC); len(got) != 0 {
		t.Error("event must not be due before the boundary")
	}
	if got := Due([]*models.Event{ev}, exactly.Add(time.Hour), time.UTC); len(got) != 1 {
		t.Error("event past the boundary must be included")
	}
}

func TestDueMidnightDefault(t *testing.T) {
	// No time set: the event instant is midnight of its date
	ev := &models.Event{
		ID:                  1,
		Type:                "homework",
		Date:                datep(2024, 5, 10),
		ReminderOffsetHours: 24,
	}

	remindAt := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
	if got := Due([]*models.Event{ev}, remindAt, time.UTC); len(got) != 1 {
		t.Error("midnight-default event must be due at date minus offset")
	}
	if got := Due([]*models.Event{ev}, remindAt.Add(-time.Minute), time.UTC); len(got) != 0 {
		t.Error("midnight-default event must not be due a minute early")
	}
}

func TestDueExcludesUndatedAndSent(t *testing.T) {
	now := time.Date(2024, 5, 9, 12, 0, 0, 0, time.UTC)
	events := []*models.Event{
		{ID: 1, Date: nil, ReminderOffsetHours: 24},
		{ID: 2, Date: datep(2024, 5, 9), ReminderOffsetHours: 24, ReminderSent: true},
		{ID: 3, Date: datep(2024, 5, 9), ReminderOffsetHours: 24},
	}

	got := Due(events, now, time.UTC)
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("Due = %v events, want only event 3", len(got))
	}
}

func TestDueRespectsTimezone(t *testing.T) {
	kyiv, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	ev := &models.Event{
		ID:                  1,
		Date:                datep(2024, 5, 10),
		Time:                timep(9, 0),
		ReminderOffsetHours: 24,
	}

	// 09:00 Kyiv is 06:00 UTC in May
	utcBefore := time.Date(2024, 5, 9, 5, 59, 0, 0, time.UTC)
	utcAfter := time.Date(2024, 5, 9, 6, 0, 0, 0, time.UTC)

	if got := Due([]*models.Event{ev}, utcBefore, kyiv); len(got) != 0 {
		t.Error("must not be due before local boundary")
	}
	if got := Due([]*models.Event{ev}, utcAfter, kyiv); len(got) != 1 {
		t.Error("must be due at local boundary")
	}
}

func TestDueSetScansStore(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	due := &models.Event{Type: "homework", Date: datep(2024, 5, 9), ReminderOffsetHours: 24}
	if _, err := st.Create(ctx, due); err != nil {
		t.Fatalf("Create: %v", err)
	}
	future := &models.Event{Type: "homework", Date: datep(2030, 1, 1), ReminderOffsetHours: 24}
	if _, err := st.Create(ctx, future); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2024, 5, 9, 12, 0, 0, 0, time.UTC)
	got, err := DueSet(ctx, st, now, time.UTC)
	if err != nil {
		t.Fatalf("DueSet: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Errorf("DueSet returned %d events, want the one past-due event", len(got))
	}
}

func TestDueSetStoreFault(t *testing.T) {
	st := store.NewMemoryStore()
	st.FailAll = true

	if _, err := DueSet(context.Background(), st, time.Now(), time.UTC); err == nil {
		t.Fatal("expected store fault to propagate")
	}
}

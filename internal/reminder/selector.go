// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package reminder selects events whose reminder window has opened and
// drives their delivery on a fixed poll interval. The poller is the only
// automatic-retry mechanism in the system: a failed reminder stays a
// candidate every cycle until it succeeds or an administrator intervenes.
package reminder

import (
	"context"
	"time"

	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/store"
)

// Due filters events whose reminder instant has been reached. An event
// qualifies when combine(date, time or midnight) minus its offset is at
// or before now; the boundary is inclusive. Events without a date can
// never qualify.
func Due(events []*models.Event, now time.Time, loc *time.Location) []*models.Event {
	due := make([]*models.Event, 0, len(events))
	for _, ev := range events {
		if ev.ReminderSent {
			continue
		}
		remindAt, ok := ev.RemindAt(loc)
		if !ok {
			continue
		}
		if !remindAt.After(now) {
			due = append(due, ev)
		}
	}
	return due
}

// DueSet scans the store for unsent dated events and returns the ones
// due at now, in store iteration order.
func DueSet(ctx context.Context, st store.EventStore, now time.Time, loc *time.Location) ([]*models.Event, error) {
	candidates, err := st.UnsentReminders(ctx)
	if err != nil {
		return nil, err
	}
	return Due(candidates, now, loc), nil
}

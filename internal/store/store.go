// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package store provides durable persistence for class events. The only
// production implementation is backed by BadgerDB; an in-memory variant
// exists for tests.
package store

import (
	"context"
	"errors"

	"github.com/m15lab/classbridge/internal/eventtype"
	"github.com/m15lab/classbridge/internal/models"
)

// Sentinel errors returned by EventStore implementations.
var (
	// ErrEventNotFound is returned when the requested event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrStoreFault wraps unrecoverable storage engine failures. Callers
	// should treat it as fatal for the current operation and report the
	// event unmodified.
	ErrStoreFault = errors.New("event store fault")
)

// Filter narrows List and DeleteWhere operations. Zero-valued fields are
// ignored; combining fields intersects them.
type Filter struct {
	// Date matches events on an exact calendar day.
	Date *models.CivilDate

	// Year and Month together match a calendar month. Both must be set.
	Year  int
	Month int

	// Type matches the event's canonical type, so legacy raw labels still
	// match their canonical filter value.
	Type string

	// SeriesID matches all events expanded from one weekly series.
	SeriesID string
}

// Matches reports whether an event satisfies the filter.
func (f Filter) Matches(ev *models.Event) bool {
	if f.Date != nil {
		if ev.Date == nil || !ev.Date.Equal(*f.Date) {
			return false
		}
	}
	if f.Year != 0 && f.Month != 0 {
		if ev.Date == nil || ev.Date.Year != f.Year || int(ev.Date.Month) != f.Month {
			return false
		}
	}
	if f.Type != "" && eventtype.Canonicalize(ev.Type) != f.Type {
		return false
	}
	if f.SeriesID != "" && ev.SeriesID != f.SeriesID {
		return false
	}
	return true
}

// EventStore is the persistence contract for class events.
//
// Update runs the mutator under a per-event lock so concurrent updates to
// the same event serialize instead of clobbering each other. The mutator
// receives a private copy; returning an error aborts without writing.
//
// The reminder-sent flag is monotonic: once an event has been marked sent,
// no Update call can clear it.
type EventStore interface {
	// Create persists a new event and returns its assigned ID.
	Create(ctx context.Context, ev *models.Event) (int64, error)

	// Get returns the event with the given ID or ErrEventNotFound.
	Get(ctx context.Context, id int64) (*models.Event, error)

	// List returns all events matching the filter, ordered by ID.
	List(ctx context.Context, f Filter) ([]*models.Event, error)

	// Update applies the mutator to the stored event and persists the
	// result. Returns the updated event.
	Update(ctx context.Context, id int64, mutate func(*models.Event) error) (*models.Event, error)

	// Delete removes one event. Deleting a missing event is not an error.
	Delete(ctx context.Context, id int64) error

	// DeleteWhere removes all events matching the filter and returns the
	// number removed. An empty filter is rejected.
	DeleteWhere(ctx context.Context, f Filter) (int, error)

	// UnsentReminders returns every event that has a date set and has not
	// yet been marked reminder-sent. Undated events are never returned.
	UnsentReminders(ctx context.Context) ([]*models.Event, error)

	// Count returns the total number of stored events.
	Count(ctx context.Context) (int, error)

	// Close releases underlying resources.
	Close() error
}

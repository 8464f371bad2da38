// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/m15lab/classbridge/internal/models"
)

// MemoryStore is an in-memory EventStore for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.Mutex
	events map[int64]*models.Event
	nextID int64

	// FailAll makes every operation return ErrStoreFault. Tests use it to
	// exercise storage failure paths.
	FailAll bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[int64]*models.Event), nextID: 1}
}

func copyEvent(ev *models.Event) *models.Event {
	c := *ev
	return &c
}

func (s *MemoryStore) Create(ctx context.Context, ev *models.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return 0, ErrStoreFault
	}

	id := s.nextID
	s.nextID++
	ev.ID = id
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.events[id] = copyEvent(ev)
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return nil, ErrStoreFault
	}

	ev, ok := s.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return copyEvent(ev), nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return nil, ErrStoreFault
	}

	var out []*models.Event
	for _, ev := range s.events {
		if f.Matches(ev) {
			out = append(out, copyEvent(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, mutate func(*models.Event) error) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return nil, ErrStoreFault
	}

	ev, ok := s.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	updated := copyEvent(ev)
	wasSent := updated.ReminderSent
	if err := mutate(updated); err != nil {
		return nil, err
	}
	updated.ID = id
	if wasSent {
		updated.ReminderSent = true
	}
	s.events[id] = copyEvent(updated)
	return updated, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return ErrStoreFault
	}
	delete(s.events, id)
	return nil
}

func (s *MemoryStore) DeleteWhere(ctx context.Context, f Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return 0, ErrStoreFault
	}
	if f == (Filter{}) {
		return 0, errors.New("refusing to delete with empty filter")
	}

	deleted := 0
	for id, ev := range s.events {
		if f.Matches(ev) {
			delete(s.events, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) UnsentReminders(ctx context.Context) ([]*models.Event, error) {
	all, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Event, 0, len(all))
	for _, ev := range all {
		if !ev.ReminderSent && ev.Date != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return 0, ErrStoreFault
	}
	return len(s.events), nil
}

func (s *MemoryStore) Close() error { return nil }

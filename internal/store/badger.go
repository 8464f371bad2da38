// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/metrics"
	"github.com/m15lab/classbridge/internal/models"
)

// Key layout in BadgerDB. Event keys embed a zero-padded ID so iteration
// order matches creation order.
const (
	eventKeyPrefix = "event:"
	eventKeyFmt    = "event:%012d"
	seqKey         = "seq:event"
)

// Sequence IDs are reserved in small batches for write throughput.
const seqBandwidth = 64

// lockStripes bounds memory for per-event update serialization. Two events
// hashing to the same stripe serialize unnecessarily, which is harmless.
const lockStripes = 64

// BadgerStore implements EventStore on top of BadgerDB with JSON-encoded
// values.
type BadgerStore struct {
	db    *badger.DB
	seq   *badger.Sequence
	locks [lockStripes]sync.Mutex
}

// OpenBadger opens (or creates) the event store at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB internal logs
	// Event payloads are tiny; keep value log files small
	opts.ValueLogFileSize = 16 << 20 // 16MB
	// Sync writes for durability
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for events: %w", err)
	}

	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open event id sequence: %w", err)
	}

	return &BadgerStore{db: db, seq: seq}, nil
}

func eventKey(id int64) []byte {
	return []byte(fmt.Sprintf(eventKeyFmt, id))
}

func (s *BadgerStore) lockFor(id int64) *sync.Mutex {
	return &s.locks[uint64(id)%lockStripes]
}

// Create persists a new event and returns its assigned ID.
func (s *BadgerStore) Create(ctx context.Context, ev *models.Event) (int64, error) {
	start := time.Now()

	next, err := s.seq.Next()
	if err != nil {
		metrics.RecordStoreOp("create", time.Since(start), err)
		return 0, fmt.Errorf("%w: next event id: %v", ErrStoreFault, err)
	}
	// Sequence starts at 0; IDs start at 1
	id := int64(next) + 1

	ev.ID = id
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		metrics.RecordStoreOp("create", time.Since(start), err)
		return 0, fmt.Errorf("marshal event: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(id), data)
	})
	metrics.RecordStoreOp("create", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("%w: create event %d: %v", ErrStoreFault, id, err)
	}

	logging.Debug().Int64("event_id", id).Str("type", ev.Type).Msg("Event created")
	return id, nil
}

// Get returns the event with the given ID.
func (s *BadgerStore) Get(ctx context.Context, id int64) (*models.Event, error) {
	start := time.Now()
	var ev models.Event

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: get event %d: %v", ErrStoreFault, id, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ev)
		})
	})
	metrics.RecordStoreOp("get", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// List returns all events matching the filter, ordered by ID.
func (s *BadgerStore) List(ctx context.Context, f Filter) ([]*models.Event, error) {
	start := time.Now()
	var out []*models.Event

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(eventKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ev models.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			})
			if err != nil {
				return fmt.Errorf("decode event at %s: %w", it.Item().Key(), err)
			}
			if f.Matches(&ev) {
				e := ev
				out = append(out, &e)
			}
		}
		return nil
	})
	metrics.RecordStoreOp("list", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrStoreFault, err)
	}
	return out, nil
}

// Update applies the mutator under a per-event lock. The reminder-sent
// flag is monotonic: a mutator cannot clear it once set.
func (s *BadgerStore) Update(ctx context.Context, id int64, mutate func(*models.Event) error) (*models.Event, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()

	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	wasSent := ev.ReminderSent
	if err := mutate(ev); err != nil {
		return nil, err
	}
	ev.ID = id
	if wasSent {
		ev.ReminderSent = true
	}

	data, err := json.Marshal(ev)
	if err != nil {
		metrics.RecordStoreOp("update", time.Since(start), err)
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(id), data)
	})
	metrics.RecordStoreOp("update", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: update event %d: %v", ErrStoreFault, id, err)
	}
	return ev, nil
}

// Delete removes one event. Deleting a missing event is not an error.
func (s *BadgerStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(eventKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	metrics.RecordStoreOp("delete", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%w: delete event %d: %v", ErrStoreFault, id, err)
	}
	return nil
}

// DeleteWhere removes all events matching the filter.
func (s *BadgerStore) DeleteWhere(ctx context.Context, f Filter) (int, error) {
	if f == (Filter{}) {
		return 0, errors.New("refusing to delete with empty filter")
	}

	matched, err := s.List(ctx, f)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	deleted := 0
	// Batch deletes in one transaction per chunk to stay under badger's
	// transaction size limit.
	const chunk = 256
	for i := 0; i < len(matched); i += chunk {
		end := i + chunk
		if end > len(matched) {
			end = len(matched)
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, ev := range matched[i:end] {
				if err := txn.Delete(eventKey(ev.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}
			return nil
		})
		if err != nil {
			metrics.RecordStoreOp("delete_where", time.Since(start), err)
			return deleted, fmt.Errorf("%w: bulk delete: %v", ErrStoreFault, err)
		}
		deleted += end - i
	}
	metrics.RecordStoreOp("delete_where", time.Since(start), nil)
	return deleted, nil
}

// UnsentReminders returns dated events not yet marked reminder-sent.
func (s *BadgerStore) UnsentReminders(ctx context.Context) ([]*models.Event, error) {
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

// Count returns the total number of stored events.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(eventKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count events: %v", ErrStoreFault, err)
	}
	metrics.StoreEventsTotal.Set(float64(count))
	return count, nil
}

// RunGC runs badger value log garbage collection until ctx is cancelled.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when nothing to do
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

// Close releases the ID sequence and closes the database.
func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release event id sequence")
	}
	return s.db.Close()
}

// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeLifecycle struct {
	started  atomic.Int32
	stopped  atomic.Int32
	startErr error
}

func (f *fakeLifecycle) Start(context.Context) error {
	f.started.Add(1)
	return f.startErr
}

func (f *fakeLifecycle) Stop() error {
	f.stopped.Add(1)
	return nil
}

func TestLifecycleServiceStartsAndStops(t *testing.T) {
	comp := &fakeLifecycle{}
	svc := NewLifecycleService("poller", comp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give Serve a moment to call Start before canceling.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if comp.started.Load() != 1 {
		t.Errorf("started = %d, want 1", comp.started.Load())
	}
	if comp.stopped.Load() != 1 {
		t.Errorf("stopped = %d, want 1", comp.stopped.Load())
	}
}

func TestLifecycleServiceStartError(t *testing.T) {
	comp := &fakeLifecycle{startErr: errors.New("boom")}
	svc := NewLifecycleService("poller", comp)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve must propagate start errors")
	}
	if comp.stopped.Load() != 0 {
		t.Error("Stop must not be called when Start fails")
	}
}

func TestLoopServiceRunsUntilCancel(t *testing.T) {
	var ran atomic.Bool
	svc := NewLoopService("store-gc", func(ctx context.Context) {
		ran.Store(true)
		<-ctx.Done()
	})
	if got := svc.String(); got != "store-gc" {
		t.Errorf("String() = %q", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !ran.Load() {
		t.Error("loop never ran")
	}
}

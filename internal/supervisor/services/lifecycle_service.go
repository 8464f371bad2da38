// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package services

import (
	"context"
	"fmt"
)

// Lifecycle is the Start/Stop contract shared by the reminder poller and
// the digest scheduler.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
}

// LifecycleService adapts a Start/Stop component to suture's Serve contract:
// Start launches the component's own goroutine, Serve then blocks on the
// context and Stop waits for the component to drain.
type LifecycleService struct {
	name      string
	component Lifecycle
}

// NewLifecycleService wraps a Start/Stop component as a supervised service.
func NewLifecycleService(name string, component Lifecycle) *LifecycleService {
	return &LifecycleService{name: name, component: component}
}

// Serve implements suture.Service.
func (s *LifecycleService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start: %w", s.name, err)
	}
	<-ctx.Done()
	if err := s.component.Stop(); err != nil {
		return fmt.Errorf("%s stop: %w", s.name, err)
	}
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *LifecycleService) String() string {
	return s.name
}

// LoopService adapts a blocking loop function, such as the store's value-log
// garbage collector, to suture's Serve contract. The loop must return when
// its context is canceled.
type LoopService struct {
	name string
	run  func(ctx context.Context)
}

// NewLoopService wraps a context-bound loop as a supervised service.
func NewLoopService(name string, run func(ctx context.Context)) *LoopService {
	return &LoopService{name: name, run: run}
}

// Serve implements suture.Service.
func (s *LoopService) Serve(ctx context.Context) error {
	s.run(ctx)
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *LoopService) String() string {
	return s.name
}

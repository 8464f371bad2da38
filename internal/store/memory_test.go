// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package store

import (
	"context"
	"testing"

	"github.com/m15lab/classbridge/internal/models"
)

func TestMemoryStoreDeleteWhere(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sep14 := &models.CivilDate{Year: 2026, Month: 9, Day: 14}
	for i := 0; i < 2; i++ {
		if _, err := s.Create(ctx, testEvent("homework", sep14)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := s.Create(ctx, testEvent("exam", &models.CivilDate{Year: 2026, Month: 10, Day: 1})); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := s.DeleteWhere(ctx, Filter{Date: sep14})
	if err != nil {
		t.Fatalf("DeleteWhere: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
}

func TestMemoryStoreDeleteWhereEmptyFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, testEvent("homework", &models.CivilDate{Year: 2026, Month: 9, Day: 14})); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.DeleteWhere(ctx, Filter{}); err == nil {
		t.Fatal("expected error for empty filter")
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

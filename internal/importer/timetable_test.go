// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package importer

import (
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a  b\tc", "a b c"},
		{"line\r\nbreak", "line break"},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGuessKind(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Лекция по алгебре", KindLecture},
		{"семинар группа 2", KindSeminar},
		{"Практикум в лаборатории", KindPractice},
		{"лаб. работа №3", KindPractice},
		{"Physics lecture hall 5", KindLecture},
		{"что-то другое", KindUnknown},
	}
	for _, tt := range tests {
		if got := GuessKind(tt.text); got != tt.want {
			t.Errorf("GuessKind(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractTimes(t *testing.T) {
	start, end := ExtractTimes("Лекция 9:00–10:30 ауд. 405")
	if start == nil || start.String() != "09:00" {
		t.Errorf("start = %v, want 09:00", start)
	}
	if end == nil || end.String() != "10:30" {
		t.Errorf("end = %v, want 10:30", end)
	}

	// Dot-separated clocks and plain hyphen
	start, end = ExtractTimes("11.30 - 13.00 семинар")
	if start == nil || start.String() != "11:30" {
		t.Errorf("start = %v, want 11:30", start)
	}
	if end == nil || end.String() != "13:00" {
		t.Errorf("end = %v, want 13:00", end)
	}

	if start, end = ExtractTimes("без времени"); start != nil || end != nil {
		t.Error("text without a range must yield nil times")
	}
}

func TestExtractDate(t *testing.T) {
	d := ExtractDate("Занятие 15.09.2026 в 9:00")
	if d == nil || d.String() != "2026-09-15" {
		t.Errorf("date = %v, want 2026-09-15", d)
	}

	// Two-digit years are 2000-based
	d = ExtractDate("перенос на 01.10.26")
	if d == nil || d.String() != "2026-10-01" {
		t.Errorf("date = %v, want 2026-10-01", d)
	}

	if d = ExtractDate("без даты"); d != nil {
		t.Errorf("date = %v, want nil", d)
	}
	if d = ExtractDate("99.99.2026"); d != nil {
		t.Errorf("impossible date = %v, want nil", d)
	}
}

func TestExtractCandidates(t *testing.T) {
	pages := []string{
		"Лекция по алгебре 9:00–10:30 15.09.2026\n\n\n\nсеминар физика 11.30-13.00",
		"",
		"произвольный текст",
	}

	got := ExtractCandidates(pages)
	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3", len(got))
	}

	first := got[0]
	if first.Page != 1 || first.Kind != KindLecture {
		t.Errorf("first = %+v, want page 1 lecture", first)
	}
	if first.Start == nil || first.Start.String() != "09:00" {
		t.Errorf("first.Start = %v, want 09:00", first.Start)
	}
	if first.Date == nil || first.Date.String() != "2026-09-15" {
		t.Errorf("first.Date = %v, want 2026-09-15", first.Date)
	}

	second := got[1]
	if second.Page != 1 || second.Kind != KindSeminar {
		t.Errorf("second = %+v, want page 1 seminar", second)
	}
	if second.Date != nil {
		t.Errorf("second.Date = %v, want nil", second.Date)
	}

	third := got[2]
	if third.Page != 3 || third.Kind != KindUnknown {
		t.Errorf("third = %+v, want page 3 unknown", third)
	}
}

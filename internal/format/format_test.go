// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package format

import (
	"strings"
	"testing"

	"github.com/m15lab/classbridge/internal/models"
)

func TestMessageFullEvent(t *testing.T) {
	f := New("https://calendar.example.edu")
	ev := &models.Event{
		ID:      42,
		Type:    "homework",
		Subject: "Discrete Math",
		Body:    "Solve problems 1-10",
		Room:    "405",
		Teacher: "Ivanova",
	}

	want := strings.Join([]string{
		"#homework",
		"#Discrete_Math",
		"Solve problems 1-10",
		"Room: 405",
		"Teacher: Ivanova",
		"",
		"Calendar link: https://calendar.example.edu/calendar/event/42",
	}, "\n")

	if got := f.Message(ev); got != want {
		t.Errorf("Message =\n%q\nwant\n%q", got, want)
	}
}

func TestMessageOmitsEmptySegments(t *testing.T) {
	f := New("https://calendar.example.edu")
	ev := &models.Event{
		ID:   7,
		Type: "homework",
		Body: "Read ch.3",
	}

	got := f.Message(ev)
	want := "#homework\nRead ch.3\n\nCalendar link: https://calendar.example.edu/calendar/event/7"
	if got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
	if strings.Contains(got, "Room:") || strings.Contains(got, "Teacher:") {
		t.Error("empty room/teacher must not render annotation lines")
	}
}

func TestMessageUnrecognizedTypeDropsTag(t *testing.T) {
	f := New("https://calendar.example.edu")
	ev := &models.Event{ID: 3, Type: "exam", Body: "Midterm"}

	got := f.Message(ev)
	if strings.HasPrefix(got, "\n") {
		t.Error("dropped tag must not leave a leading blank line")
	}
	if !strings.HasPrefix(got, "Midterm") {
		t.Errorf("Message = %q, want body first", got)
	}
}

func TestMessageSingleSeparatorBeforeLink(t *testing.T) {
	f := New("https://calendar.example.edu")
	ev := &models.Event{ID: 9, Type: "announcement", Subject: "Algebra", Body: "Holiday on Monday"}

	got := f.Message(ev)
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("more than one consecutive blank line: %q", got)
	}
	lines := strings.Split(got, "\n")
	if lines[len(lines)-2] != "" {
		t.Error("expected a blank separator immediately before the link line")
	}
}

func TestMessageNoLeadingSeparatorWhenAllEmpty(t *testing.T) {
	f := New("https://calendar.example.edu")
	ev := &models.Event{ID: 1, Type: "exam"}

	got := f.Message(ev)
	want := "Calendar link: https://calendar.example.edu/calendar/event/1"
	if got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
}

func TestSubjectTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Algebra", "#Algebra"},
		{"Discrete Math II", "#Discrete_Math_II"},
		{"  padded  ", "#padded"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := SubjectTag(tt.in); got != tt.want {
			t.Errorf("SubjectTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLinkTrimsTrailingSlash(t *testing.T) {
	f := New("https://calendar.example.edu/")
	if got := f.Link(5); got != "https://calendar.example.edu/calendar/event/5" {
		t.Errorf("Link = %q", got)
	}
}

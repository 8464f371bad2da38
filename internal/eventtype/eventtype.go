// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package eventtype normalizes free-text event type labels into the fixed
// canonical set used for routing and formatting. Labels arrive in mixed
// case and mixed locale (Russian and English), so classification is
// case-insensitive and substring based. Unrecognized labels pass through
// lower-cased, which keeps custom types working end to end.
package eventtype

import "strings"

// Canonical event types.
const (
	Schedule     = "schedule"
	Homework     = "homework"
	Announcement = "announcement"
	Transfer     = "transfer"
)

// keywordGroups maps canonical types to locale keyword fragments. Order
// matters: transfer is checked first so "reschedule" does not classify as
// schedule.
var keywordGroups = []struct {
	canonical string
	keywords  []string
}{
	{Transfer, []string{"перенос", "перенес", "reschedul", "transfer"}},
	{Homework, []string{"домашн", "дз", "homework", "hw"}},
	{Schedule, []string{"расписан", "schedule", "timetable", "пара", "занят"}},
	{Announcement, []string{"объявл", "announce", "новост"}},
}

// transferOverrideKeywords trigger the body-content override that forces
// an event to the transfer type regardless of its declared label.
var transferOverrideKeywords = []string{
	"перенос",
	"перенес",
	"reschedul",
	"moved to",
}

// Canonicalize maps a raw type label to its canonical form. Unmatched
// input passes through lower-cased. Canonicalize is idempotent.
func Canonicalize(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	for _, group := range keywordGroups {
		for _, kw := range group.keywords {
			if strings.Contains(lowered, kw) {
				return group.canonical
			}
		}
	}
	return lowered
}

// ContentImpliesTransfer reports whether the event's title and body text
// contain reschedule language. The check runs once at creation; edits
// after creation do not retroactively change a stored type.
func ContentImpliesTransfer(title, body string) bool {
	text := strings.ToLower(title + " " + body)
	for _, kw := range transferOverrideKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Resolve applies the full creation-time classification: the content
// override takes precedence over the declared label.
func Resolve(raw, title, body string) string {
	if ContentImpliesTransfer(title, body) {
		return Transfer
	}
	return Canonicalize(raw)
}

// IsCanonical reports whether t is one of the fixed canonical types.
func IsCanonical(t string) bool {
	switch t {
	case Schedule, Homework, Announcement, Transfer:
		return true
	}
	return false
}

// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package models

import (
	"time"
)

// Event provenance values.
const (
	SourceAdmin   = "admin"
	SourceDekanat = "dekanat-import"
	SourceManual  = "manual"
)

// DefaultReminderOffsetHours is the lead time before an event at which a
// reminder fires when the event does not specify one.
const DefaultReminderOffsetHours = 24

// Event is the central entity: a calendar entry that may be delivered to a
// group chat and may trigger a reminder.
//
// Delivery state is split across two fields:
//   - SentMessageID records the relay message id of the last successful send.
//   - ReminderSent is monotonic once true; schedule-type events are created
//     with it already set because they never trigger standalone reminders.
type Event struct {
	ID int64 `json:"id"`

	// Classification
	Type    string `json:"type"`
	Subject string `json:"subject,omitempty"`

	// Content
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`

	// Temporal. A nil Time means midnight for reminder computation, not
	// "the event has no time" for display purposes.
	Date                *CivilDate `json:"date,omitempty"`
	Time                *ClockTime `json:"time,omitempty"`
	EndTime             *ClockTime `json:"end_time,omitempty"`
	ReminderOffsetHours int        `json:"reminder_offset_hours"`

	// Routing
	ChatID        *int64 `json:"chat_id,omitempty"`
	TopicThreadID *int64 `json:"topic_thread_id,omitempty"`

	// Delivery state
	SentMessageID *int64 `json:"sent_message_id,omitempty"`
	ReminderSent  bool   `json:"reminder_sent"`

	// Provenance
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`

	// SeriesID groups recurring occurrences for bulk edits.
	SeriesID string `json:"series_id,omitempty"`

	// Auxiliary descriptive fields, by convention schedule-type only.
	Room    string `json:"room,omitempty"`
	Teacher string `json:"teacher,omitempty"`
}

// Instant combines the event's date with its time (midnight when absent) in
// the given location. ok is false when the event has no date.
func (e *Event) Instant(loc *time.Location) (t time.Time, ok bool) {
	if e.Date == nil {
		return time.Time{}, false
	}
	return e.Date.At(e.Time, loc), true
}

// RemindAt returns the instant at which the event's reminder becomes due.
// ok is false when the event has no date.
func (e *Event) RemindAt(loc *time.Location) (t time.Time, ok bool) {
	instant, ok := e.Instant(loc)
	if !ok {
		return time.Time{}, false
	}
	return instant.Add(-time.Duration(e.ReminderOffsetHours) * time.Hour), true
}

// EventUpdate enumerates the fields an update may touch. Nil pointers leave
// the stored value unchanged; the Clear flags set an optional field to absent.
// This replaces attribute-name probing with a structure the compiler checks.
type EventUpdate struct {
	Type    *string
	Subject *string
	Title   *string
	Body    *string

	Date      *CivilDate
	ClearDate bool

	Time      *ClockTime
	ClearTime bool

	EndTime      *ClockTime
	ClearEndTime bool

	ReminderOffsetHours *int

	ChatID      *int64
	ClearChatID bool

	TopicThreadID      *int64
	ClearTopicThreadID bool

	SentMessageID *int64
	ReminderSent  *bool

	Room    *string
	Teacher *string
}

// Apply writes the set fields onto the event.
func (u *EventUpdate) Apply(e *Event) {
	if u.Type != nil {
		e.Type = *u.Type
	}
	if u.Subject != nil {
		e.Subject = *u.Subject
	}
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Body != nil {
		e.Body = *u.Body
	}
	switch {
	case u.ClearDate:
		e.Date = nil
	case u.Date != nil:
		d := *u.Date
		e.Date = &d
	}
	switch {
	case u.ClearTime:
		e.Time = nil
	case u.Time != nil:
		t := *u.Time
		e.Time = &t
	}
	switch {
	case u.ClearEndTime:
		e.EndTime = nil
	case u.EndTime != nil:
		t := *u.EndTime
		e.EndTime = &t
	}
	if u.ReminderOffsetHours != nil {
		e.ReminderOffsetHours = *u.ReminderOffsetHours
	}
	switch {
	case u.ClearChatID:
		e.ChatID = nil
	case u.ChatID != nil:
		id := *u.ChatID
		e.ChatID = &id
	}
	switch {
	case u.ClearTopicThreadID:
		e.TopicThreadID = nil
	case u.TopicThreadID != nil:
		id := *u.TopicThreadID
		e.TopicThreadID = &id
	}
	if u.SentMessageID != nil {
		id := *u.SentMessageID
		e.SentMessageID = &id
	}
	if u.ReminderSent != nil {
		e.ReminderSent = *u.ReminderSent
	}
	if u.Room != nil {
		e.Room = *u.Room
	}
	if u.Teacher != nil {
		e.Teacher = *u.Teacher
	}
}

// ContentFields returns a copy of the update restricted to content and time
// fields, the subset that cascades across a series group. Routing and
// delivery-state fields never cascade.
func (u *EventUpdate) ContentFields() EventUpdate {
	return EventUpdate{
		Type:                u.Type,
		Subject:             u.Subject,
		Title:               u.Title,
		Body:                u.Body,
		Time:                u.Time,
		ClearTime:           u.ClearTime,
		EndTime:             u.EndTime,
		ClearEndTime:        u.ClearEndTime,
		ReminderOffsetHours: u.ReminderOffsetHours,
		Room:                u.Room,
		Teacher:             u.Teacher,
	}
}

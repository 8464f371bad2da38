// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package api

import (
	"fmt"
	"time"

	"github.com/m15lab/classbridge/internal/eventtype"
	"github.com/m15lab/classbridge/internal/importer"
	"github.com/m15lab/classbridge/internal/models"
)

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateEventRequest is the body of POST /events. Date and clock fields
// travel as strings so clients are not forced into a JSON time format.
type CreateEventRequest struct {
	Type    string `json:"type" validate:"required,max=128"`
	Subject string `json:"subject" validate:"max=256"`
	Title   string `json:"title" validate:"max=512"`
	Body    string `json:"body" validate:"max=8192"`

	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time    string `json:"time"`
	EndTime string `json:"end_time"`

	ReminderOffsetHours *int `json:"reminder_offset_hours" validate:"omitempty,gte=0,lte=720"`

	ChatID        *int64 `json:"chat_id"`
	TopicThreadID *int64 `json:"topic_thread_id"`

	Room    string `json:"room" validate:"max=128"`
	Teacher string `json:"teacher" validate:"max=256"`

	// RepeatWeeks expands the event into a weekly series of additional
	// occurrences. Requires a date.
	RepeatWeeks int `json:"repeat_weeks" validate:"gte=0,lte=52"`
}

// ToEvent builds the base event. The returned event has no ID; the store
// assigns one on Create.
func (r *CreateEventRequest) ToEvent(now time.Time) (*models.Event, error) {
	if r.RepeatWeeks > 0 && r.Date == "" {
		return nil, fmt.Errorf("repeat_weeks requires a date")
	}

	resolved := eventtype.Resolve(r.Type, r.Title, r.Body)

	ev := &models.Event{
		Type:      resolved,
		Subject:   r.Subject,
		Title:     r.Title,
		Body:      r.Body,
		Room:      r.Room,
		Teacher:   r.Teacher,
		Source:    models.SourceAdmin,
		CreatedAt: now,

		ReminderOffsetHours: models.DefaultReminderOffsetHours,

		// Schedule posts are informational; they never fire a reminder.
		ReminderSent: resolved == eventtype.Schedule,
	}
	if r.ReminderOffsetHours != nil {
		ev.ReminderOffsetHours = *r.ReminderOffsetHours
	}
	if r.Date != "" {
		d, err := models.ParseCivilDate(r.Date)
		if err != nil {
			return nil, err
		}
		ev.Date = &d
	}
	if r.Time != "" {
		t, err := models.ParseClockTime(r.Time)
		if err != nil {
			return nil, err
		}
		ev.Time = &t
	}
	if r.EndTime != "" {
		t, err := models.ParseClockTime(r.EndTime)
		if err != nil {
			return nil, err
		}
		ev.EndTime = &t
	}
	if r.ChatID != nil {
		id := *r.ChatID
		ev.ChatID = &id
	}
	if r.TopicThreadID != nil {
		id := *r.TopicThreadID
		ev.TopicThreadID = &id
	}
	return ev, nil
}

// UpdateEventRequest is the body of PATCH /events/{id}. Absent fields are
// left unchanged. For the optional date, clock and routing fields an
// explicit empty string (or chat/thread id 0) clears the stored value.
type UpdateEventRequest struct {
	Type    *string `json:"type" validate:"omitempty,max=128"`
	Subject *string `json:"subject" validate:"omitempty,max=256"`
	Title   *string `json:"title" validate:"omitempty,max=512"`
	Body    *string `json:"body" validate:"omitempty,max=8192"`

	Date    *string `json:"date"`
	Time    *string `json:"time"`
	EndTime *string `json:"end_time"`

	ReminderOffsetHours *int `json:"reminder_offset_hours" validate:"omitempty,gte=0,lte=720"`

	ChatID        *int64 `json:"chat_id"`
	TopicThreadID *int64 `json:"topic_thread_id"`

	Room    *string `json:"room" validate:"omitempty,max=128"`
	Teacher *string `json:"teacher" validate:"omitempty,max=256"`
}

// ToEventUpdate translates the wire representation into store field updates.
func (r *UpdateEventRequest) ToEventUpdate() (models.EventUpdate, error) {
	u := models.EventUpdate{
		Subject:             r.Subject,
		Title:               r.Title,
		Body:                r.Body,
		ReminderOffsetHours: r.ReminderOffsetHours,
		Room:                r.Room,
		Teacher:             r.Teacher,
	}
	if r.Type != nil {
		canonical := eventtype.Canonicalize(*r.Type)
		u.Type = &canonical
	}
	if r.Date != nil {
		if *r.Date == "" {
			u.ClearDate = true
		} else {
			d, err := models.ParseCivilDate(*r.Date)
			if err != nil {
				return models.EventUpdate{}, err
			}
			u.Date = &d
		}
	}
	if r.Time != nil {
		if *r.Time == "" {
			u.ClearTime = true
		} else {
			t, err := models.ParseClockTime(*r.Time)
			if err != nil {
				return models.EventUpdate{}, err
			}
			u.Time = &t
		}
	}
	if r.EndTime != nil {
		if *r.EndTime == "" {
			u.ClearEndTime = true
		} else {
			t, err := models.ParseClockTime(*r.EndTime)
			if err != nil {
				return models.EventUpdate{}, err
			}
			u.EndTime = &t
		}
	}
	if r.ChatID != nil {
		if *r.ChatID == 0 {
			u.ClearChatID = true
		} else {
			u.ChatID = r.ChatID
		}
	}
	if r.TopicThreadID != nil {
		if *r.TopicThreadID == 0 {
			u.ClearTopicThreadID = true
		} else {
			u.TopicThreadID = r.TopicThreadID
		}
	}
	return u, nil
}

// ImportDekanatRequest is the body of POST /import/dekanat.
type ImportDekanatRequest struct {
	Items []importer.DekanatItem `json:"items" validate:"required,min=1,max=500"`
}

// ImportTimetableRequest is the body of POST /import/timetable: the page
// texts of a timetable document, in order.
type ImportTimetableRequest struct {
	Pages []string `json:"pages" validate:"required,min=1,max=200"`
}

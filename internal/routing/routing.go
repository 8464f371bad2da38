// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package routing resolves the Telegram destination for an event through
// a layered override policy. Chat and topic thread resolve independently:
// an operator can pin one chat globally while overriding or omitting
// sub-threads per event type.
package routing

import (
	"errors"

	"github.com/m15lab/classbridge/internal/config"
	"github.com/m15lab/classbridge/internal/eventtype"
	"github.com/m15lab/classbridge/internal/models"
)

// ErrNoDestination means no chat could be resolved at any tier. Delivery
// must treat it as fatal for the event, not a silent skip.
var ErrNoDestination = errors.New("no destination chat for event")

// Destination is a resolved Telegram target. ThreadID nil means the main
// channel stream without a sub-thread.
type Destination struct {
	ChatID   int64
	ThreadID *int64
}

// Table holds the static per-type and default destinations from
// configuration. Zero values mean unset; Telegram never assigns chat or
// thread id 0.
type Table struct {
	DefaultChatID int64
	ChatByType    map[string]int64
	ThreadByType  map[string]int64
}

// TableFromConfig builds the routing table from the routing config block.
func TableFromConfig(rc config.RoutingConfig) Table {
	return Table{
		DefaultChatID: rc.DefaultChatID,
		ChatByType: map[string]int64{
			eventtype.Schedule:     rc.ScheduleChatID,
			eventtype.Homework:     rc.HomeworkChatID,
			eventtype.Announcement: rc.AnnouncementChatID,
		},
		ThreadByType: map[string]int64{
			eventtype.Schedule:     rc.ScheduleThreadID,
			eventtype.Homework:     rc.HomeworkThreadID,
			eventtype.Announcement: rc.AnnouncementThreadID,
		},
	}
}

// Resolve determines the destination for an event.
//
// Chat, first match wins: the event's own chat id, then the per-type
// override, then the global default. No match at any tier returns
// ErrNoDestination.
//
// Thread, independently: the event's own thread id, then the per-type
// override, then none.
func (t Table) Resolve(ev *models.Event) (Destination, error) {
	var dest Destination

	typ := eventtype.Canonicalize(ev.Type)

	switch {
	case ev.ChatID != nil && *ev.ChatID != 0:
		dest.ChatID = *ev.ChatID
	case t.ChatByType[typ] != 0:
		dest.ChatID = t.ChatByType[typ]
	case t.DefaultChatID != 0:
		dest.ChatID = t.DefaultChatID
	default:
		return Destination{}, ErrNoDestination
	}

	switch {
	case ev.TopicThreadID != nil && *ev.TopicThreadID != 0:
		id := *ev.TopicThreadID
		dest.ThreadID = &id
	case t.ThreadByType[typ] != 0:
		id := t.ThreadByType[typ]
		dest.ThreadID = &id
	}

	return dest, nil
}

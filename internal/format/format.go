// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package format builds the outgoing chat message text for an event. The
// output is deterministic: a fixed segment order with empty segments
// filtered before joining, so the same event always renders the same
// bytes.
package format

import (
	"fmt"
	"strings"

	"github.com/m15lab/classbridge/internal/eventtype"
	"github.com/m15lab/classbridge/internal/models"
)

// typeTags is the fixed hashtag lookup. Unrecognized types map to the
// empty string and the segment is dropped.
var typeTags = map[string]string{
	eventtype.Homework:     "#homework",
	eventtype.Announcement: "#announcement",
	eventtype.Transfer:     "#transfer",
	eventtype.Schedule:     "#schedule",
}

// Formatter renders events into message text. BaseURL points at the
// public calendar frontend.
type Formatter struct {
	BaseURL string
}

// New creates a Formatter. A trailing slash on baseURL is trimmed so the
// link line never contains a double slash.
func New(baseURL string) *Formatter {
	return &Formatter{BaseURL: strings.TrimRight(baseURL, "/")}
}

// SubjectTag converts a subject into its hashtag form: a leading marker
// with spaces replaced by underscores. Empty subject yields an empty tag.
func SubjectTag(subject string) string {
	s := strings.TrimSpace(subject)
	if s == "" {
		return ""
	}
	return "#" + strings.ReplaceAll(s, " ", "_")
}

// Link returns the calendar detail page URL for an event id.
func (f *Formatter) Link(id int64) string {
	return fmt.Sprintf("%s/calendar/event/%d", f.BaseURL, id)
}

// Message renders the full delivery text for an event.
//
// Segment order: type hashtag, subject tag, body, room line, teacher
// line, blank separator, calendar link. Empty segments are filtered
// before joining, then the separator and link are appended.
func (f *Formatter) Message(ev *models.Event) string {
	segments := []string{
		typeTags[eventtype.Canonicalize(ev.Type)],
		SubjectTag(ev.Subject),
		ev.Body,
	}
	if ev.Room != "" {
		segments = append(segments, "Room: "+ev.Room)
	}
	if ev.Teacher != "" {
		segments = append(segments, "Teacher: "+ev.Teacher)
	}

	lines := make([]string, 0, len(segments)+2)
	for _, seg := range segments {
		if seg != "" {
			lines = append(lines, seg)
		}
	}
	// The separator only renders when something precedes the link line
	if len(lines) > 0 {
		lines = append(lines, "")
	}
	lines = append(lines, "Calendar link: "+f.Link(ev.ID))

	return strings.Join(lines, "\n")
}

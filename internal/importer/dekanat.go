// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package importer ingests events in bulk from external sources: dekanat
// exports and timetable text extracted from uploaded PDFs.
//
// The tolerance policy for bulk import is field-level, not batch-level: a
// malformed date or time clears that field and the item still imports;
// one bad record never aborts the whole batch.
package importer

import (
	"context"
	"strings"
	"time"

	"github.com/m15lab/classbridge/internal/eventtype"
	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/metrics"
	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/store"
)

// DekanatItem is one record of a dekanat export.
type DekanatItem struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	EndTime string `json:"end_time"`
	Room    string `json:"room"`
	Teacher string `json:"teacher"`
}

// ItemOutcome reports what happened to one imported item.
type ItemOutcome struct {
	Index   int    `json:"index"`
	EventID int64  `json:"event_id,omitempty"`
	Status  string `json:"status"` // "created", "tolerated", "rejected"
	Detail  string `json:"detail,omitempty"`
}

// Report summarizes a bulk import.
type Report struct {
	Created   int           `json:"created"`
	Tolerated int           `json:"tolerated"`
	Rejected  int           `json:"rejected"`
	Items     []ItemOutcome `json:"items"`
}

// Importer persists bulk-imported events.
type Importer struct {
	store store.EventStore
}

// New creates an Importer.
func New(st store.EventStore) *Importer {
	return &Importer{store: st}
}

// ImportDekanat imports a batch of dekanat records. Each item is
// classified through the creation-path canonicalizer and stored with the
// dekanat-import source. Malformed date/time fields are cleared and
// reported as tolerated; only an empty type and subject together reject
// an item. A store fault aborts the remainder of the batch.
func (im *Importer) ImportDekanat(ctx context.Context, items []DekanatItem) (*Report, error) {
	report := &Report{Items: make([]ItemOutcome, 0, len(items))}

	for i, item := range items {
		outcome := ItemOutcome{Index: i}

		if strings.TrimSpace(item.Type) == "" && strings.TrimSpace(item.Subject) == "" {
			outcome.Status = "rejected"
			outcome.Detail = "empty type and subject"
			report.Rejected++
			report.Items = append(report.Items, outcome)
			metrics.RecordImportEvent("rejected")
			continue
		}

		ev := &models.Event{
			Type:                eventtype.Resolve(item.Type, item.Title, item.Body),
			Subject:             strings.TrimSpace(item.Subject),
			Title:               strings.TrimSpace(item.Title),
			Body:                item.Body,
			Room:                strings.TrimSpace(item.Room),
			Teacher:             strings.TrimSpace(item.Teacher),
			ReminderOffsetHours: models.DefaultReminderOffsetHours,
			Source:              models.SourceDekanat,
			CreatedAt:           time.Now().UTC(),
		}

		var tolerated []string
		if item.Date != "" {
			if d, err := models.ParseCivilDate(item.Date); err == nil {
				ev.Date = &d
			} else {
				tolerated = append(tolerated, "date")
			}
		}
		if item.Time != "" {
			if c, err := models.ParseClockTime(item.Time); err == nil {
				ev.Time = &c
			} else {
				tolerated = append(tolerated, "time")
			}
		}
		if item.EndTime != "" {
			if c, err := models.ParseClockTime(item.EndTime); err == nil {
				ev.EndTime = &c
			} else {
				tolerated = append(tolerated, "end_time")
			}
		}

		// Schedule events are archival; they never page the chat
		if eventtype.Canonicalize(ev.Type) == eventtype.Schedule {
			ev.ReminderSent = true
		}

		id, err := im.store.Create(ctx, ev)
		if err != nil {
			// Storage failures are not data problems; stop the batch
			return report, err
		}

		outcome.EventID = id
		if len(tolerated) > 0 {
			outcome.Status = "tolerated"
			outcome.Detail = "unparseable fields cleared: " + strings.Join(tolerated, ", ")
			report.Tolerated++
			metrics.RecordImportEvent("tolerated")
			logging.Warn().
				Int("index", i).
				Int64("event_id", id).
				Strs("fields", tolerated).
				Msg("Import item had unparseable fields")
		} else {
			outcome.Status = "created"
			report.Created++
			metrics.RecordImportEvent("created")
		}
		report.Items = append(report.Items, outcome)
	}

	return report, nil
}

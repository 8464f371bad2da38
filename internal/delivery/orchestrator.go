// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package delivery

import (
	"context"
	"time"

	"github.com/m15lab/classbridge/internal/eventtype"
	"github.com/m15lab/classbridge/internal/format"
	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/metrics"
	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/routing"
	"github.com/m15lab/classbridge/internal/store"
)

// Result is the caller-visible outcome of one delivery.
type Result struct {
	OK           bool   `json:"ok"`
	MessageID    *int64 `json:"message_id,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Orchestrator drives the full send path: routing resolution, message
// formatting, relay delivery with the one-shot thread fallback, and
// sent-message bookkeeping. It is used both at creation time and for the
// explicit re-send trigger; the reminder poller shares the same path.
type Orchestrator struct {
	store     store.EventStore
	relay     Relay
	table     routing.Table
	formatter *format.Formatter
}

// NewOrchestrator wires the delivery pipeline.
func NewOrchestrator(st store.EventStore, relay Relay, table routing.Table, formatter *format.Formatter) *Orchestrator {
	return &Orchestrator{
		store:     st,
		relay:     relay,
		table:     table,
		formatter: formatter,
	}
}

// Send delivers the event notification. The path label ("create",
// "reminder", "resend", "digest") only feeds logging and metrics.
//
// Schedule-type events are archival: they are marked reminder-sent and
// skipped without contacting the relay. A missing destination is a
// caller-visible, non-retriable failure; the event stays persisted and
// unsent until an administrator supplies a destination. Relay faults of
// any kind are caught here and reported in the result, never raised.
func (o *Orchestrator) Send(ctx context.Context, ev *models.Event, path string) Result {
	start := time.Now()
	log := logging.With().
		Int64("event_id", ev.ID).
		Str("type", ev.Type).
		Str("path", path).
		Logger()

	// Schedule events never generate chat noise
	if eventtype.Canonicalize(ev.Type) == eventtype.Schedule {
		if _, err := o.store.Update(ctx, ev.ID, func(e *models.Event) error {
			e.ReminderSent = true
			return nil
		}); err != nil {
			log.Error().Err(err).Msg("Failed to mark schedule event reminder-sent")
			metrics.RecordDelivery(path, "failed", time.Since(start))
			return Result{ErrorCode: ErrorCodeStoreFault, ErrorMessage: err.Error()}
		}
		metrics.RecordDelivery(path, "skipped", time.Since(start))
		return Result{OK: true}
	}

	dest, err := o.table.Resolve(ev)
	if err != nil {
		log.Warn().Msg("No destination chat for event")
		metrics.RecordDelivery(path, "failed", time.Since(start))
		return Result{ErrorCode: ErrorCodeNoDestination, ErrorMessage: err.Error()}
	}

	text := o.formatter.Message(ev)

	res := o.relay.Send(ctx, dest.ChatID, dest.ThreadID, text)
	if !res.OK() && dest.ThreadID != nil {
		// The sub-thread may be invalid or closed; retry exactly once
		// into the channel's main stream
		log.Warn().
			Int64("thread_id", *dest.ThreadID).
			Str("error_code", res.ErrorCode).
			Msg("Send with thread failed, retrying without thread")
		metrics.RecordThreadFallback()
		res = o.relay.Send(ctx, dest.ChatID, nil, text)
	}

	if !res.OK() {
		log.Error().
			Str("error_code", res.ErrorCode).
			Str("error", res.ErrorMessage).
			Msg("Delivery failed")
		metrics.RecordDelivery(path, "failed", time.Since(start))
		return Result{ErrorCode: res.ErrorCode, ErrorMessage: res.ErrorMessage}
	}

	msgID := res.MessageID
	if _, err := o.store.Update(ctx, ev.ID, func(e *models.Event) error {
		e.SentMessageID = &msgID
		return nil
	}); err != nil {
		// The message is already out; losing the bookkeeping is logged
		// but does not turn the delivery into a failure
		log.Error().Err(err).Int64("message_id", msgID).Msg("Failed to persist sent message id")
	}

	log.Info().Int64("message_id", msgID).Int64("chat_id", dest.ChatID).Msg("Delivered")
	metrics.RecordDelivery(path, "sent", time.Since(start))
	return Result{OK: true, MessageID: &msgID}
}

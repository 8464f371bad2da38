// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/m15lab/classbridge/internal/delivery"
	"github.com/m15lab/classbridge/internal/eventtype"
	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/models"
	"github.com/m15lab/classbridge/internal/reminder"
	"github.com/m15lab/classbridge/internal/store"
	"github.com/m15lab/classbridge/internal/validation"
)

// CreateEventResponse is the payload of POST /events.
type CreateEventResponse struct {
	Event *models.Event `json:"event"`

	// Series lists the additional weekly occurrences when repeat_weeks
	// was given.
	Series []*models.Event `json:"series,omitempty"`

	// Delivery reports the synchronous send of the base event. A failed
	// delivery does not fail event creation.
	Delivery delivery.Result `json:"delivery"`
}

// handleCreateEvent stores a new event and delivers it to its group chat.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	ev, err := req.ToEvent(time.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_EVENT", err.Error(), nil)
		return
	}

	var series []*models.Event
	if req.RepeatWeeks > 0 {
		ev.SeriesID = uuid.NewString()
		series = expandWeekly(ev, req.RepeatWeeks)
	}

	if _, err := s.store.Create(r.Context(), ev); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_FAULT", "Could not persist event", err)
		return
	}
	for i, occ := range series {
		if _, err := s.store.Create(r.Context(), occ); err != nil {
			// The base event and earlier occurrences are already in; report
			// what exists rather than leaving the client guessing.
			respondError(w, http.StatusInternalServerError, "STORE_FAULT",
				fmt.Sprintf("Series occurrence %d failed after %d events were created", i+1, i+1), err)
			return
		}
	}

	sendCtx, cancel := context.WithTimeout(r.Context(), s.bulkSendTimeout())
	defer cancel()
	result := s.orch.Send(sendCtx, ev, "create")
	if !result.OK {
		logging.Warn().
			Int64("event_id", ev.ID).
			Str("error_code", result.ErrorCode).
			Msg("Creation delivery failed, event stored")
	}

	// Re-read so the response reflects delivery state written by the send.
	if fresh, err := s.store.Get(r.Context(), ev.ID); err == nil {
		ev = fresh
	}

	respondData(w, http.StatusCreated, CreateEventResponse{
		Event:    ev,
		Series:   series,
		Delivery: result,
	})
}

// expandWeekly builds the weekly follow-up occurrences of a base event.
// Occurrences start life unsent so their reminders fire independently.
func expandWeekly(base *models.Event, weeks int) []*models.Event {
	series := make([]*models.Event, 0, weeks)
	start := base.Date.At(nil, time.UTC)
	for i := 1; i <= weeks; i++ {
		occ := *base
		d := models.DateOf(start.AddDate(0, 0, 7*i))
		occ.Date = &d
		occ.SentMessageID = nil
		series = append(series, &occ)
	}
	return series
}

// handleListEvents returns events matching the optional date, month and
// type query filters.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error(), nil)
		return
	}

	events, err := s.store.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_FAULT", "Could not list events", err)
		return
	}
	canonicalizeTypes(events)
	respondData(w, http.StatusOK, events)
}

// handleGetEvent returns one event by id.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Event id must be a positive integer", nil)
		return
	}
	ev, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrEventNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Event not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_FAULT", "Could not load event", err)
		return
	}
	ev.Type = eventtype.Canonicalize(ev.Type)
	respondData(w, http.StatusOK, ev)
}

// handleUpdateEvent applies a partial update. With ?cascade=series the
// content and time fields also propagate to the rest of the event's series.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Event id must be a positive integer", nil)
		return
	}

	var req UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	update, err := req.ToEventUpdate()
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_EVENT", err.Error(), nil)
		return
	}

	updated, err := s.store.Update(r.Context(), id, func(ev *models.Event) error {
		update.Apply(ev)
		return nil
	})
	if errors.Is(err, store.ErrEventNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Event not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_FAULT", "Could not update event", err)
		return
	}

	cascaded := 0
	if r.URL.Query().Get("cascade") == "series" && updated.SeriesID != "" {
		cascaded, err = s.cascadeSeries(r.Context(), updated, update)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "STORE_FAULT", "Series cascade failed partway", err)
			return
		}
	}

	updated.Type = eventtype.Canonicalize(updated.Type)
	respondData(w, http.StatusOK, map[string]interface{}{
		"event":    updated,
		"cascaded": cascaded,
	})
}

// cascadeSeries applies the content fields of an update to every other
// event in the series.
func (s *Server) cascadeSeries(ctx context.Context, updated *models.Event, update models.EventUpdate) (int, error) {
	content := update.ContentFields()
	siblings, err := s.store.List(ctx, store.Filter{SeriesID: updated.SeriesID})
	if err != nil {
		return 0, err
	}
	count := 0
	for _, sib := range siblings {
		if sib.ID == updated.ID {
			continue
		}
		if _, err := s.store.Update(ctx, sib.ID, func(ev *models.Event) error {
			content.Apply(ev)
			return nil
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// handleDeleteEvent removes one event. Deleting an absent id succeeds.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Event id must be a positive integer", nil)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_FAULT", "Could not delete event", err)
		return
	}
	if claims := claimsFrom(r.Context()); claims != nil {
		logging.Info().Int64("event_id", id).Str("username", sanitizeLogValue(claims.Username)).Msg("Event deleted")
	}
	respondData(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// handleDeleteEvents bulk-deletes by filter. An empty filter is rejected so
// a bare DELETE cannot wipe the store.
func (s *Server) handleDeleteEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error(), nil)
		return
	}

	deleted, err := s.store.DeleteWhere(r.Context(), filter)
	if err != nil {
		status := http.StatusInternalServerError
		code := "STORE_FAULT"
		if !errors.Is(err, store.ErrStoreFault) {
			status = http.StatusBadRequest
			code = "INVALID_FILTER"
		}
		respondError(w, status, code, err.Error(), err)
		return
	}
	if claims := claimsFrom(r.Context()); claims != nil {
		logging.Info().Int("deleted", deleted).Str("username", sanitizeLogValue(claims.Username)).Msg("Events bulk-deleted")
	}
	respondData(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

// handleResendEvent re-delivers an event on demand. Unlike creation, a
// failed send is surfaced as an error status so operators see it.
func (s *Server) handleResendEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Event id must be a positive integer", nil)
		return
	}
	ev, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrEventNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Event not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_FAULT", "Could not load event", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(r.Context(), s.resendTimeout())
	defer cancel()
	result := s.orch.Send(sendCtx, ev, "resend")
	if !result.OK {
		respondError(w, http.StatusBadGateway, result.ErrorCode, result.ErrorMessage, nil)
		return
	}
	respondData(w, http.StatusOK, result)
}

// handleDueEvents lists events whose reminder is due. ?now overrides the
// reference instant for inspection and testing.
func (s *Server) handleDueEvents(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_FILTER", "now must be RFC 3339", nil)
			return
		}
		now = parsed
	}

	due, err := reminder.DueSet(r.Context(), s.store, now, s.loc)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_FAULT", "Could not scan reminders", err)
		return
	}
	canonicalizeTypes(due)
	respondData(w, http.StatusOK, due)
}

func eventID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id")
	}
	return id, nil
}

// filterFromQuery builds a store filter from date, month, type and
// series_id query parameters.
func filterFromQuery(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	var filter store.Filter

	if raw := q.Get("date"); raw != "" {
		d, err := models.ParseCivilDate(raw)
		if err != nil {
			return store.Filter{}, fmt.Errorf("date must be YYYY-MM-DD")
		}
		filter.Date = &d
	}
	if raw := q.Get("month"); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			return store.Filter{}, fmt.Errorf("month must be YYYY-MM")
		}
		filter.Year = t.Year()
		filter.Month = int(t.Month())
	}
	if raw := q.Get("type"); raw != "" {
		filter.Type = eventtype.Canonicalize(raw)
	}
	if raw := q.Get("series_id"); raw != "" {
		filter.SeriesID = raw
	}
	return filter, nil
}

func canonicalizeTypes(events []*models.Event) {
	for _, ev := range events {
		ev.Type = eventtype.Canonicalize(ev.Type)
	}
}

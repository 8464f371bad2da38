// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package api

import (
	"net/http"
)

// handleHealthLive reports process liveness.
func (s *Server) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleHealthReady reports readiness by touching the event store.
func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Event store is not responding", err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"events": count,
	})
}

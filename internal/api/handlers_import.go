// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package api

import (
	"net/http"

	"github.com/m15lab/classbridge/internal/importer"
	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/validation"
)

// handleImportDekanat ingests a batch of dekanat export records. Malformed
// dates and times are tolerated per record; a storage fault aborts the batch
// and the partial report says how far it got.
func (s *Server) handleImportDekanat(w http.ResponseWriter, r *http.Request) {
	var req ImportDekanatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	report, err := s.importer.ImportDekanat(r.Context(), req.Items)
	if err != nil {
		logging.Error().Err(err).Int("created", report.Created).Msg("Dekanat import aborted")
		respondJSONReport(w, http.StatusInternalServerError, "IMPORT_ABORTED", report)
		return
	}
	respondData(w, http.StatusOK, report)
}

// handleImportTimetable extracts schedule candidates from timetable page
// texts. Extraction is a preview: nothing is stored until the operator
// submits the confirmed rows through the dekanat endpoint.
func (s *Server) handleImportTimetable(w http.ResponseWriter, r *http.Request) {
	var req ImportTimetableRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	candidates := importer.ExtractCandidates(req.Pages)
	respondData(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// respondJSONReport sends an error envelope that still carries the partial
// import report in data.
func respondJSONReport(w http.ResponseWriter, status int, code string, report *importer.Report) {
	respondJSON(w, status, errorResponseWithData(code, "Import aborted by a storage fault", report))
}

// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/m15lab/classbridge/internal/auth"
	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/validation"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// handleLogin verifies admin credentials and issues a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	sec := s.cfg.Security
	if !auth.CheckCredentials(req.Username, req.Password, sec.AdminUsername, sec.AdminPasswordHash) {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Login rejected")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
		return
	}

	token, err := s.jwt.GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Could not issue session token", err)
		return
	}

	respondData(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwt.Timeout()),
	})
}

// authenticate guards the data endpoints with bearer-token JWT auth.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required", nil)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authorization header must use Bearer scheme", nil)
			return
		}
		claims, err := s.jwt.ValidateToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired", err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom returns the authenticated claims, nil on unauthenticated paths.
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package api implements the HTTP surface of ClassBridge: event CRUD,
// manual re-sends, bulk imports, auth and health endpoints. All data
// endpoints sit behind JWT authentication and return the standard
// models.APIResponse envelope.
package api

import (
	"time"

	"github.com/m15lab/classbridge/internal/auth"
	"github.com/m15lab/classbridge/internal/config"
	"github.com/m15lab/classbridge/internal/delivery"
	"github.com/m15lab/classbridge/internal/importer"
	"github.com/m15lab/classbridge/internal/store"
)

// Send timeouts applied when the configuration leaves them unset.
const (
	defaultBulkSendTimeout = 30 * time.Second
	defaultResendTimeout   = 60 * time.Second
)

// Server holds the handler dependencies.
type Server struct {
	store    store.EventStore
	orch     *delivery.Orchestrator
	importer *importer.Importer
	jwt      *auth.JWTManager
	cfg      *config.Config
	loc      *time.Location
}

// NewServer wires the HTTP handlers to their collaborators.
func NewServer(cfg *config.Config, st store.EventStore, orch *delivery.Orchestrator, imp *importer.Importer, jwtManager *auth.JWTManager) *Server {
	return &Server{
		store:    st,
		orch:     orch,
		importer: imp,
		jwt:      jwtManager,
		cfg:      cfg,
		loc:      cfg.Location(),
	}
}

func (s *Server) bulkSendTimeout() time.Duration {
	if s.cfg.Telegram.BulkSendTimeout > 0 {
		return s.cfg.Telegram.BulkSendTimeout
	}
	return defaultBulkSendTimeout
}

func (s *Server) resendTimeout() time.Duration {
	if s.cfg.Telegram.ResendTimeout > 0 {
		return s.cfg.Telegram.ResendTimeout
	}
	return defaultResendTimeout
}

// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m15lab/classbridge/internal/middleware"
)

// Login attempts are throttled harder than data traffic.
const loginRateLimit = 10

// Router assembles the full HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	if len(s.cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Security.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health/live", s.handleHealthLive)
		r.Get("/health/ready", s.handleHealthReady)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(loginRateLimit, time.Minute))
			r.Post("/auth/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Use(middleware.PrometheusMetrics)
			if s.cfg.Security.RateLimitReqs > 0 {
				window := s.cfg.Security.RateLimitWindow
				if window <= 0 {
					window = time.Minute
				}
				r.Use(httprate.LimitByIP(s.cfg.Security.RateLimitReqs, window))
			}

			r.Route("/events", func(r chi.Router) {
				r.Post("/", s.handleCreateEvent)
				r.Get("/", s.handleListEvents)
				r.Delete("/", s.handleDeleteEvents)
				r.Get("/due", s.handleDueEvents)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetEvent)
					r.Patch("/", s.handleUpdateEvent)
					r.Delete("/", s.handleDeleteEvent)
					r.Post("/resend", s.handleResendEvent)
				})
			})

			r.Post("/import/dekanat", s.handleImportDekanat)
			r.Post("/import/timetable", s.handleImportTimetable)
		})
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package main is the entry point for the ClassBridge server.
//
// ClassBridge bridges a university group's event calendar with its Telegram
// group chats: administrators create events (homework, announcements, class
// transfers, schedule posts) through the REST API, the delivery pipeline
// posts them to the right chat and topic thread, and a background poller
// fires reminders ahead of each event.
//
// Startup order:
//
//  1. Configuration: koanf layers defaults, an optional YAML file and
//     environment variables
//  2. Event store: Badger database with background value-log GC
//  3. Telegram relay: rate-limited Bot API client behind a circuit breaker
//  4. Delivery pipeline: routing table, message formatter, orchestrator
//  5. Background services: reminder poller and optional daily digest
//  6. HTTP server: REST API with JWT auth and Prometheus metrics
//
// All long-running components run under a suture supervision tree and shut
// down gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m15lab/classbridge/internal/api"
	"github.com/m15lab/classbridge/internal/auth"
	"github.com/m15lab/classbridge/internal/config"
	"github.com/m15lab/classbridge/internal/delivery"
	"github.com/m15lab/classbridge/internal/format"
	"github.com/m15lab/classbridge/internal/importer"
	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/reminder"
	"github.com/m15lab/classbridge/internal/routing"
	"github.com/m15lab/classbridge/internal/store"
	"github.com/m15lab/classbridge/internal/supervisor"
	"github.com/m15lab/classbridge/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "classbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log := logging.Logger()
	loc := cfg.Location()

	st, err := store.OpenBadger(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event store")
		}
	}()

	relay, err := delivery.NewTelegramRelay(delivery.TelegramRelayConfig{
		BotToken:                cfg.Telegram.BotToken,
		APIBaseURL:              cfg.Telegram.APIBaseURL,
		MessagesPerSecond:       cfg.Telegram.MessagesPerSecond,
		BreakerFailureThreshold: cfg.Telegram.BreakerFailureThreshold,
	})
	if err != nil {
		return fmt.Errorf("telegram relay: %w", err)
	}

	table := routing.TableFromConfig(cfg.Routing)
	formatter := format.New(cfg.Calendar.BaseURL)
	orch := delivery.NewOrchestrator(st, relay, table, formatter)

	pollerLog := logging.With().Str("component", "reminder-poller").Logger()
	poller := reminder.NewPoller(st, orch, loc, &pollerLog, reminder.Config{
		PollInterval:     cfg.Reminder.PollInterval,
		MaxConcurrent:    cfg.Reminder.MaxConcurrent,
		ExecutionTimeout: cfg.Telegram.BulkSendTimeout,
		Enabled:          cfg.Reminder.Enabled,
	})

	// The digest goes to the schedule chat when one is configured.
	digestChat := cfg.Routing.ScheduleChatID
	if digestChat == 0 {
		digestChat = cfg.Routing.DefaultChatID
	}
	digestLog := logging.With().Str("component", "daily-digest").Logger()
	digest, err := reminder.NewDigest(st, relay, formatter, loc, &digestLog, reminder.DigestConfig{
		Enabled:  cfg.Digest.Enabled,
		Cron:     cfg.Digest.Cron,
		ChatID:   digestChat,
		ThreadID: cfg.Routing.ScheduleThreadID,
	})
	if err != nil {
		return fmt.Errorf("digest: %w", err)
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}

	server := api.NewServer(cfg, st, orch, importer.New(st), jwtManager)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddStoreService(services.NewLoopService("store-gc", func(ctx context.Context) {
		st.RunGC(ctx, cfg.Store.GCInterval)
	}))
	tree.AddScheduleService(services.NewLifecycleService("reminder-poller", poller))
	if cfg.Digest.Enabled {
		tree.AddScheduleService(services.NewLifecycleService("daily-digest", digest))
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("addr", httpServer.Addr).
		Str("timezone", loc.String()).
		Bool("reminders", cfg.Reminder.Enabled).
		Bool("digest", cfg.Digest.Enabled).
		Msg("ClassBridge starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	log.Info().Msg("ClassBridge stopped")
	return nil
}

// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/classbridge/config.yaml",
	"/etc/classbridge/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are layered
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			Timeout:  30 * time.Second,
			Timezone: "UTC",
		},
		Telegram: TelegramConfig{
			BotToken:                "",
			APIBaseURL:              "https://api.telegram.org",
			BulkSendTimeout:         10 * time.Second,
			ResendTimeout:           30 * time.Second,
			MessagesPerSecond:       25, // Telegram caps bots at ~30 msg/s
			BreakerFailureThreshold: 5,
		},
		Routing: RoutingConfig{},
		Calendar: CalendarConfig{
			BaseURL: "http://localhost:3000",
		},
		Reminder: ReminderConfig{
			Enabled:       true,
			PollInterval:  time.Minute,
			MaxConcurrent: 5,
		},
		Digest: DigestConfig{
			Enabled: false,
			Cron:    "0 20 * * *", // 20:00 daily
		},
		Store: StoreConfig{
			Path:       "/data/classbridge",
			GCInterval: 10 * time.Minute,
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load assembles configuration using koanf with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// The legacy deployment names (BOT_TOKEN, DEFAULT_CHAT_ID, FRONTEND_URL,
// WORKER_POLL_INTERVAL) are kept; durations take Go syntax ("60s", "5m").
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"timezone":     "server.timezone",

		// Telegram relay
		"bot_token":                  "telegram.bot_token",
		"telegram_api_url":           "telegram.api_base_url",
		"telegram_bulk_send_timeout": "telegram.bulk_send_timeout",
		"telegram_resend_timeout":    "telegram.resend_timeout",
		"telegram_msgs_per_second":   "telegram.messages_per_second",
		"telegram_breaker_failures":  "telegram.breaker_failure_threshold",

		// Routing
		"default_chat_id":        "routing.default_chat_id",
		"schedule_chat_id":       "routing.schedule_chat_id",
		"homework_chat_id":       "routing.homework_chat_id",
		"announcement_chat_id":   "routing.announcement_chat_id",
		"schedule_thread_id":     "routing.schedule_thread_id",
		"homework_thread_id":     "routing.homework_thread_id",
		"announcement_thread_id": "routing.announcement_thread_id",

		// Calendar links
		"frontend_url": "calendar.base_url",

		// Reminder poller
		"reminder_enabled":        "reminder.enabled",
		"worker_poll_interval":    "reminder.poll_interval",
		"reminder_max_concurrent": "reminder.max_concurrent",

		// Digest
		"digest_enabled": "digest.enabled",
		"digest_cron":    "digest.cron",

		// Store
		"store_path":        "store.path",
		"store_gc_interval": "store.gc_interval",

		// Security
		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"admin_username":      "security.admin_username",
		"admin_password_hash": "security.admin_password_hash",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"cors_origins":        "security.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables do not
	// pollute the config.
	return ""
}

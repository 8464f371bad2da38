// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package config provides layered configuration loading for ClassBridge.
//
// Configuration is assembled from three layers, later layers overriding
// earlier ones: built-in defaults, an optional YAML file, and environment
// variables. The resulting Config is constructed once at process start and
// passed by reference; it is never mutated at runtime.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Telegram TelegramConfig `koanf:"telegram"`
	Routing  RoutingConfig  `koanf:"routing"`
	Calendar CalendarConfig `koanf:"calendar"`
	Reminder ReminderConfig `koanf:"reminder"`
	Digest   DigestConfig   `koanf:"digest"`
	Store    StoreConfig    `koanf:"store"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// Timezone is the IANA zone in which event dates and wall-clock times
	// are interpreted (reminder instants, digests). Default: UTC.
	Timezone string `koanf:"timezone"`
}

// TelegramConfig holds relay settings for the Telegram Bot API.
type TelegramConfig struct {
	BotToken   string `koanf:"bot_token"`
	APIBaseURL string `koanf:"api_base_url"`

	// BulkSendTimeout bounds sends on bulk paths (import, reminder poller).
	BulkSendTimeout time.Duration `koanf:"bulk_send_timeout"`

	// ResendTimeout bounds interactive re-send requests.
	ResendTimeout time.Duration `koanf:"resend_timeout"`

	// MessagesPerSecond limits outbound sends across all paths.
	MessagesPerSecond float64 `koanf:"messages_per_second"`

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the relay circuit breaker.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold"`
}

// RoutingConfig is the static destination table consumed by the routing
// resolver. Zero means "not configured" for every id field; Telegram never
// assigns chat or thread id 0.
type RoutingConfig struct {
	DefaultChatID int64 `koanf:"default_chat_id"`

	ScheduleChatID     int64 `koanf:"schedule_chat_id"`
	HomeworkChatID     int64 `koanf:"homework_chat_id"`
	AnnouncementChatID int64 `koanf:"announcement_chat_id"`

	ScheduleThreadID     int64 `koanf:"schedule_thread_id"`
	HomeworkThreadID     int64 `koanf:"homework_thread_id"`
	AnnouncementThreadID int64 `koanf:"announcement_thread_id"`
}

// CalendarConfig holds link-generation settings.
type CalendarConfig struct {
	// BaseURL is the public calendar frontend, used to build the detail
	// link appended to every outgoing message.
	BaseURL string `koanf:"base_url"`
}

// ReminderConfig holds reminder poller settings.
type ReminderConfig struct {
	Enabled       bool          `koanf:"enabled"`
	PollInterval  time.Duration `koanf:"poll_interval"`
	MaxConcurrent int           `koanf:"max_concurrent"`
}

// DigestConfig holds the optional daily schedule digest settings.
type DigestConfig struct {
	Enabled bool `koanf:"enabled"`

	// Cron is a standard 5-field expression for when the digest posts.
	Cron string `koanf:"cron"`
}

// StoreConfig holds event store settings.
type StoreConfig struct {
	// Path is the Badger database directory.
	Path string `koanf:"path"`

	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SecurityConfig holds API authentication and rate-limit settings.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	AdminUsername string `koanf:"admin_username"`
	// AdminPasswordHash is a bcrypt hash of the admin password.
	AdminPasswordHash string `koanf:"admin_password_hash"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Server.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timezone != "" {
		if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
			return fmt.Errorf("server.timezone: %w", err)
		}
	}
	if c.Telegram.BotToken != "" {
		// Bot tokens are "<numeric id>:<secret>".
		parts := strings.SplitN(c.Telegram.BotToken, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("telegram.bot_token has invalid format")
		}
	}
	if c.Reminder.Enabled && c.Reminder.PollInterval <= 0 {
		return fmt.Errorf("reminder.poll_interval must be positive")
	}
	if c.Digest.Enabled {
		if fields := strings.Fields(c.Digest.Cron); len(fields) != 5 {
			return fmt.Errorf("digest.cron must have 5 fields, got %d", len(strings.Fields(c.Digest.Cron)))
		}
	}
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	return nil
}

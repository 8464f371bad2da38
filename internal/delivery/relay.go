// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

// Package delivery sends event notifications to Telegram and tracks the
// resulting message identifiers. The orchestrator drives routing,
// formatting, bulk-path fallbacks and sent-state bookkeeping; the relay
// speaks the Bot API.
//
// Relay failures never surface as Go errors past the orchestrator
// boundary. They are encoded in the result so event creation and updates
// are never rolled back because of a delivery fault.
package delivery

import (
	"context"
	"time"
)

// Relay delivers message text to a chat destination over a network
// boundary. Failures are encoded in the RelayResult, never raised; a
// non-2xx status and a transport exception are treated identically.
type Relay interface {
	// Send posts text to the chat, optionally into a topic thread.
	Send(ctx context.Context, chatID int64, threadID *int64, text string) *RelayResult

	// CreateTopic creates a forum topic in the chat and returns its
	// thread id.
	CreateTopic(ctx context.Context, chatID int64, name string) (int64, error)
}

// Error codes for delivery failures.
const (
	ErrorCodeNoDestination    = "NO_DESTINATION"
	ErrorCodeConnectionFailed = "CONNECTION_FAILED"
	ErrorCodeAuthFailed       = "AUTH_FAILED"
	ErrorCodeChatNotFound     = "CHAT_NOT_FOUND"
	ErrorCodeThreadInvalid    = "THREAD_INVALID"
	ErrorCodeRateLimited      = "RATE_LIMITED"
	ErrorCodeServerError      = "SERVER_ERROR"
	ErrorCodeTimeout          = "TIMEOUT"
	ErrorCodeCircuitOpen      = "CIRCUIT_OPEN"
	ErrorCodeStoreFault       = "STORE_FAULT"
	ErrorCodeUnknown          = "UNKNOWN"
)

// RelayResult is the outcome of one relay attempt. MessageID zero means
// the relay produced no usable delivery identifier.
type RelayResult struct {
	// MessageID is the external message identifier on success.
	MessageID int64

	// ErrorMessage contains error details if the attempt failed.
	ErrorMessage string

	// ErrorCode is a machine-readable error code.
	ErrorCode string

	// IsTransient indicates whether a retry could succeed.
	IsTransient bool

	// RetryAfter suggests when to retry (rate limiting).
	RetryAfter *time.Duration

	// ResponseCode is the HTTP status of the relay response.
	ResponseCode int

	// raw holds the undecoded result payload for non-message methods.
	raw []byte
}

// OK reports whether the attempt produced a delivery identifier.
func (r *RelayResult) OK() bool {
	return r != nil && r.MessageID != 0
}

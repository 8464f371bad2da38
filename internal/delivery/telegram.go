// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/m15lab/classbridge/internal/logging"
	"github.com/m15lab/classbridge/internal/metrics"
)

// Telegram caps messages at 4096 characters.
const telegramMaxTextLen = 4096

// TelegramRelay implements Relay over the Telegram Bot API.
type TelegramRelay struct {
	client  *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*RelayResult]
}

// TelegramRelayConfig configures the relay.
type TelegramRelayConfig struct {
	// BotToken in the "id:secret" Bot API format.
	BotToken string

	// APIBaseURL defaults to https://api.telegram.org.
	APIBaseURL string

	// Timeout per HTTP request.
	Timeout time.Duration

	// MessagesPerSecond bounds outgoing rate. Telegram allows ~30/s
	// overall but only ~20/min per group, so deployments keep this low.
	MessagesPerSecond float64

	// BreakerFailureThreshold is the consecutive-failure count that
	// opens the circuit.
	BreakerFailureThreshold uint32
}

// NewTelegramRelay creates a relay for the Bot API.
func NewTelegramRelay(cfg TelegramRelayConfig) (*TelegramRelay, error) {
	parts := strings.Split(cfg.BotToken, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid Telegram bot token format")
	}

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	mps := cfg.MessagesPerSecond
	if mps <= 0 {
		mps = 25
	}
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cbSettings := gobreaker.Settings{
		Name:    "telegram-relay",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerOpen(to == gobreaker.StateOpen)
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Telegram relay circuit breaker state change")
		},
	}

	return &TelegramRelay{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.BotToken,
		limiter: rate.NewLimiter(rate.Limit(mps), 1),
		breaker: gobreaker.NewCircuitBreaker[*RelayResult](cbSettings),
	}, nil
}

// telegramSendMessageRequest is the sendMessage API payload.
type telegramSendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	MessageThreadID       *int64 `json:"message_thread_id,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// telegramCreateTopicRequest is the createForumTopic API payload.
type telegramCreateTopicRequest struct {
	ChatID int64  `json:"chat_id"`
	Name   string `json:"name"`
}

// telegramAPIResponse is the Bot API response envelope.
type telegramAPIResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *telegramParameters `json:"parameters,omitempty"`
}

type telegramParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

// Send posts text to the chat via sendMessage.
func (t *TelegramRelay) Send(ctx context.Context, chatID int64, threadID *int64, text string) *RelayResult {
	// Telegram's limit is 4096 characters, not bytes. Cut on a rune
	// boundary so multi-byte text never ends in a mangled sequence.
	if utf8.RuneCountInString(text) > telegramMaxTextLen {
		text = string([]rune(text)[:telegramMaxTextLen])
	}

	payload := telegramSendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		MessageThreadID:       threadID,
		DisableWebPagePreview: true,
	}

	result, err := t.breaker.Execute(func() (*RelayResult, error) {
		res := t.call(ctx, "sendMessage", payload)
		if res.IsTransient && res.MessageID == 0 {
			// Transient faults count against the breaker
			return res, errors.New(res.ErrorMessage)
		}
		return res, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &RelayResult{
				ErrorMessage: err.Error(),
				ErrorCode:    ErrorCodeCircuitOpen,
				IsTransient:  true,
			}
		}
		if result != nil {
			return result
		}
		return &RelayResult{
			ErrorMessage: err.Error(),
			ErrorCode:    ErrorCodeUnknown,
			IsTransient:  true,
		}
	}
	return result
}

// CreateTopic creates a forum topic via createForumTopic and returns its
// message_thread_id.
func (t *TelegramRelay) CreateTopic(ctx context.Context, chatID int64, name string) (int64, error) {
	res := t.call(ctx, "createForumTopic", telegramCreateTopicRequest{ChatID: chatID, Name: name})
	if res.ErrorCode != "" {
		return 0, fmt.Errorf("create forum topic: %s (%s)", res.ErrorMessage, res.ErrorCode)
	}
	var topic struct {
		MessageThreadID int64 `json:"message_thread_id"`
	}
	if err := json.Unmarshal(res.raw, &topic); err != nil {
		return 0, fmt.Errorf("parse createForumTopic response: %w", err)
	}
	if topic.MessageThreadID == 0 {
		return 0, errors.New("createForumTopic returned no thread id")
	}
	return topic.MessageThreadID, nil
}

// call performs one Bot API method invocation and classifies the outcome.
func (t *TelegramRelay) call(ctx context.Context, method string, payload interface{}) *RelayResult {
	result := &RelayResult{}

	if err := t.limiter.Wait(ctx); err != nil {
		result.ErrorMessage = fmt.Sprintf("rate limiter wait: %v", err)
		result.ErrorCode = ErrorCodeTimeout
		result.IsTransient = true
		return result
	}

	body, err := json.Marshal(payload)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("marshal payload: %v", err)
		result.ErrorCode = ErrorCodeUnknown
		return result
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("create request: %v", err)
		result.ErrorCode = ErrorCodeUnknown
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("send request: %v", err)
		result.ErrorCode = classifyTransportError(err)
		result.IsTransient = isTransientError(result.ErrorCode)
		return result
	}
	defer resp.Body.Close()
	result.ResponseCode = resp.StatusCode

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("read response: %v", err)
		result.ErrorCode = ErrorCodeConnectionFailed
		result.IsTransient = true
		return result
	}

	var apiResp telegramAPIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		result.ErrorMessage = fmt.Sprintf("parse response: %v", err)
		result.ErrorCode = ErrorCodeUnknown
		return result
	}

	if apiResp.OK {
		result.raw = apiResp.Result
		var msg struct {
			MessageID int64 `json:"message_id"`
		}
		// createForumTopic results carry no message_id; Send callers
		// check MessageID, topic callers read raw
		_ = json.Unmarshal(apiResp.Result, &msg)
		result.MessageID = msg.MessageID
		return result
	}

	result.ErrorMessage = apiResp.Description
	result.ErrorCode = classifyTelegramError(apiResp.ErrorCode, apiResp.Description)
	result.IsTransient = isTransientError(result.ErrorCode)
	if apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
		retryAfter := time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		result.RetryAfter = &retryAfter
	}
	return result
}

// classifyTransportError maps a client-side error to an error code.
func classifyTransportError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return ErrorCodeTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "refused") {
		return ErrorCodeConnectionFailed
	}
	return ErrorCodeUnknown
}

// classifyTelegramError maps a Bot API error response to an error code.
func classifyTelegramError(code int, description string) string {
	switch code {
	case 401:
		return ErrorCodeAuthFailed
	case 400:
		if strings.Contains(description, "chat not found") {
			return ErrorCodeChatNotFound
		}
		if strings.Contains(description, "thread not found") || strings.Contains(description, "TOPIC_CLOSED") {
			return ErrorCodeThreadInvalid
		}
		return ErrorCodeUnknown
	case 403:
		return ErrorCodeChatNotFound // Bot was kicked or lacks access
	case 429:
		return ErrorCodeRateLimited
	default:
		if code >= 500 {
			return ErrorCodeServerError
		}
		return ErrorCodeUnknown
	}
}

// isTransientError reports whether a retry could succeed.
func isTransientError(code string) bool {
	switch code {
	case ErrorCodeConnectionFailed, ErrorCodeTimeout, ErrorCodeRateLimited, ErrorCodeServerError, ErrorCodeCircuitOpen:
		return true
	default:
		return false
	}
}

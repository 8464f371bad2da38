// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

func newTestRelay(t *testing.T, handler http.HandlerFunc) *TelegramRelay {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	relay, err := NewTelegramRelay(TelegramRelayConfig{
		BotToken:          "12345:testsecret",
		APIBaseURL:        srv.URL,
		Timeout:           2 * time.Second,
		MessagesPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("NewTelegramRelay: %v", err)
	}
	return relay
}

func TestNewTelegramRelayRejectsBadToken(t *testing.T) {
	for _, token := range []string{"", "no-colon", ":secret", "12345:"} {
		if _, err := NewTelegramRelay(TelegramRelayConfig{BotToken: token}); err == nil {
			t.Errorf("token %q: expected error", token)
		}
	}
}

func TestTelegramSendSuccess(t *testing.T) {
	var gotPath string
	var gotReq telegramSendMessageRequest

	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"message_id": 4242},
		})
	})

	threadID := int64(77)
	res := relay.Send(context.Background(), -100123, &threadID, "hello class")
	if !res.OK() {
		t.Fatalf("Send failed: %+v", res)
	}
	if res.MessageID != 4242 {
		t.Errorf("MessageID = %d, want 4242", res.MessageID)
	}
	if gotPath != "/bot12345:testsecret/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.ChatID != -100123 {
		t.Errorf("chat_id = %d, want -100123", gotReq.ChatID)
	}
	if gotReq.MessageThreadID == nil || *gotReq.MessageThreadID != 77 {
		t.Errorf("message_thread_id = %v, want 77", gotReq.MessageThreadID)
	}
	if gotReq.Text != "hello class" {
		t.Errorf("text = %q", gotReq.Text)
	}
}

func TestTelegramSendOmitsThreadField(t *testing.T) {
	var rawBody map[string]interface{}

	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&rawBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"message_id": 1},
		})
	})

	if res := relay.Send(context.Background(), -1, nil, "x"); !res.OK() {
		t.Fatalf("Send failed: %+v", res)
	}
	if _, present := rawBody["message_thread_id"]; present {
		t.Error("message_thread_id must be omitted when nil")
	}
}

func TestTelegramSendAPIError(t *testing.T) {
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: chat not found",
		})
	})

	res := relay.Send(context.Background(), -1, nil, "x")
	if res.OK() {
		t.Fatal("expected failure")
	}
	if res.ErrorCode != ErrorCodeChatNotFound {
		t.Errorf("ErrorCode = %q, want %q", res.ErrorCode, ErrorCodeChatNotFound)
	}
	if res.IsTransient {
		t.Error("chat not found is not transient")
	}
}

func TestTelegramSendRateLimited(t *testing.T) {
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":          false,
			"error_code":  429,
			"description": "Too Many Requests: retry after 30",
			"parameters":  map[string]interface{}{"retry_after": 30},
		})
	})

	res := relay.Send(context.Background(), -1, nil, "x")
	if res.OK() {
		t.Fatal("expected failure")
	}
	if res.ErrorCode != ErrorCodeRateLimited {
		t.Errorf("ErrorCode = %q, want %q", res.ErrorCode, ErrorCodeRateLimited)
	}
	if !res.IsTransient {
		t.Error("rate limiting is transient")
	}
	if res.RetryAfter == nil || *res.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", res.RetryAfter)
	}
}

func TestTelegramSendTransportFault(t *testing.T) {
	relay, err := NewTelegramRelay(TelegramRelayConfig{
		BotToken:          "12345:testsecret",
		APIBaseURL:        "http://127.0.0.1:1", // nothing listens here
		Timeout:           500 * time.Millisecond,
		MessagesPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("NewTelegramRelay: %v", err)
	}

	res := relay.Send(context.Background(), -1, nil, "x")
	if res.OK() {
		t.Fatal("expected failure")
	}
	if !res.IsTransient {
		t.Error("connection failure is transient")
	}
}

func TestTelegramSendTruncatesLongText(t *testing.T) {
	var gotLen int
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		var req telegramSendMessageRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotLen = len(req.Text)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"message_id": 1},
		})
	})

	long := strings.Repeat("a", telegramMaxTextLen+500)
	if res := relay.Send(context.Background(), -1, nil, long); !res.OK() {
		t.Fatalf("Send failed: %+v", res)
	}
	if gotLen != telegramMaxTextLen {
		t.Errorf("text length = %d, want %d", gotLen, telegramMaxTextLen)
	}
}

func TestTelegramSendTruncatesByRunes(t *testing.T) {
	var gotText string
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		var req telegramSendMessageRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotText = req.Text
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"message_id": 1},
		})
	})

	// Cyrillic runes are two bytes each, so a byte-based cut would land
	// mid-rune and lose half the allowed characters.
	long := strings.Repeat("я", telegramMaxTextLen+500)
	if res := relay.Send(context.Background(), -1, nil, long); !res.OK() {
		t.Fatalf("Send failed: %+v", res)
	}
	if n := utf8.RuneCountInString(gotText); n != telegramMaxTextLen {
		t.Errorf("rune count = %d, want %d", n, telegramMaxTextLen)
	}
	if !utf8.ValidString(gotText) || strings.ContainsRune(gotText, utf8.RuneError) {
		t.Error("truncated text contains a broken rune")
	}
}

func TestTelegramCreateTopic(t *testing.T) {
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/createForumTopic") {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"message_thread_id": 99, "name": "Homework"},
		})
	})

	id, err := relay.CreateTopic(context.Background(), -100123, "Homework")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	if id != 99 {
		t.Errorf("thread id = %d, want 99", id)
	}
}

func TestTelegramCreateTopicError(t *testing.T) {
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: the chat is not a forum",
		})
	})

	if _, err := relay.CreateTopic(context.Background(), -1, "Homework"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTelegramBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":          false,
			"error_code":  500,
			"description": "Internal Server Error",
		})
	}))
	defer srv.Close()

	relay, err := NewTelegramRelay(TelegramRelayConfig{
		BotToken:                "12345:testsecret",
		APIBaseURL:              srv.URL,
		Timeout:                 time.Second,
		MessagesPerSecond:       1000,
		BreakerFailureThreshold: 3,
	})
	if err != nil {
		t.Fatalf("NewTelegramRelay: %v", err)
	}

	for i := 0; i < 3; i++ {
		res := relay.Send(context.Background(), -1, nil, "x")
		if res.ErrorCode != ErrorCodeServerError {
			t.Fatalf("attempt %d: ErrorCode = %q, want SERVER_ERROR", i, res.ErrorCode)
		}
	}

	res := relay.Send(context.Background(), -1, nil, "x")
	if res.ErrorCode != ErrorCodeCircuitOpen {
		t.Errorf("ErrorCode = %q, want %q after threshold", res.ErrorCode, ErrorCodeCircuitOpen)
	}
}

// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package auth

import (
	"testing"
	"time"

	"github.com/m15lab/classbridge/internal/config"
)

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		SessionTimeout: time.Hour,
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken("admin", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username != "admin" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTRejectsEmptySecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	token, err := m.GenerateToken("admin", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := m.ValidateToken(token + "x"); err == nil {
		t.Error("tampered token must be rejected")
	}
	if _, err := m.ValidateToken("not.a.token"); err == nil {
		t.Error("malformed token must be rejected")
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	m1, _ := NewJWTManager(testSecurityConfig())
	m2, _ := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "ffffffffffffffffffffffffffffffff",
		SessionTimeout: time.Hour,
	})

	token, err := m1.GenerateToken("admin", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m2.ValidateToken(token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestCheckCredentials(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !CheckCredentials("admin", "s3cret-password", "admin", hash) {
		t.Error("valid credentials rejected")
	}
	if CheckCredentials("admin", "wrong", "admin", hash) {
		t.Error("wrong password accepted")
	}
	if CheckCredentials("other", "s3cret-password", "admin", hash) {
		t.Error("wrong username accepted")
	}
}

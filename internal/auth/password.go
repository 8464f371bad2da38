// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// CheckCredentials verifies the admin username and password against the
// configured values. The username comparison is constant time and the
// password is checked against its bcrypt hash.
func CheckCredentials(username, password, wantUsername, passwordHash string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(wantUsername)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
	return userOK && passOK
}

// HashPassword produces a bcrypt hash for provisioning the admin
// credential.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

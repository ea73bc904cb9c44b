// Package id provides utilities for generating unique identifiers.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Generate returns a random 8-character hex ID, used for agents, chat items,
// and permission requests.
func Generate() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateSession returns a random 16-character hex ID for session files.
// Longer than Generate because session IDs outlive the process and must not
// collide across runs.
func GenerateSession() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

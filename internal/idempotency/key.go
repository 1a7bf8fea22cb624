// Package idempotency mints the keys that make order submission at-most-once
// and keeps resumable keys alive across checkout reloads.
package idempotency

import (
	"github.com/google/uuid"
)

// Scope selects how many keys an attempt needs.
type Scope int

const (
	// ScopeUnified mints a single key for the whole attempt.
	ScopeUnified Scope = iota
	// ScopeFast mints one independent key per item.
	ScopeFast
)

const fastKeyPrefix = "fast-"

// NewKey returns a fresh random key.
func NewKey() string {
	return uuid.NewString()
}

// NewFastKey returns a fresh random key for one fast-shipping sub-order.
func NewFastKey() string {
	return fastKeyPrefix + uuid.NewString()
}

// Generate returns the keys for an attempt: one key for ScopeUnified, n
// independent keys for ScopeFast. Fast keys are never derived from a group
// key, so retrying part of a fan-out cannot collide with sub-orders already
// created.
func Generate(scope Scope, n int) []string {
	if scope == ScopeUnified {
		return []string{NewKey()}
	}
	if n <= 0 {
		return nil
	}
	keys := make([]string, n)
	for i := range keys {
		keys[i] = NewFastKey()
	}
	return keys
}

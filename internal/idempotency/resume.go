package idempotency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ResumeTTL is how long a resumable key survives without being confirmed.
const ResumeTTL = 24 * time.Hour

const resumePrefix = "resume_"

// ResumeManager binds keys to human-readable order codes so that reloading a
// checkout before confirmation reuses the key instead of minting a new one.
type ResumeManager struct {
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
}

// NewResumeManager creates a manager over store with the standard 24h expiry.
func NewResumeManager(store Store, logger zerolog.Logger) *ResumeManager {
	return &ResumeManager{
		store:  store,
		ttl:    ResumeTTL,
		logger: logger.With().Str("component", "resume-keys").Logger(),
	}
}

// Resumable returns the key bound to orderCode, minting and storing one when
// no unexpired entry exists.
func (m *ResumeManager) Resumable(ctx context.Context, orderCode string) (string, error) {
	orderCode = strings.TrimSpace(orderCode)
	if orderCode == "" {
		return "", fmt.Errorf("order code is required for a resumable key")
	}

	candidate := NewKey()
	key, err := m.store.SetIfAbsent(ctx, resumePrefix+orderCode, candidate, m.ttl)
	if err != nil {
		m.logger.Error().Err(err).Str("order_code", orderCode).Msg("failed to resolve resumable key")
		return "", err
	}

	m.logger.Debug().
		Str("order_code", orderCode).
		Bool("resumed", key != candidate).
		Msg("resumable key resolved")

	return key, nil
}

// Discard forgets the key bound to orderCode.
func (m *ResumeManager) Discard(ctx context.Context, orderCode string) error {
	if err := m.store.Delete(ctx, resumePrefix+strings.TrimSpace(orderCode)); err != nil {
		m.logger.Warn().Err(err).Str("order_code", orderCode).Msg("failed to discard resumable key")
		return err
	}
	return nil
}

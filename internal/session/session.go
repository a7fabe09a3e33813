// Package session holds short-lived credential sessions in memory.
//
// Sessions never touch durable storage. Credential material lives only in
// this process, is redacted from logs, and is cleared before a session is
// dropped.
package session

import (
	"log/slog"
	"strings"
	"time"

	"panelsmith/internal/services"
)

// Credentials is the opaque bundle of collaborator keys attached to a
// session. The analysis key authenticates story analysis calls, the
// synthesis key authenticates image generation calls.
type Credentials struct {
	AnalysisKey  string
	SynthesisKey string
}

// LogValue implements slog.LogValuer so credential material never reaches a
// log handler regardless of how the bundle is passed to a logger.
func (Credentials) LogValue() slog.Value {
	return slog.StringValue("[redacted]")
}

// Empty reports whether no key material is present.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.AnalysisKey) == "" && strings.TrimSpace(c.SynthesisKey) == ""
}

// Validate checks that both keys are present and plausibly shaped.
func (c Credentials) Validate() error {
	analysis := strings.TrimSpace(c.AnalysisKey)
	synthesis := strings.TrimSpace(c.SynthesisKey)
	if analysis == "" {
		return services.Wrap(services.ErrValidation, "session", "validate credentials", "analysis key is required", nil)
	}
	if synthesis == "" {
		return services.Wrap(services.ErrValidation, "session", "validate credentials", "synthesis key is required", nil)
	}
	if !strings.HasPrefix(analysis, "sk-") {
		return services.Wrap(services.ErrValidation, "session", "validate credentials", `analysis key must start with "sk-"`, nil)
	}
	if !strings.HasPrefix(synthesis, "sk-") {
		return services.Wrap(services.ErrValidation, "session", "validate credentials", `synthesis key must start with "sk-"`, nil)
	}
	return nil
}

// Session is a credential holder identified by an opaque token. It is
// immutable after creation except for credential attachment and deletion.
type Session struct {
	Token       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Credentials Credentials
}

// HasCredentials reports whether a credential bundle has been attached.
func (s *Session) HasCredentials() bool {
	return s != nil && !s.Credentials.Empty()
}

// ExpiredAt reports whether the session is past its TTL at the given instant.
func (s *Session) ExpiredAt(now time.Time) bool {
	return s != nil && !now.Before(s.ExpiresAt)
}

package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"panelsmith/internal/logging"
	"panelsmith/internal/services"
)

// Store keeps sessions in a process-local map. A single mutex serializes
// every operation; request volume is low enough that coarse locking is the
// simplest correct choice.
type Store struct {
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store with the given TTL.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	return NewStoreWithClock(ttl, logger, time.Now)
}

// NewStoreWithClock creates a store whose notion of time is supplied by the
// caller. Tests use this to exercise expiry without sleeping.
func NewStoreWithClock(ttl time.Duration, logger *slog.Logger, now func() time.Time) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		ttl:      ttl,
		logger:   logging.NewComponentLogger(logger, "session"),
		now:      now,
		sessions: make(map[string]*Session),
	}
}

// Create mints a new session with a fresh opaque token and no credentials.
// The returned value is a copy; mutating it does not affect the store.
func (s *Store) Create() *Session {
	now := s.now()
	sess := &Session{
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	s.logger.Debug("created session",
		logging.String("session_token", sess.Token),
		logging.String("expires_at", sess.ExpiresAt.UTC().Format(time.RFC3339)))

	copied := *sess
	return &copied
}

// Attach stores a validated credential bundle on an existing session.
// Unknown and expired tokens report not-found.
func (s *Store) Attach(token string, credentials Credentials) error {
	if err := credentials.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookupLocked(token)
	if sess == nil {
		return services.Wrap(services.ErrNotFound, "session", "attach credentials", "unknown or expired session", nil)
	}
	sess.Credentials = credentials

	s.logger.Debug("attached credentials", logging.String("session_token", token))
	return nil
}

// Get returns a copy of the session, or nil when the token is unknown or the
// session has expired. Expired sessions are removed on the spot, so a TTL
// breach never requires waiting for the janitor.
func (s *Store) Get(token string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookupLocked(token)
	if sess == nil {
		return nil
	}
	copied := *sess
	return &copied
}

// Delete removes a session. Credential fields are overwritten before the map
// entry is dropped so concurrent holders of the pointer cannot read stale key
// material. Unknown tokens are a no-op.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(token)
}

// Sweep removes every session expired at the given instant and returns how
// many were dropped.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if sess.ExpiredAt(now) {
			s.deleteLocked(token)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("swept expired sessions", logging.Int("session_count", removed))
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// lookupLocked resolves a token to its live session, lazily deleting it when
// expired. Callers must hold s.mu.
func (s *Store) lookupLocked(token string) *Session {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	sess, found := s.sessions[token]
	if !found {
		return nil
	}
	if sess.ExpiredAt(s.now()) {
		s.deleteLocked(token)
		return nil
	}
	return sess
}

// deleteLocked clears credentials and removes the entry. Callers must hold
// s.mu.
func (s *Store) deleteLocked(token string) {
	sess, found := s.sessions[token]
	if !found {
		return
	}
	sess.Credentials.AnalysisKey = ""
	sess.Credentials.SynthesisKey = ""
	delete(s.sessions, token)
}

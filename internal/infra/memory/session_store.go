package memory

import (
	"context"
	"sync"
	"time"

	"chapter-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions expire after ttl of inactivity; a ttl of 0 disables expiry.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]session
}

type session struct {
	identity  domain.Identity
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return NewSessionStoreWithClock(ttl, time.Now)
}

// NewSessionStoreWithClock is test-only for deterministic expiry.
func NewSessionStoreWithClock(ttl time.Duration, clock func() time.Time) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]session),
	}
}

func (s *SessionStore) Create(_ context.Context, identity domain.Identity) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.sessions[token] = session{identity: identity, expiresAt: s.expiry()}
	return token, nil
}

func (s *SessionStore) Get(_ context.Context, token string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if s.expired(sess) {
		delete(s.sessions, token)
		return domain.Identity{}, domain.ErrUnauthorized
	}
	sess.expiresAt = s.expiry()
	s.sessions[token] = sess
	return sess.identity, nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.clock().Add(s.ttl)
}

func (s *SessionStore) expired(sess session) bool {
	return !sess.expiresAt.IsZero() && !sess.expiresAt.After(s.clock())
}

func (s *SessionStore) pruneLocked() {
	for token, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, token)
		}
	}
}

// Package session owns the client's authenticated identity.
//
// A Store is the single source of truth for {token, role, callsign} during a
// process lifetime. Token and role are persisted together through a Backend so
// a later process can resume; callsign is never persisted. Backend failures
// degrade the Store to memory-only operation instead of surfacing errors.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/me/logshack/internal/logging"
	"github.com/me/logshack/pkg/model"
)

// Backend persists the token/role pair. Save and Clear must write or remove
// both values atomically.
type Backend interface {
	Load(ctx context.Context) (token, role string, err error)
	Save(ctx context.Context, token, role string) error
	Clear(ctx context.Context) error
}

// Store holds the current session.
type Store struct {
	mu       sync.RWMutex
	current  model.Session
	backend  Backend
	degraded bool
	logger   *slog.Logger
}

// NewStore creates a Store over backend. A nil backend means memory-only.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Store{backend: backend, logger: logger.With("component", "session")}
	if backend == nil {
		s.degraded = true
	}
	return s
}

// Restore loads the persisted pair. It returns a session only when both the
// token and a recognised role are present; anything else leaves the store
// unauthenticated and purges the partial pair from the backend.
func (s *Store) Restore(ctx context.Context) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = model.Session{}
	if s.degraded {
		return model.Session{}, false
	}

	token, role, err := s.backend.Load(ctx)
	if err != nil {
		s.degrade("restore", err)
		return model.Session{}, false
	}

	sess := model.Session{Token: token, Role: model.Role(role)}
	if !sess.Valid() {
		if token != "" || role != "" {
			s.logger.Warn("discarding incomplete persisted session", "has_token", token != "", "role", role)
			if err := s.backend.Clear(ctx); err != nil {
				s.degrade("purge", err)
			}
		}
		return model.Session{}, false
	}

	s.current = sess
	s.logger.Debug("session restored", "role", sess.Role)
	return sess, true
}

// Establish installs a new session and persists token and role together.
// An unrecognised role is stored as model.RoleUser.
func (s *Store) Establish(ctx context.Context, token string, role model.Role, callsign string) model.Session {
	sess := model.Session{
		Token:    token,
		Role:     model.ParseRole(string(role)),
		Callsign: callsign,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = sess
	if !s.degraded {
		if err := s.backend.Save(ctx, sess.Token, string(sess.Role)); err != nil {
			s.degrade("save", err)
		}
	}
	s.logger.Debug("session established", "role", sess.Role, "callsign", callsign)
	return sess
}

// SetCallsign records the callsign learned from a server response.
func (s *Store) SetCallsign(callsign string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Token != "" {
		s.current.Callsign = callsign
	}
}

// Clear forgets the session in memory and in the backend. Idempotent.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = model.Session{}
	if !s.degraded {
		if err := s.backend.Clear(ctx); err != nil {
			s.degrade("clear", err)
		}
	}
}

// ClearIfToken clears the session only if its token is still token, and
// reports whether it did. Concurrent rejections of the same token therefore
// clear the session exactly once.
func (s *Store) ClearIfToken(ctx context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.current.Token != token {
		return false
	}
	s.current = model.Session{}
	if !s.degraded {
		if err := s.backend.Clear(ctx); err != nil {
			s.degrade("clear", err)
		}
	}
	return true
}

// Reload re-reads the backend and adopts whatever another process left
// there: a logout elsewhere clears this store, a login elsewhere replaces it.
// The callsign is kept when the token is unchanged.
func (s *Store) Reload(ctx context.Context) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return s.current
	}

	token, role, err := s.backend.Load(ctx)
	if err != nil {
		s.degrade("reload", err)
		return s.current
	}

	next := model.Session{Token: token, Role: model.Role(role)}
	if !next.Valid() {
		if s.current.Token != "" {
			s.logger.Info("session ended by another process")
		}
		s.current = model.Session{}
		return s.current
	}
	if next.Token == s.current.Token {
		next.Callsign = s.current.Callsign
	}
	s.current = next
	return s.current
}

// Current returns a copy of the session; the zero value when unauthenticated.
func (s *Store) Current() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the session token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Authenticated reports whether a session is present.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Valid()
}

// CurrentRole returns the session role, or model.RoleUser when unauthenticated.
func (s *Store) CurrentRole() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.Valid() {
		return model.RoleUser
	}
	return s.current.Role
}

// Degraded reports whether persistence has been abandoned for this process.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// degrade switches to memory-only mode. Callers hold s.mu.
func (s *Store) degrade(op string, err error) {
	if !s.degraded {
		s.logger.Warn("session persistence unavailable, continuing in memory", "op", op, "error", err)
	}
	s.degraded = true
}

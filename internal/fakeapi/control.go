package fakeapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/me/logshack/pkg/model"
)

// The methods in this file drive the fake from tests and from the mock
// server's seed data. They bypass the HTTP layer.

// AddUser creates an account and returns its id.
func (s *Server) AddUser(callsign, password string, role model.Role) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("fakeapi: hash password: %v", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{
		id:           s.id(),
		callsign:     strings.ToUpper(callsign),
		email:        strings.ToLower(callsign) + "@example.org",
		passwordHash: hash,
		role:         role,
		active:       true,
		createdAt:    time.Now().UTC(),
	}
	s.users[u.id] = u
	return u.id
}

// EnableMFA turns on MFA for callsign.
func (s *Server) EnableMFA(callsign string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.userByCallsign(callsign); u != nil {
		u.mfaSecret = newSecret()
		u.mfaEnabled = true
	}
}

// AddLogs appends QSOs to callsign's log and returns how many it now holds.
func (s *Server) AddLogs(callsign string, entries ...model.LogEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByCallsign(callsign)
	if u == nil {
		return 0
	}
	for _, e := range entries {
		e.ID = s.id()
		if e.StationCallsign == "" {
			e.StationCallsign = u.callsign
		}
		s.logs[u.id] = append(s.logs[u.id], e)
	}
	return len(s.logs[u.id])
}

// AddAPIKey issues an upload key for callsign and returns it.
func (s *Server) AddAPIKey(callsign, description string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByCallsign(callsign)
	if u == nil {
		return ""
	}
	return s.issueKey(u.id, description).key
}

// ExpireSessions invalidates every session of callsign, as a server-side
// timeout would.
func (s *Server) ExpireSessions(callsign string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByCallsign(callsign)
	if u == nil {
		return 0
	}
	return s.dropSessions(u.id)
}

// Fail makes the next request to method and path answer status with msg.
// Faults queue up per route.
func (s *Server) Fail(method, path string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.faults[key] = append(s.faults[key], fault{status: status, message: msg})
}

// Delay holds the next request to method and path for d before serving it.
func (s *Server) Delay(method, path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.faults[key] = append(s.faults[key], fault{delay: d})
}

// Requests reports how many requests reached method and path.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// SessionCount reports the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) takeFault(key string) (fault, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[key]++
	q := s.faults[key]
	if len(q) == 0 {
		return fault{}, false
	}
	f := q[0]
	if len(q) == 1 {
		delete(s.faults, key)
	} else {
		s.faults[key] = q[1:]
	}
	return f, true
}

// Callers of the helpers below hold s.mu.

func (s *Server) userByCallsign(callsign string) *user {
	callsign = strings.ToUpper(strings.TrimSpace(callsign))
	for _, u := range s.users {
		if u.callsign == callsign {
			return u
		}
	}
	return nil
}

func (s *Server) newSession(userID int64, mfaPending bool) string {
	token := "sess_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	s.sessions[token] = &session{userID: userID, mfaPending: mfaPending}
	return token
}

func (s *Server) dropSessions(userID int64) int {
	n := 0
	for tok, sess := range s.sessions {
		if sess.userID == userID {
			delete(s.sessions, tok)
			n++
		}
	}
	return n
}

func (s *Server) issueKey(userID int64, description string) *apiKey {
	full := "lsb_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	k := &apiKey{
		APIKey: model.APIKey{
			ID:          s.id(),
			Prefix:      full[:8],
			Description: description,
			CreatedAt:   model.NewTimestamp(time.Now().UTC()),
			IsActive:    true,
		},
		userID: userID,
		key:    full,
	}
	s.keys[k.ID] = k
	return k
}

func newSecret() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16])
}

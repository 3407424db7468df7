package fakeapi

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/logshack/pkg/model"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Callsign == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Missing callsign or password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userByCallsign(req.Callsign)
	if u == nil || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !u.active {
		respondError(w, http.StatusForbidden, "Account is disabled")
		return
	}

	token := s.newSession(u.id, u.mfaEnabled)
	if !u.mfaEnabled {
		now := time.Now().UTC()
		u.lastLogin = &now
	}
	respondOK(w, model.LoginResponse{
		SessionToken:       token,
		Callsign:           u.callsign,
		Role:               string(u.role),
		MFARequired:        u.mfaEnabled,
		MustChangePassword: u.mustChangePassword,
	})
}

func (s *Server) handleMFAVerify(w http.ResponseWriter, r *http.Request) {
	var req model.MFAVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[req.SessionToken]
	if !ok {
		respondError(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	u := s.users[sess.userID]
	if u == nil || !u.mfaEnabled {
		respondError(w, http.StatusBadRequest, "MFA not enabled")
		return
	}
	if req.Token != s.mfaCode {
		respondError(w, http.StatusBadRequest, "Invalid token")
		return
	}

	sess.mfaPending = false
	now := time.Now().UTC()
	u.lastLogin = &now
	respondOK(w, model.MFAVerifyResponse{
		Message:            "MFA verified successfully",
		MustChangePassword: u.mustChangePassword,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	callsign := strings.ToUpper(strings.TrimSpace(req.Callsign))
	if callsign == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	s.mu.Lock()
	exists := s.userByCallsign(callsign) != nil
	s.mu.Unlock()
	if exists {
		respondError(w, http.StatusBadRequest, "Callsign already registered")
		return
	}

	id := s.AddUser(callsign, req.Password, model.RoleUser)
	s.mu.Lock()
	s.users[id].email = req.Email
	s.mu.Unlock()

	respondCreated(w, map[string]any{"message": "Registration successful", "user_id": id})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Session-Token")
	s.mu.Lock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	respondMessage(w, "Logged out successfully")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	respondOK(w, model.Me{
		ID:         u.id,
		Callsign:   u.callsign,
		Email:      u.email,
		Role:       u.role,
		MFAEnabled: u.mfaEnabled,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req model.ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "Both current and new passwords are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(w, http.StatusBadRequest, "New password must be at least 8 characters")
		return
	}

	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.CurrentPassword)) != nil {
		respondError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	u.passwordHash = hash
	u.mustChangePassword = false
	respondMessage(w, "Password changed successfully")
}

func (s *Server) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	s.mu.Lock()
	u.mfaSecret = newSecret()
	secret := u.mfaSecret
	callsign := u.callsign
	s.mu.Unlock()

	respondOK(w, model.MFASetup{
		Secret: secret,
		QRCode: "otpauth://totp/LogShackBaby:" + callsign + "?secret=" + secret + "&issuer=LogShackBaby",
	})
}

func (s *Server) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.mfaSecret == "" {
		respondError(w, http.StatusBadRequest, "MFA not set up")
		return
	}
	if req.Token != s.mfaCode {
		respondError(w, http.StatusBadRequest, "Invalid token")
		return
	}
	u.mfaEnabled = true
	respondMessage(w, "MFA enabled successfully")
}

func (s *Server) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		respondError(w, http.StatusBadRequest, "Invalid password")
		return
	}
	u.mfaEnabled = false
	u.mfaSecret = ""
	respondMessage(w, "MFA disabled successfully")
}

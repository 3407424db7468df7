package fakeapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/me/logshack/pkg/model"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyUser      ctxKey = "user"
)

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func userFromContext(ctx context.Context) *user {
	u, _ := ctx.Value(ctxKeyUser).(*user)
	return u
}

// requestIDMiddleware echoes the caller's X-Request-ID or generates one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = requestID()
		}
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs HTTP requests at INFO level (method, path, status, duration).
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// countingMiddleware records every request and serves injected faults.
func (s *Server) countingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f, ok := s.takeFault(key)
		if ok && f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		if ok && f.status != 0 {
			respondError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth resolves X-Session-Token to a user. Unknown or expired tokens
// get 401; a session still waiting for MFA gets 403.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Session-Token")
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		s.mu.Lock()
		sess, ok := s.sessions[token]
		var u *user
		if ok {
			u = s.users[sess.userID]
		}
		s.mu.Unlock()

		if !ok || u == nil {
			respondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if sess.mfaPending {
			respondError(w, http.StatusForbidden, "MFA verification required")
			return
		}
		if u.mustChangePassword && r.URL.Path != "/api/change-password" {
			respondJSON(w, http.StatusForbidden, map[string]any{
				"error":                "Password change required",
				"must_change_password": true,
			})
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole refuses callers ranked below min.
func requireRole(min model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := userFromContext(r.Context())
			if u == nil {
				respondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !u.role.AtLeast(min) {
				respondError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

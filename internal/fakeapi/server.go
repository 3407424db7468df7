// Package fakeapi is an in-memory LogShackBaby backend.
//
// It serves the same JSON contract as the real log server and contest
// service under /api, which lets the client be tested end to end and run
// locally without the real stack (see cmd/logshack-mock). It is not a
// reimplementation of the server: ADIF is not parsed and scoring is a
// flat points-per-QSO rule.
package fakeapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/logshack/internal/logging"
	"github.com/me/logshack/pkg/model"
)

// DefaultMFACode is the one-time code accepted for every MFA secret.
const DefaultMFACode = "123456"

type user struct {
	id                 int64
	callsign           string
	email              string
	passwordHash       []byte
	role               model.Role
	active             bool
	mfaSecret          string
	mfaEnabled         bool
	mustChangePassword bool
	createdAt          time.Time
	lastLogin          *time.Time
}

type session struct {
	userID     int64
	mfaPending bool
}

type apiKey struct {
	model.APIKey
	userID int64
	key    string
}

type contestEntry struct {
	id     int64
	userID int64
	logID  int64
	points float64
}

type template struct {
	model.ReportTemplate
	ownerID int64
}

type fault struct {
	status  int
	message string
	delay   time.Duration
}

// Server is the fake LogShackBaby API.
type Server struct {
	router  chi.Router
	logger  *slog.Logger
	mfaCode string

	mu        sync.Mutex
	nextID    int64
	users     map[int64]*user
	sessions  map[string]*session
	keys      map[int64]*apiKey
	logs      map[int64][]model.LogEntry
	uploads   map[int64][]model.Upload
	contests  map[int64]*model.Contest
	entries   map[int64][]contestEntry
	templates map[int64]*template
	faults    map[string][]fault
	requests  map[string]int
}

// Option configures optional Server settings.
type Option func(*Server)

// WithMFACode changes the accepted one-time code.
func WithMFACode(code string) Option {
	return func(s *Server) {
		s.mfaCode = code
	}
}

// WithRequestLogging logs every request through logger.
func WithRequestLogging() Option {
	return func(s *Server) {
		s.router.Use(loggingMiddleware(s.logger))
	}
}

// New creates a Server with all routes registered.
func New(logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "fakeapi"),
		mfaCode:   DefaultMFACode,
		users:     map[int64]*user{},
		sessions:  map[string]*session{},
		keys:      map[int64]*apiKey{},
		logs:      map[int64][]model.LogEntry{},
		uploads:   map[int64][]model.Upload{},
		contests:  map[int64]*model.Contest{},
		entries:   map[int64][]contestEntry{},
		templates: map[int64]*template{},
		faults:    map[string][]fault{},
		requests:  map[string]int{},
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(requestIDMiddleware)
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.countingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Anonymous
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/mfa/verify", s.handleMFAVerify)
		r.Post("/logout", s.handleLogout)
		r.Post("/logs/upload", s.handleUpload)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.handleMe)
			r.Post("/change-password", s.handleChangePassword)

			r.Route("/mfa", func(r chi.Router) {
				r.Post("/setup", s.handleMFASetup)
				r.Post("/enable", s.handleMFAEnable)
				r.Post("/disable", s.handleMFADisable)
			})

			r.Get("/logs", s.handleListLogs)
			r.Get("/logs/stats", s.handleStats)
			r.Get("/logs/export", s.handleExport)
			r.Get("/uploads", s.handleListUploads)

			r.Route("/keys", func(r chi.Router) {
				r.Get("/", s.handleListKeys)
				r.Post("/", s.handleCreateKey)
				r.Delete("/{id}", s.handleDeleteKey)
			})

			// Sysop
			r.Route("/admin/users", func(r chi.Router) {
				r.Use(requireRole(model.RoleSysop))
				r.Get("/", s.handleAdminListUsers)
				r.Post("/", s.handleAdminCreateUser)
				r.Put("/{id}", s.handleAdminUpdateUser)
				r.Delete("/{id}", s.handleAdminDeleteUser)
				r.Post("/{id}/reset-password", s.handleAdminResetPassword)
			})

			// Log admin
			r.Route("/logadmin", func(r chi.Router) {
				r.Use(requireRole(model.RoleLogAdmin))
				r.Get("/users", s.handleScopeUsers)
				r.Get("/users/{id}/logs", s.handleUserLogs)
				r.Delete("/users/{id}/logs", s.handleResetUserLogs)
				r.Get("/available-fields", s.handleAvailableFields)
				r.Post("/report", s.handleReport)
			})

			// Contest admin
			r.Route("/contestadmin", func(r chi.Router) {
				r.Use(requireRole(model.RoleContestAdmin))
				r.Get("/users", s.handleScopeUsers)
				r.Get("/users/{id}/logs", s.handleUserLogs)
				r.Get("/available-fields", s.handleAvailableFields)
				r.Post("/report", s.handleReport)
				r.Route("/templates", func(r chi.Router) {
					r.Get("/", s.handleListTemplates)
					r.Post("/", s.handleCreateTemplate)
					r.Get("/{id}", s.handleGetTemplate)
					r.Delete("/{id}", s.handleDeleteTemplate)
					r.Post("/{id}/run", s.handleRunTemplate)
				})
			})

			// Contest service
			r.Route("/contests", func(r chi.Router) {
				r.Get("/", s.handleListContests)
				r.Get("/{id}", s.handleGetContest)
				r.Get("/{id}/leaderboard", s.handleLeaderboard)
				r.Get("/{id}/leaderboard/{userID}", s.handleLeaderboardDetail)
				r.Group(func(r chi.Router) {
					r.Use(requireRole(model.RoleContestAdmin))
					r.Post("/", s.handleCreateContest)
					r.Put("/{id}", s.handleUpdateContest)
					r.Delete("/{id}", s.handleDeleteContest)
					r.Post("/{id}/populate", s.handlePopulateContest)
				})
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "healthy"})
}

// id allocates the next identifier. Callers hold s.mu.
func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

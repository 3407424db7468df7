// Package app is the client's view-state controller.
//
// A Controller owns the screen the user is on, the surfaces their role may
// see, and the data each view last loaded. Every user action is a typed
// Command passed to Dispatch, which re-reads the session, checks the
// command's surface locally, talks to the backend through internal/client,
// and turns failures into a Notice at the boundary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/me/logshack/internal/archive"
	"github.com/me/logshack/internal/client"
	"github.com/me/logshack/internal/logging"
	"github.com/me/logshack/internal/session"
	"github.com/me/logshack/internal/view"
	"github.com/me/logshack/pkg/model"
)

// Screen is the top-level screen the client shows.
type Screen string

const (
	ScreenLogin     Screen = "login"
	ScreenRegister  Screen = "register"
	ScreenMFA       Screen = "mfa"
	ScreenDashboard Screen = "dashboard"
)

// Archiver stores an exported logbook at a destination.
type Archiver interface {
	Save(ctx context.Context, dest, filename string, r io.Reader) (string, error)
}

// ExportResult describes the last completed export.
type ExportResult struct {
	Filename string
	Location string
	Bytes    int64
}

// State is a snapshot of everything the client currently shows.
type State struct {
	Screen   Screen
	Session  model.Session
	Surfaces view.SurfaceSet
	Notice   *Notice

	MustChangePassword bool
	MFAEnabled         bool
	MFASetup           *model.MFASetup

	Logs       *model.LogPage
	LogFilter  model.LogFilter
	LogsPager  view.Pager
	Stats      *model.Stats
	Uploads    []model.Upload
	LastUpload *model.UploadResult
	LastExport *ExportResult

	Keys []model.APIKey
	// NewKey is the full key from the last CreateKey. It is cleared by the
	// next Dispatch, so it is shown once.
	NewKey *model.CreatedAPIKey

	Users     []model.AdminUser
	LastReset *model.PasswordReset

	ScopeUsers    []model.LogAdminUser
	UserLogs      *model.UserLogs
	UserLogsPager view.Pager
	Fields        *model.AvailableFields
	Report        *model.Report
	Templates     []model.ReportTemplate

	Contests          []model.Contest
	Contest           *model.Contest
	LastPopulate      *model.PopulateResult
	Leaderboard       *model.Leaderboard
	LeaderboardDetail *model.LeaderboardDetail
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithNotifier sets where notices are shown.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithArchiver replaces the default export archiver.
func WithArchiver(a Archiver) Option {
	return func(c *Controller) { c.archiver = a }
}

type pendingLogin struct {
	token    string
	callsign string
	role     model.Role
}

// Controller drives the client's view state.
type Controller struct {
	client   *client.Client
	session  *session.Store
	archiver Archiver
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	pending *pendingLogin // MFA login awaiting its code; never persisted
	seq     map[viewKey]uint64
	gen     uint64
}

// New creates a Controller on top of c and registers it as c's expiry hook.
func New(c *client.Client, opts ...Option) *Controller {
	ctrl := &Controller{
		client:  c,
		session: c.Session(),
		logger:  logging.Discard(),
		seq:     map[viewKey]uint64{},
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	ctrl.logger = ctrl.logger.With("component", "app")
	if ctrl.archiver == nil {
		ctrl.archiver = archive.New(ctrl.logger)
	}
	ctrl.state = State{Screen: ScreenLogin, Surfaces: view.Compose("", false)}
	c.SetExpiryHook(ctrl)
	return ctrl
}

// Start restores a persisted session and picks the initial screen.
func (c *Controller) Start(ctx context.Context) State {
	sess, ok := c.session.Restore(ctx)

	c.mu.Lock()
	c.state.Session = sess
	c.state.Surfaces = view.Compose(sess.Role, ok)
	if ok {
		c.state.Screen = ScreenDashboard
	} else {
		c.state.Screen = ScreenLogin
	}
	st := c.state
	c.mu.Unlock()
	return st
}

// Snapshot returns the current state. Slices are shared but never mutated
// in place by the controller.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionExpired implements client.ExpiryHook. The client calls it once per
// rejected token, after the session store has been cleared.
func (c *Controller) SessionExpired(ctx context.Context) {
	c.mu.Lock()
	c.resetLocked(model.Session{})
	c.mu.Unlock()
	c.notify(LevelError, MsgSessionExpired)
}

// ShowRegister switches between the login and registration screens.
func (c *Controller) ShowRegister(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Session.Valid() {
		return
	}
	if show {
		c.state.Screen = ScreenRegister
	} else {
		c.state.Screen = ScreenLogin
	}
}

// Dispatch runs cmd. Failures are shown as a notice and also returned, so a
// CLI can turn them into an exit status.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	c.sync(ctx)
	c.logger.Debug("dispatch", "command", fmt.Sprintf("%T", cmd))

	err := c.run(ctx, cmd)
	if err != nil {
		c.report(cmd, err)
	}
	return err
}

func (c *Controller) run(ctx context.Context, cmd Command) error {
	switch cmd := cmd.(type) {
	case Login:
		return c.login(ctx, cmd)
	case VerifyMFA:
		return c.verifyMFA(ctx, cmd)
	case Register:
		return c.register(ctx, cmd)
	case Logout:
		return c.logout(ctx)
	case EnterDashboard:
		return c.enterDashboard(ctx)
	case SetupMFA:
		return c.setupMFA(ctx)
	case EnableMFA:
		return c.enableMFA(ctx, cmd)
	case DisableMFA:
		return c.disableMFA(ctx, cmd)
	case ChangePassword:
		return c.changePassword(ctx, cmd)

	case FetchLogs:
		return c.fetchLogs(ctx, cmd)
	case FetchStats:
		return c.fetchStats(ctx)
	case FetchUploads:
		return c.fetchUploads(ctx)
	case Upload:
		return c.upload(ctx, cmd)
	case Export:
		return c.export(ctx, cmd)
	case ListKeys:
		return c.listKeys(ctx)
	case CreateKey:
		return c.createKey(ctx, cmd)
	case DeleteKey:
		return c.deleteKey(ctx, cmd)

	case ListAdminUsers:
		return c.listAdminUsers(ctx)
	case CreateAdminUser:
		return c.createAdminUser(ctx, cmd)
	case UpdateAdminUser:
		return c.updateAdminUser(ctx, cmd)
	case DeleteAdminUser:
		return c.deleteAdminUser(ctx, cmd)
	case ResetUserPassword:
		return c.resetUserPassword(ctx, cmd)
	case ListLogAdminUsers:
		return c.listScopeUsers(ctx, cmd.Scope)
	case FetchUserLogs:
		return c.fetchUserLogs(ctx, cmd)
	case ResetUserLogs:
		return c.resetUserLogs(ctx, cmd)
	case FetchReportFields:
		return c.fetchReportFields(ctx, cmd)
	case GenerateReport:
		return c.generateReport(ctx, cmd)
	case ListTemplates:
		return c.listTemplates(ctx)
	case SaveTemplate:
		return c.saveTemplate(ctx, cmd)
	case DeleteTemplate:
		return c.deleteTemplate(ctx, cmd)
	case RunTemplate:
		return c.runTemplate(ctx, cmd)

	case ListContests:
		return c.listContests(ctx)
	case GetContest:
		return c.getContest(ctx, cmd)
	case SaveContest:
		return c.saveContest(ctx, cmd)
	case DeleteContest:
		return c.deleteContest(ctx, cmd)
	case PopulateContest:
		return c.populateContest(ctx, cmd)
	case FetchLeaderboard:
		return c.fetchLeaderboard(ctx, cmd)
	case FetchLeaderboardDetail:
		return c.fetchLeaderboardDetail(ctx, cmd)
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

// sync adopts session changes made by another process and clears the
// show-once fields of the previous command.
func (c *Controller) sync(ctx context.Context) {
	sess := c.session.Reload(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Notice = nil
	c.state.NewKey = nil
	c.state.LastReset = nil

	wasValid := c.state.Session.Valid()
	switch {
	case !sess.Valid() && wasValid:
		c.logger.Debug("session gone, returning to login")
		c.resetLocked(model.Session{})
	case sess.Valid() && sess.Token != c.state.Session.Token:
		c.resetLocked(sess)
		c.state.Screen = ScreenDashboard
	default:
		c.state.Session = sess
		c.state.Surfaces = view.Compose(sess.Role, sess.Valid())
	}
}

// resetLocked installs sess, drops all per-user data and invalidates every
// in-flight request. Callers hold c.mu.
func (c *Controller) resetLocked(sess model.Session) {
	c.gen++
	c.pending = nil
	c.state = State{
		Screen:   ScreenLogin,
		Session:  sess,
		Surfaces: view.Compose(sess.Role, sess.Valid()),
		Notice:   c.state.Notice,
	}
}

// report converts err into a notice.
func (c *Controller) report(cmd Command, err error) {
	var ie *inputError
	var ce *client.Error
	switch {
	case client.IsSessionExpired(err):
		// SessionExpired already told the user.
	case errors.Is(err, context.Canceled):
	case errors.As(err, &ie):
		c.notify(LevelError, ie.msg)
	case errors.Is(err, ErrForbiddenSurface):
		c.notify(LevelError, "You do not have access to this page")
	case errors.Is(err, client.ErrNotAuthenticated):
		c.mu.Lock()
		c.state.Screen = ScreenLogin
		c.mu.Unlock()
		c.notify(LevelError, MsgLoginFirst)
	case errors.As(err, &ce) && client.IsTransport(err):
		c.notify(LevelError, fmt.Sprintf("%s failed. Please try again.", cmd.label()))
	default:
		msg := client.ServerMessage(err)
		if msg == "" {
			msg = fmt.Sprintf("%s failed: %v", cmd.label(), err)
		}
		c.notify(LevelError, msg)
	}
	c.logger.Debug("command failed", "command", fmt.Sprintf("%T", cmd), "error", err)
}

func (c *Controller) notify(level Level, text string) {
	n := Notice{Level: level, Text: text}
	c.mu.Lock()
	c.state.Notice = &n
	c.mu.Unlock()
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

// require refuses commands for surfaces the current role cannot see.
func (c *Controller) require(s view.Surface) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Session.Valid() {
		return client.ErrNotAuthenticated
	}
	if !c.state.Surfaces.Has(s) {
		return fmt.Errorf("%w: %s", ErrForbiddenSurface, s)
	}
	return nil
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

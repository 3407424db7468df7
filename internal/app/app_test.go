package app

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/logshack/internal/archive"
	"github.com/me/logshack/internal/client"
	"github.com/me/logshack/internal/fakeapi"
	"github.com/me/logshack/internal/session"
	"github.com/me/logshack/internal/view"
	"github.com/me/logshack/pkg/model"
)

const password = "correct-horse"

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) count(text string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Text == text {
			n++
		}
	}
	return n
}

type fixture struct {
	api     *fakeapi.Server
	srv     *httptest.Server
	backend *session.MemoryBackend
	sess    *session.Store
	ctrl    *Controller
	notes   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := fakeapi.New(nil)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	backend := &session.MemoryBackend{}
	sess := session.NewStore(backend, nil)
	cl := client.New(client.Config{BaseURL: srv.URL}, sess, nil)
	notes := &recorder{}
	ctrl := New(cl, WithNotifier(notes), WithArchiver(archive.New(nil)))
	ctrl.Start(context.Background())

	return &fixture{api: api, srv: srv, backend: backend, sess: sess, ctrl: ctrl, notes: notes}
}

func (f *fixture) login(t *testing.T, callsign string, role model.Role) {
	t.Helper()
	f.api.AddUser(callsign, password, role)
	require.NoError(t, f.ctrl.Dispatch(context.Background(), Login{Callsign: callsign, Password: password}))
}

func qsos(n int) []model.LogEntry {
	out := make([]model.LogEntry, n)
	for i := range out {
		out[i] = model.LogEntry{QSODate: "20240301", TimeOn: "120000", Call: "DL1ABC", Band: "20m", Mode: "SSB"}
	}
	return out
}

func TestLogin_UserSeesOnlyUserSurfaces(t *testing.T) {
	f := newFixture(t)
	f.api.AddUser("W1AW", password, model.RoleUser)
	f.api.AddLogs("W1AW", qsos(3)...)

	require.NoError(t, f.ctrl.Dispatch(context.Background(), Login{Callsign: " w1aw ", Password: password}))

	st := f.ctrl.Snapshot()
	assert.Equal(t, ScreenDashboard, st.Screen)
	assert.Equal(t, "W1AW", st.Session.Callsign)
	assert.True(t, st.Surfaces.Has(view.SurfaceLogs))
	for _, s := range []view.Surface{view.SurfaceContestAdmin, view.SurfaceLogAdmin, view.SurfaceSysop} {
		assert.False(t, st.Surfaces.Has(s), "user must not see %s", s)
	}
	require.NotNil(t, st.Logs)
	assert.Len(t, st.Logs.Logs, 3)
	require.NotNil(t, st.Stats)
	assert.Equal(t, 3, st.Stats.TotalQSOs)
}

func TestLogin_SysopSeesEveryAdminSurface(t *testing.T) {
	f := newFixture(t)
	f.login(t, "AA1SY", model.RoleSysop)

	st := f.ctrl.Snapshot()
	for _, s := range []view.Surface{view.SurfaceContestAdmin, view.SurfaceLogAdmin, view.SurfaceSysop} {
		assert.True(t, st.Surfaces.Has(s), "sysop must see %s", s)
	}
}

func TestSessionExpiry_ClearsAndNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.ExpireSessions("W1AW")

	err := f.ctrl.Dispatch(context.Background(), FetchStats{})
	require.Error(t, err)
	assert.True(t, client.IsSessionExpired(err))

	st := f.ctrl.Snapshot()
	assert.Equal(t, ScreenLogin, st.Screen)
	assert.False(t, st.Session.Valid())
	assert.Nil(t, st.Stats)
	assert.Equal(t, 1, f.notes.count(MsgSessionExpired))

	token, role, _ := f.backend.Load(context.Background())
	assert.Empty(t, token)
	assert.Empty(t, role)
}

func TestSessionExpiry_ConcurrentDashboardLoadNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.ExpireSessions("W1AW")

	err := f.ctrl.Dispatch(context.Background(), EnterDashboard{})
	require.Error(t, err)
	assert.Equal(t, 1, f.notes.count(MsgSessionExpired))
	assert.Equal(t, ScreenLogin, f.ctrl.Snapshot().Screen)
}

func TestFetchLogs_PagerWindow(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.AddLogs("W1AW", qsos(12*model.LogsPerPage)...)

	require.NoError(t, f.ctrl.Dispatch(context.Background(), FetchLogs{Page: 7}))

	p := f.ctrl.Snapshot().LogsPager
	assert.Equal(t, 7, p.Current)
	assert.Equal(t, 12, p.Total)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, p.Pages)
	assert.False(t, p.PrevDisabled)
	assert.False(t, p.NextDisabled)
}

func TestFetchLogs_NewFilterStartsAtPageOne(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.AddLogs("W1AW", qsos(3*model.LogsPerPage)...)
	cw := qsos(2 * model.LogsPerPage)
	for i := range cw {
		cw[i].Band, cw[i].Mode = "40m", "CW"
	}
	f.api.AddLogs("W1AW", cw...)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Dispatch(ctx, FetchLogs{Page: 3}))
	require.Equal(t, 3, f.ctrl.Snapshot().LogsPager.Current)

	forty := model.LogFilter{Band: "40m"}
	require.NoError(t, f.ctrl.Dispatch(ctx, FetchLogs{Page: 3, Filter: &forty}))
	st := f.ctrl.Snapshot()
	assert.Equal(t, 1, st.Logs.CurrentPage, "a new filter starts over at page 1")
	assert.Equal(t, forty, st.LogFilter)
	assert.Equal(t, 2*model.LogsPerPage, st.Logs.Total)

	require.NoError(t, f.ctrl.Dispatch(ctx, FetchLogs{Page: 2}))
	st = f.ctrl.Snapshot()
	assert.Equal(t, 2, st.Logs.CurrentPage)
	assert.Equal(t, forty, st.LogFilter, "paging keeps the applied filter")
	assert.Equal(t, 2*model.LogsPerPage, st.Logs.Total)

	same := forty
	require.NoError(t, f.ctrl.Dispatch(ctx, FetchLogs{Page: 2, Filter: &same}))
	assert.Equal(t, 2, f.ctrl.Snapshot().Logs.CurrentPage, "the same filter keeps the page")

	require.NoError(t, f.ctrl.Dispatch(ctx, FetchLogs{Page: 2, Filter: &model.LogFilter{}}))
	st = f.ctrl.Snapshot()
	assert.Equal(t, 1, st.Logs.CurrentPage)
	assert.Equal(t, 5*model.LogsPerPage, st.Logs.Total)
}

func TestCreateKey_ListShowsNewKey(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)

	require.NoError(t, f.ctrl.Dispatch(context.Background(), CreateKey{Description: "N1MM laptop"}))

	st := f.ctrl.Snapshot()
	require.NotNil(t, st.NewKey)
	var prefixes []string
	for _, k := range st.Keys {
		prefixes = append(prefixes, k.Prefix)
	}
	assert.Contains(t, prefixes, st.NewKey.Prefix)

	// The full key is only shown once.
	require.NoError(t, f.ctrl.Dispatch(context.Background(), ListKeys{}))
	assert.Nil(t, f.ctrl.Snapshot().NewKey)
}

func TestLogin_BadPasswordIsNotExpiry(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)

	err := f.ctrl.Dispatch(context.Background(), Login{Callsign: "W1AW", Password: "nope"})
	require.Error(t, err)

	assert.Zero(t, f.notes.count(MsgSessionExpired))
	assert.Equal(t, 1, f.notes.count("Invalid credentials"))
	assert.True(t, f.sess.Authenticated(), "failed login must not end the existing session")
}

func TestLogin_TransportFailure(t *testing.T) {
	f := newFixture(t)
	f.api.AddUser("W1AW", password, model.RoleUser)
	f.srv.Close()

	err := f.ctrl.Dispatch(context.Background(), Login{Callsign: "W1AW", Password: password})
	require.Error(t, err)
	assert.Equal(t, 1, f.notes.count("Login failed. Please try again."))
	assert.Equal(t, ScreenLogin, f.ctrl.Snapshot().Screen)
}

func TestLogin_Validation(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Dispatch(context.Background(), Login{Callsign: "  ", Password: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.api.Requests("POST", "/api/login"))
}

func TestMFA_PendingLoginIsNotPersisted(t *testing.T) {
	f := newFixture(t)
	f.api.AddUser("W1AW", password, model.RoleUser)
	f.api.EnableMFA("W1AW")
	ctx := context.Background()

	require.NoError(t, f.ctrl.Dispatch(ctx, Login{Callsign: "W1AW", Password: password}))
	assert.Equal(t, ScreenMFA, f.ctrl.Snapshot().Screen)
	assert.False(t, f.sess.Authenticated())
	token, _, _ := f.backend.Load(ctx)
	assert.Empty(t, token, "pending MFA token must stay in memory")

	err := f.ctrl.Dispatch(ctx, VerifyMFA{Code: "000000"})
	require.Error(t, err)
	assert.Equal(t, ScreenMFA, f.ctrl.Snapshot().Screen, "a wrong code allows another try")

	require.NoError(t, f.ctrl.Dispatch(ctx, VerifyMFA{Code: fakeapi.DefaultMFACode}))
	st := f.ctrl.Snapshot()
	assert.Equal(t, ScreenDashboard, st.Screen)
	assert.True(t, st.Session.Valid())
	assert.True(t, st.MFAEnabled)
}

func TestVerifyMFA_WithoutPendingLogin(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.Dispatch(context.Background(), VerifyMFA{Code: "123456"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.api.Requests("POST", "/api/mfa/verify"))
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.ctrl.Dispatch(ctx, Register{Callsign: "k1xyz", Password: "longenough", Confirm: "different"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, f.notes.count(MsgPasswordMismatch))
	assert.Zero(t, f.api.Requests("POST", "/api/register"))

	require.NoError(t, f.ctrl.Dispatch(ctx, Register{Callsign: " k1xyz ", Email: "k1xyz@example.org", Password: "longenough", Confirm: "longenough"}))
	assert.Equal(t, 1, f.notes.count(MsgRegistered))
	assert.Equal(t, ScreenLogin, f.ctrl.Snapshot().Screen)

	require.NoError(t, f.ctrl.Dispatch(ctx, Login{Callsign: "K1XYZ", Password: "longenough"}))
	assert.Equal(t, "K1XYZ", f.ctrl.Snapshot().Session.Callsign)
}

func TestForbiddenSurface_NoRequest(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)

	err := f.ctrl.Dispatch(context.Background(), ListAdminUsers{})
	assert.ErrorIs(t, err, ErrForbiddenSurface)
	assert.Zero(t, f.api.Requests("GET", "/api/admin/users"))
	assert.True(t, f.sess.Authenticated())
}

func TestLogAdmin_TemplatesRefusedLocally(t *testing.T) {
	f := newFixture(t)
	f.login(t, "N1LA", model.RoleLogAdmin)

	err := f.ctrl.Dispatch(context.Background(), ListTemplates{})
	assert.ErrorIs(t, err, ErrForbiddenSurface)
	assert.Zero(t, f.api.Requests("GET", "/api/contestadmin/templates"))

	require.NoError(t, f.ctrl.Dispatch(context.Background(), ListLogAdminUsers{Scope: model.ScopeLogAdmin}))
	assert.NotEmpty(t, f.ctrl.Snapshot().ScopeUsers)
}

func TestNotAuthenticated(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.Dispatch(context.Background(), FetchStats{})
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)
	assert.Equal(t, 1, f.notes.count(MsgLoginFirst))
	assert.Zero(t, f.api.Requests("GET", "/api/logs/stats"))
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	require.Equal(t, 1, f.api.SessionCount())

	require.NoError(t, f.ctrl.Dispatch(context.Background(), Logout{}))

	st := f.ctrl.Snapshot()
	assert.Equal(t, ScreenLogin, st.Screen)
	assert.Nil(t, st.Logs)
	assert.False(t, f.sess.Authenticated())
	assert.Zero(t, f.api.SessionCount())
	assert.Equal(t, 1, f.notes.count(MsgLoggedOut))
	assert.Zero(t, f.notes.count(MsgSessionExpired))
}

func TestLogout_AfterServerExpiry(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.ExpireSessions("W1AW")

	require.NoError(t, f.ctrl.Dispatch(context.Background(), Logout{}))
	assert.Zero(t, f.notes.count(MsgSessionExpired), "logout never runs the expiry recovery")
	assert.Equal(t, 1, f.notes.count(MsgLoggedOut))
}

func TestDispatch_AdoptsLogoutFromAnotherProcess(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)

	require.NoError(t, f.backend.Clear(context.Background()))

	err := f.ctrl.Dispatch(context.Background(), FetchStats{})
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)
	assert.Equal(t, ScreenLogin, f.ctrl.Snapshot().Screen)
	assert.Equal(t, 1, f.api.Requests("GET", "/api/logs/stats"), "only the dashboard load reached the server")
}

func TestStart_RestoresPersistedSession(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleContestAdmin)

	// A second process sharing the state.
	sess := session.NewStore(f.backend, nil)
	cl := client.New(client.Config{BaseURL: f.srv.URL}, sess, nil)
	ctrl := New(cl)
	st := ctrl.Start(context.Background())

	assert.Equal(t, ScreenDashboard, st.Screen)
	assert.True(t, st.Surfaces.Has(view.SurfaceContestAdmin))

	require.NoError(t, ctrl.Dispatch(context.Background(), EnterDashboard{}))
	assert.Equal(t, "W1AW", ctrl.Snapshot().Session.Callsign, "callsign comes from /auth/me")
}

func TestFetchLogs_StaleResponseDiscarded(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.AddLogs("W1AW", qsos(3*model.LogsPerPage)...)
	before := f.api.Requests("GET", "/api/logs")

	f.api.Delay("GET", "/api/logs", 300*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Dispatch(context.Background(), FetchLogs{Page: 1}) }()
	require.Eventually(t, func() bool {
		return f.api.Requests("GET", "/api/logs") == before+1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.ctrl.Dispatch(context.Background(), FetchLogs{Page: 2}))
	require.NoError(t, <-done)

	st := f.ctrl.Snapshot()
	require.NotNil(t, st.Logs)
	assert.Equal(t, 2, st.Logs.CurrentPage, "the slow page-1 response must not overwrite page 2")
	assert.Equal(t, 2, st.LogsPager.Current)
}

func TestLoadMe_StaleResponseLeavesSessionAlone(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.AddUser("K1ABC", password, model.RoleUser)
	before := f.api.Requests("GET", "/api/auth/me")

	f.api.Delay("GET", "/api/auth/me", 300*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Dispatch(context.Background(), EnterDashboard{}) }()
	require.Eventually(t, func() bool {
		return f.api.Requests("GET", "/api/auth/me") == before+1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.ctrl.Dispatch(context.Background(), Login{Callsign: "K1ABC", Password: password}))
	require.NoError(t, <-done)

	assert.Equal(t, "K1ABC", f.sess.Current().Callsign, "the old profile must not rename the new session")
	assert.Equal(t, "K1ABC", f.ctrl.Snapshot().Session.Callsign)
}

func TestUpload_RefreshesViews(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	key := f.api.AddAPIKey("W1AW", "test")

	adif := "<call:4>DL1A<band:3>20m<mode:3>SSB<qso_date:8>20240301<time_on:6>120000<eor>\n" +
		"<call:4>DL2B<band:3>40m<mode:2>CW<qso_date:8>20240301<time_on:6>130000<eor>\n"
	require.NoError(t, f.ctrl.Dispatch(context.Background(), Upload{APIKey: key, Filename: "field-day.adi", Reader: strings.NewReader(adif)}))

	st := f.ctrl.Snapshot()
	require.NotNil(t, st.LastUpload)
	assert.Equal(t, 2, st.LastUpload.Total)
	require.Len(t, st.Uploads, 1)
	assert.Equal(t, "field-day.adi", st.Uploads[0].Filename)
}

func TestUpload_BadKeyShowsServerText(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)

	err := f.ctrl.Dispatch(context.Background(), Upload{APIKey: "lsb_bogus", Filename: "a.adi", Reader: strings.NewReader("<eor>")})
	require.Error(t, err)
	assert.True(t, f.sess.Authenticated())
	assert.Zero(t, f.notes.count(MsgSessionExpired))
	require.NotNil(t, f.ctrl.Snapshot().Notice)
	assert.Equal(t, client.ServerMessage(err), f.ctrl.Snapshot().Notice.Text)
}

func TestExport_ToDirectory(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.AddLogs("W1AW", qsos(2)...)
	dir := t.TempDir()

	require.NoError(t, f.ctrl.Dispatch(context.Background(), Export{Dest: dir}))

	st := f.ctrl.Snapshot()
	require.NotNil(t, st.LastExport)
	assert.Equal(t, filepath.Join(dir, "W1AW_logbook.adi"), st.LastExport.Location)
	data, err := os.ReadFile(st.LastExport.Location)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.ToLower(string(data)), "<eor>"))
}

func TestExport_ToWriter(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)
	f.api.AddLogs("W1AW", qsos(1)...)

	var buf bytes.Buffer
	require.NoError(t, f.ctrl.Dispatch(context.Background(), Export{To: &buf}))
	assert.Contains(t, strings.ToLower(buf.String()), "<eor>")
}

func TestSysop_CreateUserRefetchesList(t *testing.T) {
	f := newFixture(t)
	f.login(t, "AA1SY", model.RoleSysop)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Dispatch(ctx, CreateAdminUser{Input: model.UserInput{
		Callsign: "n0new", Email: "n0new@example.org", Password: "temporary1", Role: model.RoleContestAdmin,
	}}))

	var found *model.AdminUser
	for i, u := range f.ctrl.Snapshot().Users {
		if u.Callsign == "N0NEW" {
			found = &f.ctrl.Snapshot().Users[i]
		}
	}
	require.NotNil(t, found, "new user must appear after the re-fetch")
	assert.Equal(t, model.RoleContestAdmin, found.Role)

	require.NoError(t, f.ctrl.Dispatch(ctx, ResetUserPassword{ID: found.ID}))
	require.NotNil(t, f.ctrl.Snapshot().LastReset)
	assert.NotEmpty(t, f.ctrl.Snapshot().LastReset.TemporaryPassword)
}

func TestGenerateReport_RequiresFields(t *testing.T) {
	f := newFixture(t)
	f.login(t, "N1LA", model.RoleLogAdmin)

	err := f.ctrl.Dispatch(context.Background(), GenerateReport{Scope: model.ScopeLogAdmin, Fields: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.api.Requests("POST", "/api/logadmin/report"))
}

func TestContests_SaveValidatesDates(t *testing.T) {
	f := newFixture(t)
	f.login(t, "K1CA", model.RoleContestAdmin)

	err := f.ctrl.Dispatch(context.Background(), SaveContest{Input: client.ContestInput{
		Name: "Backwards", StartDate: "2024-03-02T00:00:00", EndDate: "2024-03-01T00:00:00",
	}})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.api.Requests("POST", "/api/contests"))

	require.NoError(t, f.ctrl.Dispatch(context.Background(), SaveContest{Input: client.ContestInput{
		Name: "Sprint", StartDate: "2024-03-01T00:00:00", EndDate: "2024-03-02T00:00:00",
		Scoring: model.Scoring{QSOPoints: 1}, IsActive: true,
	}}))
	st := f.ctrl.Snapshot()
	require.Len(t, st.Contests, 1)
	assert.Equal(t, "Sprint", st.Contests[0].Name)
}

func TestReport_ForbiddenFromServerKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t, "N1LA", model.RoleLogAdmin)
	f.api.Fail("GET", "/api/logadmin/users", 403, "Insufficient permissions")

	err := f.ctrl.Dispatch(context.Background(), ListLogAdminUsers{Scope: model.ScopeLogAdmin})
	require.Error(t, err)
	assert.True(t, client.IsForbidden(err))
	assert.Equal(t, 1, f.notes.count("Insufficient permissions"))
	assert.True(t, f.sess.Authenticated())
}

func TestSessionExpired_DropsInFlightResponses(t *testing.T) {
	f := newFixture(t)
	f.login(t, "W1AW", model.RoleUser)

	tk := f.ctrl.begin(viewStats)
	f.ctrl.SessionExpired(context.Background())
	applied := f.ctrl.commit(tk, func(s *State) { s.Stats = &model.Stats{TotalQSOs: 99} })

	assert.False(t, applied)
	assert.Nil(t, f.ctrl.Snapshot().Stats)
}

func TestReport_UnknownScope(t *testing.T) {
	f := newFixture(t)
	f.login(t, "AA1SY", model.RoleSysop)

	err := f.ctrl.Dispatch(context.Background(), FetchReportFields{Scope: "everyone"})
	assert.True(t, errors.Is(err, ErrValidation))
}

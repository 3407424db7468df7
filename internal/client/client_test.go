package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/logshack/internal/fakeapi"
	"github.com/me/logshack/internal/logging"
	"github.com/me/logshack/internal/session"
	"github.com/me/logshack/pkg/model"
)

const password = "secret-pass"

type countingHook struct{ n atomic.Int32 }

func (h *countingHook) SessionExpired(context.Context) { h.n.Add(1) }

type fixture struct {
	api    *fakeapi.Server
	srv    *httptest.Server
	sess   *session.Store
	client *Client
	hook   *countingHook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := fakeapi.New(nil)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	sess := session.NewStore(&session.MemoryBackend{}, nil)
	hook := &countingHook{}
	c := New(Config{BaseURL: srv.URL}, sess, nil, WithExpiryHook(hook))
	return &fixture{api: api, srv: srv, sess: sess, client: c, hook: hook}
}

// loginAs creates callsign with role and establishes its session.
func (f *fixture) loginAs(t *testing.T, callsign string, role model.Role) {
	t.Helper()
	f.api.AddUser(callsign, password, role)
	resp, err := f.client.Login(context.Background(), callsign, password)
	require.NoError(t, err)
	f.sess.Establish(context.Background(), resp.SessionToken, model.Role(resp.Role), resp.Callsign)
}

func TestLogin_DoesNotAttachToken(t *testing.T) {
	var sawToken atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderSessionToken) != "" {
			sawToken.Store(true)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"session_token":"new","callsign":"W1AW","role":"user","mfa_required":false}`))
	}))
	defer srv.Close()

	sess := session.NewStore(&session.MemoryBackend{}, nil)
	sess.Establish(context.Background(), "old", model.RoleUser, "W1AW")
	c := New(Config{BaseURL: srv.URL}, sess, nil)

	resp, err := c.Login(context.Background(), "W1AW", password)
	require.NoError(t, err)
	assert.Equal(t, "new", resp.SessionToken)
	assert.False(t, sawToken.Load(), "login must not carry the session header")
}

func TestDo_AttachesSessionAndRequestID(t *testing.T) {
	var gotToken, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(HeaderSessionToken)
		gotReqID = r.Header.Get(HeaderRequestID)
		w.Write([]byte(`{"total_qsos":3}`))
	}))
	defer srv.Close()

	sess := session.NewStore(&session.MemoryBackend{}, nil)
	sess.Establish(context.Background(), "tok-123", model.RoleUser, "")
	c := New(Config{BaseURL: srv.URL}, sess, nil)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalQSOs)
	assert.Equal(t, "tok-123", gotToken)
	assert.True(t, strings.HasPrefix(gotReqID, "req_"), "request id %q", gotReqID)
}

func TestDo_NotAuthenticatedMakesNoRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Stats(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, f.api.Requests("GET", "/api/logs/stats"))
	assert.Zero(t, f.hook.n.Load())
}

func TestDo_401ClearsSessionAndNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	f.loginAs(t, "W1AW", model.RoleUser)
	f.api.ExpireSessions("W1AW")

	_, err := f.client.Stats(context.Background())
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))
	assert.False(t, IsTransport(err))

	var opErr *Error
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "log stats", opErr.Op)

	assert.False(t, f.sess.Authenticated())
	assert.Equal(t, model.RoleUser, f.sess.CurrentRole())
	assert.EqualValues(t, 1, f.hook.n.Load())

	// The session is gone, so the next call fails locally without re-notifying.
	_, err = f.client.Stats(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.EqualValues(t, 1, f.hook.n.Load())
}

func TestDo_Concurrent401sNotifyOnce(t *testing.T) {
	f := newFixture(t)
	f.loginAs(t, "W1AW", model.RoleUser)
	f.api.ExpireSessions("W1AW")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.client.Stats(context.Background())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.hook.n.Load())
	assert.False(t, f.sess.Authenticated())
}

func TestDo_SkipAuth401DoesNotExpire(t *testing.T) {
	f := newFixture(t)
	f.loginAs(t, "W1AW", model.RoleUser)

	// A failed login while a session exists leaves that session alone.
	_, err := f.client.Login(context.Background(), "W1AW", "wrong")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsSessionExpired(err))
	assert.Equal(t, "Invalid credentials", ServerMessage(err))

	assert.True(t, f.sess.Authenticated())
	assert.Zero(t, f.hook.n.Load())
}

func TestDo_403IsPlainAPIError(t *testing.T) {
	f := newFixture(t)
	f.loginAs(t, "W1AW", model.RoleUser)

	_, err := f.client.ListUsers(context.Background())
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.Equal(t, "Insufficient permissions", ServerMessage(err))
	assert.True(t, f.sess.Authenticated(), "403 must not end the session")
	assert.Zero(t, f.hook.n.Load())
}

func TestDo_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, session.NewStore(nil, nil), nil)
	err := c.Health(context.Background(), ServiceMain)

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestDo_TransportError(t *testing.T) {
	f := newFixture(t)
	f.loginAs(t, "W1AW", model.RoleUser)
	f.srv.Close()

	_, err := f.client.Stats(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.True(t, f.sess.Authenticated(), "network failure keeps the session")
}

func TestDo_LogsWithoutSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(logging.ParseLevel("debug"), "text", &buf)

	api := fakeapi.New(nil)
	srv := httptest.NewServer(api)
	defer srv.Close()
	api.AddUser("W1AW", password, model.RoleUser)

	sess := session.NewStore(&session.MemoryBackend{}, nil)
	c := New(Config{BaseURL: srv.URL}, sess, logger)
	resp, err := c.Login(context.Background(), "W1AW", password)
	require.NoError(t, err)
	sess.Establish(context.Background(), resp.SessionToken, model.RoleUser, "W1AW")
	_, err = c.Stats(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "HTTP request")
	assert.NotContains(t, out, password)
	assert.NotContains(t, out, resp.SessionToken)
}

func TestDo_RateLimit(t *testing.T) {
	f := newFixture(t)
	c := New(Config{BaseURL: f.srv.URL, RateLimit: 20}, f.sess, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Health(context.Background(), ServiceMain))
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestContestService_UsesSeparateBase(t *testing.T) {
	var mainHits, contestHits atomic.Int32
	main := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mainHits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer main.Close()
	contest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contestHits.Add(1)
		assert.Equal(t, "/api/contests", r.URL.Path)
		w.Write([]byte(`[{"id":1,"name":"Sprint","start_date":"2024-03-01T00:00:00","end_date":"2024-03-02T00:00:00","scoring":{"qso_points":1},"is_active":true}]`))
	}))
	defer contest.Close()

	sess := session.NewStore(nil, nil)
	sess.Establish(context.Background(), "tok", model.RoleUser, "")
	c := New(Config{BaseURL: main.URL, ContestURL: contest.URL}, sess, nil)

	contests, err := c.ListContests(context.Background())
	require.NoError(t, err)
	require.Len(t, contests, 1)
	assert.Equal(t, "Sprint", contests[0].Name)
	assert.Equal(t, 2024, contests[0].StartDate.Year())
	assert.Zero(t, mainHits.Load())
	assert.EqualValues(t, 1, contestHits.Load())
}

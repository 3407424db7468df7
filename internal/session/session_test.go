package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/logshack/internal/logging"
	"github.com/me/logshack/internal/store"
	"github.com/me/logshack/pkg/model"
)

type failingBackend struct{ calls int }

func (f *failingBackend) Load(context.Context) (string, string, error) {
	f.calls++
	return "", "", errors.New("disk gone")
}

func (f *failingBackend) Save(context.Context, string, string) error {
	f.calls++
	return errors.New("disk gone")
}

func (f *failingBackend) Clear(context.Context) error {
	f.calls++
	return errors.New("disk gone")
}

func TestStore_EstablishThenRestore(t *testing.T) {
	ctx := context.Background()
	backend := &MemoryBackend{}

	for _, role := range model.Roles {
		s := NewStore(backend, nil)
		s.Establish(ctx, "tok-"+string(role), role, "W1AW")

		// A fresh store stands in for a reloaded page.
		restored, ok := NewStore(backend, nil).Restore(ctx)
		require.True(t, ok, "role %s", role)
		assert.Equal(t, "tok-"+string(role), restored.Token)
		assert.Equal(t, role, restored.Role)
		assert.Empty(t, restored.Callsign, "callsign is never persisted")
	}
}

func TestStore_RestoreRejectsPartialPairs(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name        string
		token, role string
	}{
		{"token only", "tok", ""},
		{"role only", "", "sysop"},
		{"unknown role", "tok", "superuser"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &MemoryBackend{}
			backend.Put(tc.token, tc.role)

			s := NewStore(backend, nil)
			sess, ok := s.Restore(ctx)
			assert.False(t, ok)
			assert.Equal(t, model.Session{}, sess)
			assert.False(t, s.Authenticated())
			assert.Empty(t, s.Token())

			token, role, _ := backend.Load(ctx)
			assert.Empty(t, token, "partial pair must be purged")
			assert.Empty(t, role, "partial pair must be purged")
		})
	}
}

func TestStore_RestoreEmpty(t *testing.T) {
	s := NewStore(&MemoryBackend{}, nil)
	_, ok := s.Restore(context.Background())
	assert.False(t, ok)
	assert.Equal(t, model.RoleUser, s.CurrentRole())
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := &MemoryBackend{}
	s := NewStore(backend, nil)
	s.Establish(ctx, "tok", model.RoleSysop, "K1ABC")

	s.Clear(ctx)
	s.Clear(ctx)

	assert.False(t, s.Authenticated())
	assert.Equal(t, model.RoleUser, s.CurrentRole())
	token, role, _ := backend.Load(ctx)
	assert.Empty(t, token)
	assert.Empty(t, role)
}

func TestStore_EstablishUnknownRoleFailsClosed(t *testing.T) {
	ctx := context.Background()
	backend := &MemoryBackend{}
	s := NewStore(backend, nil)

	sess := s.Establish(ctx, "tok", model.Role("admin"), "N0CALL")
	assert.Equal(t, model.RoleUser, sess.Role)

	_, role, _ := backend.Load(ctx)
	assert.Equal(t, "user", role)
}

func TestStore_DegradesToMemory(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	s := NewStore(backend, nil)

	sess := s.Establish(ctx, "tok", model.RoleLogAdmin, "G4XYZ")
	assert.True(t, s.Degraded())
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, model.RoleLogAdmin, s.CurrentRole(), "memory session still works")

	calls := backend.calls
	s.Clear(ctx)
	s.Reload(ctx)
	assert.Equal(t, calls, backend.calls, "degraded store stops touching the backend")
	assert.False(t, s.Authenticated())
}

func TestStore_NilBackendIsMemoryOnly(t *testing.T) {
	s := NewStore(nil, logging.Discard())
	s.Establish(context.Background(), "tok", model.RoleUser, "")
	assert.True(t, s.Degraded())
	assert.True(t, s.Authenticated())
}

func TestStore_ReloadFollowsOtherProcess(t *testing.T) {
	ctx := context.Background()
	backend := &MemoryBackend{}
	a := NewStore(backend, nil)
	b := NewStore(backend, nil)

	a.Establish(ctx, "tok-a", model.RoleContestAdmin, "W1AW")
	assert.Equal(t, "tok-a", b.Reload(ctx).Token, "login elsewhere is adopted")

	// Same token keeps the callsign learned locally.
	a.Reload(ctx)
	assert.Equal(t, "W1AW", a.Current().Callsign)

	b.Clear(ctx)
	assert.False(t, a.Reload(ctx).Valid(), "logout elsewhere is adopted")
	assert.False(t, a.Authenticated())
}

func TestStore_ClearIfToken(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&MemoryBackend{}, nil)
	s.Establish(ctx, "tok-1", model.RoleUser, "")

	assert.False(t, s.ClearIfToken(ctx, "stale"), "other token leaves session alone")
	assert.True(t, s.Authenticated())

	assert.True(t, s.ClearIfToken(ctx, "tok-1"))
	assert.False(t, s.ClearIfToken(ctx, "tok-1"), "second rejection is a no-op")
	assert.False(t, s.Authenticated())
}

func TestStore_SetCallsignRequiresSession(t *testing.T) {
	s := NewStore(&MemoryBackend{}, nil)
	s.SetCallsign("W1AW")
	assert.Empty(t, s.Current().Callsign)

	s.Establish(context.Background(), "tok", model.RoleUser, "")
	s.SetCallsign("W1AW")
	assert.Equal(t, "W1AW", s.Current().Callsign)
}

func TestStore_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	st, err := store.Open(ctx, path, logging.Discard())
	require.NoError(t, err)
	NewStore(st, nil).Establish(ctx, "sqlite-tok", model.RoleSysop, "VE3XYZ")
	require.NoError(t, st.Close())

	st2, err := store.Open(ctx, path, logging.Discard())
	require.NoError(t, err)
	defer st2.Close()

	sess, ok := NewStore(st2, nil).Restore(ctx)
	require.True(t, ok)
	assert.Equal(t, "sqlite-tok", sess.Token)
	assert.Equal(t, model.RoleSysop, sess.Role)
}

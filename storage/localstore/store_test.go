package localstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core/auth"
)

func TestStore_session(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := New(path)

	sess, err := s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, sess, "no file yet")

	want := &auth.Session{
		AccessToken: "tok",
		ExpiresAt:   time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		User:        auth.User{ID: "u1", Email: "a@b.co"},
	}
	require.NoError(t, s.SaveSession(want))

	// a fresh store reads what was persisted
	got, err := New(path).LoadSession()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.ClearSession())
	got, err = s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_roleCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := New(path)

	_, ok := s.Load()
	assert.False(t, ok)

	require.NoError(t, s.SaveSession(&auth.Session{AccessToken: "tok"}))
	require.NoError(t, s.Store(auth.CachedRole{Role: auth.RoleSchoolAdmin, SchoolID: "s1"}))

	cached, ok := New(path).Load()
	assert.True(t, ok)
	assert.Equal(t, auth.CachedRole{Role: auth.RoleSchoolAdmin, SchoolID: "s1"}, cached)

	// keys live side by side
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user_role": "school_admin"`)
	assert.Contains(t, string(data), `"school_id": "s1"`)
	assert.Contains(t, string(data), `"auth_token"`)

	require.NoError(t, s.Clear())
	_, ok = s.Load()
	assert.False(t, ok)
	sess, err := s.LoadSession()
	require.NoError(t, err)
	assert.NotNil(t, sess, "clearing the role keeps the session")
}

func TestStore_corruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := New(path)
	sess, err := s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, s.Store(auth.CachedRole{Role: auth.RoleSuperAdmin}))
	cached, ok := s.Load()
	assert.True(t, ok)
	assert.Equal(t, auth.RoleSuperAdmin, cached.Role)
}

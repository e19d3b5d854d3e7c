package identity

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/tests"
)

func nextEvent(t *testing.T, sub auth.Subscription) auth.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return auth.Event{}
}

func noEvent(t *testing.T, sub auth.Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %s", ev.Kind)
	default:
	}
}

func TestClient_SignInAndOut(t *testing.T) {
	a, env := newAuthority(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env, "super@edutrack.test", auth.RoleSuperAdmin, "")

	store := new(MemoryStore)
	c := NewClient(a, store, time.Minute)
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	sess, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess, "signed out")

	_, err = c.SignInWithPassword(ctx, auth.Credentials{Email: usr.Email, Password: "wrong"})
	assert.Error(t, err)
	noEvent(t, sub)

	sess, err = c.SignInWithPassword(ctx, auth.Credentials{Email: usr.Email, Password: testutil.Password})
	require.NoError(t, err)
	ev := nextEvent(t, sub)
	assert.Equal(t, auth.EventSignedIn, ev.Kind)
	assert.Equal(t, sess, ev.Session)

	stored, err := store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, sess, stored)

	got, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
	noEvent(t, sub)

	require.NoError(t, c.SignOut(ctx))
	assert.Equal(t, auth.EventSignedOut, nextEvent(t, sub).Kind)
	stored, err = store.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, stored)

	// the server side session is revoked too
	_, err = a.Verify(ctx, sess.AccessToken)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestClient_GetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes a session about to expire", func(t *testing.T) {
		a, env := newAuthority(t)
		usr := testutil.CreateUser(t, env, "super@edutrack.test", auth.RoleSuperAdmin, "")
		c := NewClient(a, new(MemoryStore), 2*time.Hour) // longer than the token lifetime
		sub := c.Subscribe()
		defer sub.Unsubscribe()

		sess, err := c.SignInWithPassword(ctx, auth.Credentials{Email: usr.Email, Password: testutil.Password})
		require.NoError(t, err)
		nextEvent(t, sub)

		got, err := c.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotEqual(t, sess.AccessToken, got.AccessToken)
		ev := nextEvent(t, sub)
		assert.Equal(t, auth.EventTokenRefreshed, ev.Kind)
		assert.Equal(t, got, ev.Session)
	})

	t.Run("drops a revoked session", func(t *testing.T) {
		a, env := newAuthority(t)
		usr := testutil.CreateUser(t, env, "super@edutrack.test", auth.RoleSuperAdmin, "")
		store := new(MemoryStore)
		c := NewClient(a, store, time.Minute)
		sub := c.Subscribe()
		defer sub.Unsubscribe()

		sess, err := c.SignInWithPassword(ctx, auth.Credentials{Email: usr.Email, Password: testutil.Password})
		require.NoError(t, err)
		nextEvent(t, sub)
		require.NoError(t, a.SignOut(ctx, sess.AccessToken)) // signed out elsewhere

		got, err := c.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, auth.EventSignedOut, nextEvent(t, sub).Kind)
		stored, _ := store.LoadSession()
		assert.Nil(t, stored)
	})

	t.Run("keeps the session on backend failures", func(t *testing.T) {
		store := new(MemoryStore)
		sess := &auth.Session{AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, store.SaveSession(sess))
		c := NewClient(failingBackend{err: errors.New("connection refused")}, store, time.Minute)

		_, err := c.GetSession(ctx)
		assert.Error(t, err)
		stored, _ := store.LoadSession()
		assert.Equal(t, sess, stored)
	})
}

func TestClient_UpdatePassword(t *testing.T) {
	a, env := newAuthority(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env, "super@edutrack.test", auth.RoleSuperAdmin, "")
	store := new(MemoryStore)
	c := NewClient(a, store, time.Minute)

	_, err := c.UpdatePassword(ctx, "N3w-Passw0rd!")
	assert.Equal(t, ErrInvalidToken, err, "signed out")

	_, err = c.SignInWithPassword(ctx, auth.Credentials{Email: usr.Email, Password: testutil.Password})
	require.NoError(t, err)

	sub := c.Subscribe()
	defer sub.Unsubscribe()
	sess, err := c.UpdatePassword(ctx, "N3w-Passw0rd!")
	require.NoError(t, err)
	ev := nextEvent(t, sub)
	assert.Equal(t, auth.EventUserUpdated, ev.Kind)
	assert.Equal(t, sess, ev.Session)

	stored, err := store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, sess, stored, "the updated session is kept")

	_, err = a.SignIn(ctx, auth.Credentials{Email: usr.Email, Password: "N3w-Passw0rd!"})
	assert.NoError(t, err)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newHub()
	kept, dropped := h.subscribe(), h.subscribe()
	dropped.Unsubscribe()
	dropped.Unsubscribe() // idempotent

	// a full, released subscription never blocks the publisher
	for i := 0; i < subscriptionBuffer; i++ {
		h.publish(auth.Event{Kind: auth.EventTokenRefreshed})
	}
	kept.Unsubscribe()
	h.publish(auth.Event{Kind: auth.EventSignedOut})

	assert.Len(t, kept.Events(), subscriptionBuffer)
	assert.Len(t, dropped.Events(), 0)
}

type failingBackend struct {
	err error
}

func (b failingBackend) SignIn(context.Context, auth.Credentials) (auth.Session, error) {
	return auth.Session{}, b.err
}
func (b failingBackend) Verify(context.Context, string) (auth.Session, error) {
	return auth.Session{}, b.err
}
func (b failingBackend) Refresh(context.Context, string) (auth.Session, error) {
	return auth.Session{}, b.err
}
func (b failingBackend) SignOut(context.Context, string) error { return b.err }
func (b failingBackend) UpdatePassword(context.Context, string, string) (auth.Session, error) {
	return auth.Session{}, b.err
}

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/user"
	"github.com/trezcool/edutrack/tests"
)

func newAuthority(t *testing.T) (*Authority, *testutil.Env) {
	env := testutil.NewEnv(t)
	return NewAuthority(env.Users, NewTokenIssuer(env.Conf)), env
}

func TestTokenIssuer(t *testing.T) {
	conf := testutil.NewConfig()
	ti := NewTokenIssuer(conf)
	usr := auth.User{ID: "8c2e6a8e-3b0b-4c47-9c53-0b9f1d2e4a11", Email: "someone@edutrack.test"}
	origIat := time.Now().Add(-time.Hour)

	sess, err := ti.Issue(usr, origIat)
	require.NoError(t, err)
	assert.Equal(t, usr, sess.User)
	assert.WithinDuration(t, time.Now().Add(conf.Server.JWTExpirationDelta), sess.ExpiresAt, 2*time.Second)

	claims, err := ti.Parse(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, claims.Subject)
	assert.Equal(t, usr.Email, claims.Email)
	assert.Equal(t, origIat.Unix(), claims.OrigIssuedAt)
	assert.NotEmpty(t, claims.Id)
	assert.Equal(t, origIat.Add(conf.Server.JWTRefreshExpirationDelta).Unix(), ti.RefreshDeadline(claims).Unix())

	other := testutil.NewConfig()
	other.SecretKey = "another-secret"
	expired := NewTokenIssuer(conf)
	expired.expiration = -time.Minute
	expSess, err := expired.Issue(usr, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "tampered", token: sess.AccessToken + "x"},
		{name: "expired", token: expSess.AccessToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ti.Parse(tt.token)
			assert.Equal(t, ErrInvalidToken, err)
		})
	}

	t.Run("other key", func(t *testing.T) {
		_, err := NewTokenIssuer(other).Parse(sess.AccessToken)
		assert.Equal(t, ErrInvalidToken, err)
	})
}

func TestAuthority_SignIn(t *testing.T) {
	a, env := newAuthority(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env, "super@edutrack.test", auth.RoleSuperAdmin, "")

	_, err := a.SignIn(ctx, auth.Credentials{Email: usr.Email, Password: "wrong"})
	assert.Equal(t, user.ErrInvalidCredentials, err)

	sess, err := a.SignIn(ctx, auth.Credentials{Email: usr.Email, Password: testutil.Password})
	require.NoError(t, err)
	assert.Equal(t, usr.Identity(), sess.User)

	got, err := a.Verify(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	testutil.Deactivate(t, env, usr)
	_, err = a.Verify(ctx, sess.AccessToken)
	assert.Equal(t, ErrAccountDeactivated, err)
}

func TestAuthority_Refresh(t *testing.T) {
	a, env := newAuthority(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env, "super@edutrack.test", auth.RoleSuperAdmin, "")

	origIat := time.Now().Add(-time.Hour)
	sess, err := a.tokens.Issue(usr.Identity(), origIat)
	require.NoError(t, err)

	refreshed, err := a.Refresh(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.AccessToken, refreshed.AccessToken)

	claims, err := a.tokens.Parse(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, origIat.Unix(), claims.OrigIssuedAt, "refreshes keep the original sign-in time")

	// the refreshed token is spent
	_, err = a.Verify(ctx, sess.AccessToken)
	assert.Equal(t, ErrInvalidToken, err)
	_, err = a.Refresh(ctx, sess.AccessToken)
	assert.Equal(t, ErrInvalidToken, err)

	t.Run("refresh expired", func(t *testing.T) {
		old, err := a.tokens.Issue(usr.Identity(), time.Now().Add(-a.tokens.refreshExpiration-time.Minute))
		require.NoError(t, err)
		_, err = a.Refresh(ctx, old.AccessToken)
		assert.Equal(t, ErrRefreshExpired, err)
	})
}

func TestAuthority_SignOut(t *testing.T) {
	a, env := newAuthority(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env, "school@edutrack.test", auth.RoleNone, "")

	sess, err := a.SignIn(ctx, auth.Credentials{Email: usr.Email, Password: testutil.Password})
	require.NoError(t, err)

	require.NoError(t, a.SignOut(ctx, sess.AccessToken))
	_, err = a.Verify(ctx, sess.AccessToken)
	assert.Equal(t, ErrInvalidToken, err)

	assert.NoError(t, a.SignOut(ctx, "garbage"), "invalid tokens are already signed out")

	t.Run("revocations outlive many sign-outs", func(t *testing.T) {
		first, err := a.SignIn(ctx, auth.Credentials{Email: usr.Email, Password: testutil.Password})
		require.NoError(t, err)
		require.NoError(t, a.SignOut(ctx, first.AccessToken))

		for i := 0; i < 5000; i++ {
			sess, err := a.tokens.Issue(usr.Identity(), time.Now())
			require.NoError(t, err)
			require.NoError(t, a.SignOut(ctx, sess.AccessToken))
		}
		assert.Greater(t, a.revoked.Len(), 5000)

		_, err = a.Verify(ctx, first.AccessToken)
		assert.Equal(t, ErrInvalidToken, err)
	})
}

func TestAuthority_UpdatePassword(t *testing.T) {
	a, env := newAuthority(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env, "school@edutrack.test", auth.RoleNone, "")

	sess, err := a.SignIn(ctx, auth.Credentials{Email: usr.Email, Password: testutil.Password})
	require.NoError(t, err)

	newPwd := "N3w-Passw0rd!"
	got, err := a.UpdatePassword(ctx, sess.AccessToken, newPwd)
	require.NoError(t, err)
	assert.Equal(t, sess.User, got.User)

	_, err = a.SignIn(ctx, auth.Credentials{Email: usr.Email, Password: newPwd})
	assert.NoError(t, err)
}

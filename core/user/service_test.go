package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/user"
	"github.com/trezcool/edutrack/services/email"
	"github.com/trezcool/edutrack/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	schoolID := core.NewID()

	usr := testutil.CreateUser(t, env, "admin@school.test", auth.RoleSchoolAdmin, schoolID)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testutil.Password))

	prof, err := env.Users.GetProfile(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.Profile{UserID: usr.ID, Role: auth.RoleSchoolAdmin, SchoolID: schoolID}, prof)

	// no role, no profile
	bare := testutil.CreateUser(t, env, "bare@school.test", auth.RoleNone, "")
	_, err = env.Users.GetProfile(ctx, bare.ID)
	assert.True(t, errors.Is(err, auth.ErrProfileNotFound))

	// emails are unique
	err = env.Users.CheckUniqueness(ctx, "admin@school.test")
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}}, vErr.Fields)
	assert.NoError(t, env.Users.CheckUniqueness(ctx, "admin@school.test", usr.ID))
}

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, env, "super@edutrack.test", auth.RoleSuperAdmin, "")
	naughty := testutil.Deactivate(t, env, testutil.CreateUser(t, env, "naughty@edutrack.test", auth.RoleSuperAdmin, ""))

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "nobody@edutrack.test", pwd: testutil.Password, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", email: usr.Email, pwd: "wrong", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", email: naughty.Email, pwd: testutil.Password, wantErr: user.ErrAccountDeactivated},
		{name: "email is cleaned", email: "  SUPER@edutrack.test ", pwd: testutil.Password},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Users.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
			assert.False(t, got.LastLogin.IsZero())
		})
	}
}

func TestService_SetProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env, "someone@edutrack.test", auth.RoleNone, "")

	_, err := env.Users.SetProfile(ctx, auth.Profile{UserID: usr.ID, Role: auth.RoleSchoolAdmin})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "school_id", vErr.Fields[0].Field)

	prof, err := env.Users.SetProfile(ctx, auth.Profile{UserID: usr.ID, Role: auth.RoleSuperAdmin, SchoolID: core.NewID()})
	require.NoError(t, err)
	assert.Empty(t, prof.SchoolID, "super admins belong to no school")

	got, err := env.Users.GetProfile(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, prof, got)
}

func TestService_PasswordReset(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env, "forgetful@edutrack.test", auth.RoleSuperAdmin, "")

	// unknown accounts are silently ignored
	require.NoError(t, env.Users.RequestPasswordReset(ctx, "nobody@edutrack.test"))
	assert.Empty(t, emailsvc.SentMessages())

	require.NoError(t, env.Users.RequestPasswordReset(ctx, usr.Email))
	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, usr.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "/password-reset/")

	data := sent[0].TemplateData.(map[string]string)
	newPwd := "N3w-Passw0rd!"

	err := env.Users.ResetPassword(ctx, user.ResetUserPassword{
		Token: "bad-token", UID: data["UID"], Password: newPwd, PasswordConfirm: newPwd,
	})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "token", vErr.Fields[0].Field)

	require.NoError(t, env.Users.ResetPassword(ctx, user.ResetUserPassword{
		Token: data["Token"], UID: data["UID"], Password: newPwd, PasswordConfirm: newPwd,
	}))
	_, err = env.Users.Authenticate(ctx, usr.Email, newPwd)
	require.NoError(t, err)

	// the login invalidated the token
	err = env.Users.ResetPassword(ctx, user.ResetUserPassword{
		Token: data["Token"], UID: data["UID"], Password: "An0ther-Pwd!", PasswordConfirm: "An0ther-Pwd!",
	})
	assert.True(t, errors.As(err, &vErr))
}

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env, "taken@edutrack.test", auth.RoleNone, "")

	newUser := func(email, pwd, role, schoolID string) user.NewUser {
		return user.NewUser{Email: email, Password: pwd, PasswordConfirm: pwd, Role: role, SchoolID: schoolID}
	}

	tests := []struct {
		name      string
		data      user.NewUser
		wantField string
		wantTag   string
	}{
		{name: "valid", data: newUser("new@edutrack.test", testutil.Password, "super_admin", "")},
		{name: "bad email", data: newUser("new", testutil.Password, "", ""), wantField: "email", wantTag: "email"},
		{name: "unknown role", data: newUser("new@edutrack.test", testutil.Password, "teacher", ""), wantField: "role", wantTag: "role"},
		{
			name: "school admin without school", data: newUser("new@edutrack.test", testutil.Password, "school_admin", ""),
			wantField: "school_id", wantTag: "schoolrequired",
		},
		{name: "too short", data: newUser("new@edutrack.test", "Ab1!", "", ""), wantField: "password", wantTag: "pwdminlen"},
		{name: "whitespace", data: newUser("new@edutrack.test", "Ab1! Ab1!", "", ""), wantField: "password", wantTag: "pwdnospace"},
		{name: "all numeric", data: newUser("new@edutrack.test", "1234567890", "", ""), wantField: "password", wantTag: "pwdnotallnum"},
		{name: "too simple", data: newUser("new@edutrack.test", "abcdefgh1", "", ""), wantField: "password", wantTag: "pwdcplx"},
		{name: "similar to email", data: newUser("johnsmith@x.io", "Johnsmith1!", "", ""), wantField: "password", wantTag: "pwdtoosim"},
		{name: "common", data: newUser("new@edutrack.test", "P@ssw0rd", "", ""), wantField: "password", wantTag: "pwdnocommon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(ctx, env.Validate, env.Users)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "got %v", err)
			assert.Equal(t, tt.wantField, vErrs[0].Field())
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}

	t.Run("email taken", func(t *testing.T) {
		data := newUser(" TAKEN@edutrack.test", testutil.Password, "", "")
		err := data.Validate(ctx, env.Validate, env.Users)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "email", vErr.Fields[0].Field)
	})
}

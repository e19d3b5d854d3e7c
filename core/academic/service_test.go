package academic_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/academic"
	"github.com/trezcool/edutrack/tests"
)

func sessionInput(name string, startYear int, active bool) academic.SessionInput {
	return academic.SessionInput{
		Name:      name,
		StartDate: core.NewDate(startYear, time.April, 1),
		EndDate:   core.NewDate(startYear+1, time.March, 31),
		IsActive:  active,
	}
}

func TestSessionInput_Validate(t *testing.T) {
	env := testutil.NewEnv(t)

	tests := []struct {
		name      string
		in        academic.SessionInput
		wantField string
		wantTag   string
	}{
		{name: "valid", in: sessionInput("2024-2025", 2024, false)},
		{name: "bad name", in: sessionInput("2024/25", 2024, false), wantField: "name", wantTag: "academicyear"},
		{name: "years not consecutive", in: sessionInput("2024-2026", 2024, false), wantField: "name", wantTag: "academicyear"},
		{
			name: "missing start", in: academic.SessionInput{Name: "2024-2025", EndDate: core.NewDate(2025, time.March, 31)},
			wantField: "start_date", wantTag: "required",
		},
		{
			name: "ends before it starts",
			in: academic.SessionInput{
				Name: "2024-2025", StartDate: core.NewDate(2025, time.April, 1), EndDate: core.NewDate(2024, time.April, 1),
			},
			wantField: "end_date", wantTag: "enddate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			err := in.Validate(env.Validate)
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
}

func TestService_Sessions(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	schoolID := core.NewID()
	scope := core.Scope{SchoolID: schoolID}

	_, err := env.Academics.Current(ctx, scope)
	assert.Equal(t, core.ErrNotFound, err)

	older, err := env.Academics.CreateSession(ctx, scope, sessionInput("2023-2024", 2023, true))
	require.NoError(t, err)
	assert.Equal(t, schoolID, older.SchoolID)
	newer, err := env.Academics.CreateSession(ctx, scope, sessionInput("2024-2025", 2024, false))
	require.NoError(t, err)

	t.Run("second active session", func(t *testing.T) {
		_, err := env.Academics.CreateSession(ctx, scope, sessionInput("2025-2026", 2025, true))
		var cErr *core.ConflictError
		require.True(t, errors.As(err, &cErr))
		assert.Equal(t, core.ConstraintOneActiveSession, cErr.Constraint)
		assert.Equal(t, "It looks like this school already has an active session.", core.ErrorMessage(err))
	})

	t.Run("active session first", func(t *testing.T) {
		cur, err := env.Academics.Current(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, older.ID, cur.ID)

		sessions, err := env.Academics.ListSessions(ctx, scope, core.QueryFilter{}, nil)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, older.ID, sessions[0].ID)
	})

	t.Run("set current", func(t *testing.T) {
		cur, err := env.Academics.SetCurrent(ctx, scope, newer.ID)
		require.NoError(t, err)
		assert.True(t, cur.IsActive)

		prev, err := env.Academics.GetSession(ctx, scope, older.ID)
		require.NoError(t, err)
		assert.False(t, prev.IsActive)

		got, err := env.Academics.Current(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, got.ID)
	})

	t.Run("latest session when none is active", func(t *testing.T) {
		in := sessionInput("2024-2025", 2024, false)
		_, err := env.Academics.UpdateSession(ctx, scope, newer.ID, in)
		require.NoError(t, err)

		got, err := env.Academics.Current(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, got.ID)
	})

	t.Run("other schools", func(t *testing.T) {
		other := core.Scope{SchoolID: core.NewID()}
		_, err := env.Academics.SetCurrent(ctx, other, newer.ID)
		assert.Equal(t, core.ErrNotFound, err)

		sessions, err := env.Academics.ListSessions(ctx, other, core.QueryFilter{}, nil)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("tenant", func(t *testing.T) {
		_, err := env.Academics.CreateSession(ctx, core.Scope{}, sessionInput("2030-2031", 2030, false))
		assert.Equal(t, core.ErrNoTenant, err)

		_, err = env.Academics.CreateSession(ctx, core.Scope{All: true}, sessionInput("2030-2031", 2030, false))
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "school_id", vErr.Fields[0].Field)

		in := sessionInput("2030-2031", 2030, false)
		in.SchoolID = core.NewID()
		_, err = env.Academics.CreateSession(ctx, scope, in)
		assert.Equal(t, core.ErrForbidden, err)
	})
}

func TestService_Classes(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	schoolID := core.NewID()
	scope := core.Scope{SchoolID: schoolID}

	in := academic.ClassInput{Name: " Grade 1 ", Sections: []string{" A "}}
	require.NoError(t, in.Validate(env.Validate))
	assert.Equal(t, academic.DefaultMaxStudents, in.MaxStudents)
	assert.Equal(t, []string{"A"}, in.Sections)

	grade1, err := env.Academics.CreateClass(ctx, scope, in)
	require.NoError(t, err)
	assert.Equal(t, "Grade 1", grade1.Name)

	_, err = env.Academics.CreateClass(ctx, scope, in)
	var cErr *core.ConflictError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "classes_school_id_name_key", cErr.Constraint)

	grade2 := testutil.CreateClass(t, env, schoolID, "Grade 2", 30)
	testutil.CreateStudent(t, env, schoolID, grade2.ID, "Amani")

	t.Run("class with students", func(t *testing.T) {
		err := env.Academics.DeleteClass(ctx, scope, grade2.ID)
		require.True(t, errors.As(err, &cErr))
		assert.Equal(t, core.ConstraintClassInUse, cErr.Constraint)
		assert.Equal(t, "This class still has enrolled students.", core.ErrorMessage(err))
	})

	t.Run("empty class", func(t *testing.T) {
		require.NoError(t, env.Academics.DeleteClass(ctx, scope, grade1.ID))
		_, err := env.Academics.GetClass(ctx, scope, grade1.ID)
		assert.Equal(t, core.ErrNotFound, err)
	})
}

func TestService_Sections(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	schoolID := core.NewID()
	scope := core.Scope{SchoolID: schoolID}

	cls := testutil.CreateClass(t, env, schoolID, "Grade 3", 0)
	foreign := testutil.CreateClass(t, env, core.NewID(), "Grade 3", 0)

	sec, err := env.Academics.CreateSection(ctx, scope, academic.SectionInput{ClassID: cls.ID, Name: "A", RoomNumber: "101"})
	require.NoError(t, err)
	assert.True(t, sec.IsActive)
	assert.Equal(t, schoolID, sec.SchoolID)

	_, err = env.Academics.CreateSection(ctx, scope, academic.SectionInput{ClassID: foreign.ID, Name: "B"})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "class_id", vErr.Fields[0].Field)

	inactive := false
	sec, err = env.Academics.UpdateSection(ctx, scope, sec.ID, academic.SectionInput{ClassID: cls.ID, Name: "A", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, sec.IsActive)

	setup, err := env.Academics.Setup(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, academic.Setup{Classes: 1, Sections: 1}, setup)
}

package student_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/student"
	"github.com/trezcool/edutrack/tests"
)

func TestTotalFee(t *testing.T) {
	tests := []struct {
		fs              student.FeeStructure
		admission, regn float64
		want            float64
	}{
		{fs: student.FeeRegular, admission: 5000, regn: 500, want: 50500},
		{fs: student.FeeRTE, admission: 0, regn: 0, want: 0},
		{fs: student.FeeScholarship, admission: 1000, regn: 0, want: 23500},
		{fs: student.FeeStaff, admission: 0, regn: 250, want: 34000},
		{fs: "unknown", admission: 100, regn: 100, want: 200},
	}
	for _, tt := range tests {
		t.Run(string(tt.fs), func(t *testing.T) {
			assert.Equal(t, tt.want, student.TotalFee(tt.fs, tt.admission, tt.regn))
		})
	}
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	schoolID := core.NewID()
	scope := core.Scope{SchoolID: schoolID}
	tiny := testutil.CreateClass(t, env, schoolID, "Tiny", 1)

	in := testutil.StudentInput(tiny.ID, " Zawadi ")
	require.NoError(t, in.Validate(env.Validate))
	st, err := env.Students.Create(ctx, scope, in)
	require.NoError(t, err)
	assert.Equal(t, "Zawadi Doe", st.FullName())
	assert.Equal(t, schoolID, st.SchoolID)

	t.Run("full class", func(t *testing.T) {
		_, err := env.Students.Create(ctx, scope, testutil.StudentInput(tiny.ID, "Baraka"))
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "class_id", vErr.Fields[0].Field)
		assert.Contains(t, vErr.Fields[0].Error, "is full")
	})

	t.Run("class of another school", func(t *testing.T) {
		foreign := testutil.CreateClass(t, env, core.NewID(), "Foreign", 0)
		_, err := env.Students.Create(ctx, scope, testutil.StudentInput(foreign.ID, "Baraka"))
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "unknown class", vErr.Fields[0].Error)
	})

	t.Run("editing keeps the seat", func(t *testing.T) {
		in := testutil.StudentInput(tiny.ID, "Zawadi")
		in.RollNo = "7"
		got, err := env.Students.Update(ctx, scope, st.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "7", got.RollNo)
	})
}

func TestStudentInput_Validate(t *testing.T) {
	env := testutil.NewEnv(t)
	classID := core.NewID()

	tests := []struct {
		name      string
		mutate    func(in *student.StudentInput)
		wantField string
	}{
		{name: "valid", mutate: func(in *student.StudentInput) {}},
		{name: "short phone", mutate: func(in *student.StudentInput) { in.FatherPhone = "12345" }, wantField: "father_phone"},
		{name: "bad medium", mutate: func(in *student.StudentInput) { in.Medium = "latin" }, wantField: "medium"},
		{name: "bad fee structure", mutate: func(in *student.StudentInput) { in.FeeStructure = "free" }, wantField: "fee_structure"},
		{name: "bad academic year", mutate: func(in *student.StudentInput) { in.AcademicYear = "2024" }, wantField: "academic_year"},
		{name: "missing birth date", mutate: func(in *student.StudentInput) { in.DateOfBirth = core.Date{} }, wantField: "date_of_birth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testutil.StudentInput(classID, "Imani")
			tt.mutate(&in)
			err := in.Validate(env.Validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "got %v", err)
			assert.Equal(t, tt.wantField, vErrs[0].Field())
		})
	}
}

func TestService_Applications(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	schoolID := core.NewID()
	scope := core.Scope{SchoolID: schoolID}

	app, err := env.Students.CreateApplication(ctx, scope, student.ApplicationInput{
		FirstName: "Neema", LastName: "Otieno", Gender: "female", FatherName: "F", MotherName: "M",
		AdmissionClass: "Grade 1", Section: "A", FeeStructure: string(student.FeeScholarship),
		AdmissionFee: 2000, RegistrationFee: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, student.ApplicationPending, app.Status)
	assert.Equal(t, float64(25000), app.TotalFee)

	stats, err := env.Students.Stats(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingApplications)

	app, err = env.Students.ReviewApplication(ctx, scope, app.ID, student.Review{Status: student.ApplicationApproved})
	require.NoError(t, err)
	assert.Equal(t, student.ApplicationApproved, app.Status)

	_, err = env.Students.ReviewApplication(ctx, scope, app.ID, student.Review{Status: student.ApplicationRejected})
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr), "only pending applications are reviewed")

	_, err = env.Students.GetApplication(ctx, core.Scope{SchoolID: core.NewID()}, app.ID)
	assert.Equal(t, core.ErrNotFound, err)
}

func TestService_Stats(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	schoolID := core.NewID()
	scope := core.Scope{SchoolID: schoolID}
	cls := testutil.CreateClass(t, env, schoolID, "Grade 4", 0)

	testutil.CreateStudent(t, env, schoolID, cls.ID, "Asha")
	alumni := testutil.StudentInput(cls.ID, "Juma")
	alumni.Status = student.StatusAlumni
	_, err := env.Students.Create(ctx, scope, alumni)
	require.NoError(t, err)

	stats, err := env.Students.Stats(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, student.Stats{Students: 2, ActiveStudents: 1, Classes: 1, ExpectedFees: 45000}, stats)

	students, err := env.Students.List(ctx, scope, core.QueryFilter{Search: "jum"}, nil)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Juma", students[0].FirstName)
}

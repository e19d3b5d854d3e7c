package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/student"
	"github.com/trezcool/edutrack/tests"
)

func Test_studentApi_students(t *testing.T) {
	ts := setup(t)
	schoolA, schoolB := core.NewID(), core.NewID()
	adminA := testutil.CreateUser(t, ts.env, "a@edutrack.test", auth.RoleSchoolAdmin, schoolA)
	token := ts.token(t, adminA)

	grade1 := testutil.CreateClass(t, ts.env, schoolA, "Grade 1", 2)
	grade2 := testutil.CreateClass(t, ts.env, schoolA, "Grade 2", 30)
	other := testutil.CreateClass(t, ts.env, schoolB, "Grade 1", 30)

	bob := testutil.CreateStudent(t, ts.env, schoolA, grade1.ID, "Bob")
	alice := testutil.CreateStudent(t, ts.env, schoolA, grade2.ID, "Alice")
	stranger := testutil.CreateStudent(t, ts.env, schoolB, other.ID, "Carol")

	base := "/students/all-students"
	tests := []httpTest{
		{name: "by first name", path: base, token: token, wantCode: http.StatusOK, wantData: marchallList(t, alice, bob)},
		{name: "filter by class", path: base + "?class_id=" + grade1.ID, token: token, wantCode: http.StatusOK, wantData: marchallList(t, bob)},
		{name: "search", path: base + "?search=ali", token: token, wantCode: http.StatusOK, wantData: marchallList(t, alice)},
		{name: "descending", path: base + "?ordering=-first_name", token: token, wantCode: http.StatusOK, wantData: marchallList(t, bob, alice)},
		{name: "retrieve", path: base + "/" + bob.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, bob)},
		{name: "other school's student", path: base + "/" + stranger.ID, token: token, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(newAuthRequest(tt.method, tt.path, tt.token))
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("admission", func(t *testing.T) {
		in := testutil.StudentInput(grade1.ID, "Dave")
		rec := ts.do(newAuthRequest(http.MethodPost, "/students/new-admission", token, marchallObj(t, in)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var dave student.Student
		decode(t, rec, &dave)
		assert.Equal(t, schoolA, dave.SchoolID)

		// Grade 1 takes two students
		rec = ts.do(newAuthRequest(http.MethodPost, "/students/new-admission", token, marchallObj(t, testutil.StudentInput(grade1.ID, "Eve"))))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"class_id":"class Grade 1 is full (2 students)"}`, rec.Body.String())

		// classes of other schools are unknown
		rec = ts.do(newAuthRequest(http.MethodPost, "/students/new-admission", token, marchallObj(t, testutil.StudentInput(other.ID, "Eve"))))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"class_id":"unknown class"}`, rec.Body.String())

		bad := testutil.StudentInput(grade2.ID, "Eve")
		bad.FatherPhone = "not-a-phone"
		bad.Gender = "unknown"
		rec = ts.do(newAuthRequest(http.MethodPost, "/students/new-admission", token, marchallObj(t, bad)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "father_phone")
		assert.Contains(t, fields, "gender")
	})

	t.Run("update and delete", func(t *testing.T) {
		in := testutil.StudentInput(grade2.ID, "Alicia")
		in.Status = student.StatusAlumni
		rec := ts.do(newAuthRequest(http.MethodPut, base+"/"+alice.ID, token, marchallObj(t, in)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var st student.Student
		decode(t, rec, &st)
		assert.Equal(t, "Alicia", st.FirstName)
		assert.Equal(t, student.StatusAlumni, st.Status)

		rec = ts.do(newAuthRequest(http.MethodGet, base+"?status=alumni", token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, st)}, rec)

		rec = ts.do(newAuthRequest(http.MethodDelete, base+"/"+stranger.ID, token))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = ts.do(newAuthRequest(http.MethodDelete, base+"/"+alice.ID, token))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_studentApi_applications(t *testing.T) {
	ts := setup(t)
	schoolID := core.NewID()
	admin := testutil.CreateUser(t, ts.env, "admin@edutrack.test", auth.RoleSchoolAdmin, schoolID)
	token := ts.token(t, admin)

	in := student.ApplicationInput{
		FirstName:       "Frank",
		LastName:        "Doe",
		Gender:          "male",
		FatherName:      "John Doe",
		MotherName:      "Jane Doe",
		AdmissionClass:  "Grade 1",
		Section:         "A",
		FeeStructure:    string(student.FeeRegular),
		PaymentMode:     "yearly",
		AdmissionFee:    100,
		RegistrationFee: 50,
	}
	rec := ts.do(newAuthRequest(http.MethodPost, "/admission-form", token, marchallObj(t, in)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app student.Application
	decode(t, rec, &app)
	assert.Equal(t, student.ApplicationPending, app.Status)
	assert.Equal(t, student.TotalFee(student.FeeRegular, 100, 50), app.TotalFee)

	rec = ts.do(newAuthRequest(http.MethodGet, "/admission-form?status=pending", token))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, app)}, rec)

	t.Run("review", func(t *testing.T) {
		path := "/admission-form/" + app.ID + "/review"
		rec := ts.do(newAuthRequest(http.MethodPost, path, token, marchallObj(t, student.Review{Status: "maybe"})))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(newAuthRequest(http.MethodPost, path, token, marchallObj(t, student.Review{Status: student.ApplicationApproved})))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var reviewed student.Application
		decode(t, rec, &reviewed)
		assert.Equal(t, student.ApplicationApproved, reviewed.Status)

		rec = ts.do(newAuthRequest(http.MethodPost, path, token, marchallObj(t, student.Review{Status: student.ApplicationRejected})))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"status":"application already approved"}`, rec.Body.String())

		rec = ts.do(newAuthRequest(http.MethodGet, "/admission-form?status=pending", token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("delete", func(t *testing.T) {
		rec := ts.do(newAuthRequest(http.MethodDelete, "/admission-form/"+app.ID, token))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = ts.do(newAuthRequest(http.MethodGet, "/admission-form/"+app.ID, token))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

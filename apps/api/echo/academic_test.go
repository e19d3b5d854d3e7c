package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/academic"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/tests"
)

func Test_academicApi_sessions(t *testing.T) {
	ts := setup(t)
	schoolID := core.NewID()
	admin := testutil.CreateUser(t, ts.env, "admin@edutrack.test", auth.RoleSchoolAdmin, schoolID)
	token := ts.token(t, admin)

	create := func(t *testing.T, name string, year int, active bool) academic.Session {
		t.Helper()
		in := academic.SessionInput{
			Name:      name,
			StartDate: core.NewDate(year, time.April, 1),
			EndDate:   core.NewDate(year+1, time.March, 31),
			IsActive:  active,
		}
		rec := ts.do(newAuthRequest(http.MethodPost, "/academic-core/sessions", token, marchallObj(t, in)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var sess academic.Session
		decode(t, rec, &sess)
		return sess
	}

	rec := ts.do(newAuthRequest(http.MethodGet, "/academic-core/sessions/current", token))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no session yet")

	past := create(t, "2023-2024", 2023, false)
	current := create(t, "2024-2025", 2024, true)
	assert.Equal(t, schoolID, current.SchoolID, "sessions land in the admin's school")

	t.Run("a second active session conflicts", func(t *testing.T) {
		in := academic.SessionInput{
			Name:      "2025-2026",
			StartDate: core.NewDate(2025, time.April, 1),
			EndDate:   core.NewDate(2026, time.March, 31),
			IsActive:  true,
		}
		rec := ts.do(newAuthRequest(http.MethodPost, "/academic-core/sessions", token, marchallObj(t, in)))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"It looks like this school already has an active session."}`, rec.Body.String())
	})

	t.Run("invalid name", func(t *testing.T) {
		in := academic.SessionInput{Name: "2024", StartDate: core.NewDate(2024, time.April, 1), EndDate: core.NewDate(2025, time.March, 31)}
		rec := ts.do(newAuthRequest(http.MethodPost, "/academic-core/sessions", token, marchallObj(t, in)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "name")
	})

	t.Run("active first", func(t *testing.T) {
		rec := ts.do(newAuthRequest(http.MethodGet, "/academic-core/sessions", token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, current, past)}, rec)

		rec = ts.do(newAuthRequest(http.MethodGet, "/academic-core/sessions/current", token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, current)}, rec)
	})

	t.Run("set current", func(t *testing.T) {
		rec := ts.do(newAuthRequest(http.MethodPost, "/academic-core/sessions/"+past.ID+"/current", token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sess academic.Session
		decode(t, rec, &sess)
		assert.True(t, sess.IsActive)

		rec = ts.do(newAuthRequest(http.MethodGet, "/academic-core/sessions?is_active=true", token))
		var active []academic.Session
		decode(t, rec, &active)
		if assert.Len(t, active, 1) {
			assert.Equal(t, past.ID, active[0].ID)
		}
	})

	t.Run("setup", func(t *testing.T) {
		rec := ts.do(newAuthRequest(http.MethodGet, "/academic-core/academic-setup", token))
		require.Equal(t, http.StatusOK, rec.Code)
		var setup academic.Setup
		decode(t, rec, &setup)
		assert.Equal(t, 2, setup.Sessions)
		if assert.NotNil(t, setup.Current) {
			assert.Equal(t, past.ID, setup.Current.ID)
		}
	})
}

func Test_academicApi_tenancy(t *testing.T) {
	ts := setup(t)
	schoolA, schoolB := core.NewID(), core.NewID()
	adminA := testutil.CreateUser(t, ts.env, "a@edutrack.test", auth.RoleSchoolAdmin, schoolA)
	adminB := testutil.CreateUser(t, ts.env, "b@edutrack.test", auth.RoleSchoolAdmin, schoolB)
	super := testutil.CreateUser(t, ts.env, "super@edutrack.test", auth.RoleSuperAdmin, "")
	nobody := testutil.CreateUser(t, ts.env, "nobody@edutrack.test", auth.RoleNone, "")
	tokenA, tokenB := ts.token(t, adminA), ts.token(t, adminB)
	superToken, nobodyToken := ts.token(t, super), ts.token(t, nobody)

	grade1 := testutil.CreateClass(t, ts.env, schoolA, "Grade 1", 30)
	grade2 := testutil.CreateClass(t, ts.env, schoolB, "Grade 2", 30)

	classPath := "/academic-core/classes/"
	tests := []httpTest{
		{name: "own classes", path: classPath, token: tokenA, wantCode: http.StatusOK, wantData: marchallList(t, grade1)},
		{name: "own class", path: classPath + grade1.ID, token: tokenA, wantCode: http.StatusOK, wantData: marchallObj(t, grade1)},
		{name: "other school's class", path: classPath + grade2.ID, token: tokenA, wantCode: http.StatusNotFound},
		{name: "super admin sees all", path: classPath + "?ordering=name", token: superToken, wantCode: http.StatusOK, wantData: marchallList(t, grade1, grade2)},
		{name: "super admin filters by school", path: classPath + "?school_id=" + schoolB, token: superToken, wantCode: http.StatusOK, wantData: marchallList(t, grade2)},
		{name: "no profile sees nothing", path: classPath, token: nobodyToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "unknown ordering column", path: classPath + "?ordering=secret", token: tokenA, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(newAuthRequest(tt.method, tt.path, tt.token))
			checkCodeAndData(t, tt, rec)
		})
	}

	in := academic.ClassInput{Name: "Grade 3", Sections: []string{"A"}}

	t.Run("writes to another school are refused", func(t *testing.T) {
		other := in
		other.SchoolID = schoolB
		rec := ts.do(newAuthRequest(http.MethodPost, classPath, tokenA, marchallObj(t, other)))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(newAuthRequest(http.MethodDelete, classPath+grade2.ID, tokenA))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = ts.do(newAuthRequest(http.MethodGet, classPath+grade2.ID, tokenB))
		assert.Equal(t, http.StatusOK, rec.Code, "the class survives")
	})

	t.Run("no profile cannot write", func(t *testing.T) {
		rec := ts.do(newAuthRequest(http.MethodPost, classPath, nobodyToken, marchallObj(t, in)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("super admin names the school", func(t *testing.T) {
		rec := ts.do(newAuthRequest(http.MethodPost, classPath, superToken, marchallObj(t, in)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"school_id":"this field is required"}`, rec.Body.String())

		withSchool := in
		withSchool.SchoolID = schoolB
		rec = ts.do(newAuthRequest(http.MethodPost, classPath, superToken, marchallObj(t, withSchool)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var cls academic.Class
		decode(t, rec, &cls)
		assert.Equal(t, schoolB, cls.SchoolID)
		assert.Equal(t, academic.DefaultMaxStudents, cls.MaxStudents)
	})
}

func Test_academicApi_classesAndSections(t *testing.T) {
	ts := setup(t)
	schoolID := core.NewID()
	admin := testutil.CreateUser(t, ts.env, "admin@edutrack.test", auth.RoleSchoolAdmin, schoolID)
	token := ts.token(t, admin)

	grade1 := testutil.CreateClass(t, ts.env, schoolID, "Grade 1", 30)
	grade2 := testutil.CreateClass(t, ts.env, schoolID, "Grade 2", 30)

	t.Run("class names are unique per school", func(t *testing.T) {
		in := academic.ClassInput{Name: "Grade 1"}
		rec := ts.do(newAuthRequest(http.MethodPost, "/academic-core/classes", token, marchallObj(t, in)))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"This record already exists."}`, rec.Body.String())
	})

	t.Run("sections", func(t *testing.T) {
		in := academic.SectionInput{ClassID: grade1.ID, Name: "A", RoomNumber: "101"}
		rec := ts.do(newAuthRequest(http.MethodPost, "/academic-core/sections", token, marchallObj(t, in)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var secA academic.Section
		decode(t, rec, &secA)
		assert.True(t, secA.IsActive)

		in.ClassID = core.NewID()
		rec = ts.do(newAuthRequest(http.MethodPost, "/academic-core/sections", token, marchallObj(t, in)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"class_id":"unknown class"}`, rec.Body.String())

		inactive := false
		in = academic.SectionInput{ClassID: grade2.ID, Name: "B", IsActive: &inactive}
		rec = ts.do(newAuthRequest(http.MethodPost, "/academic-core/sections", token, marchallObj(t, in)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var secB academic.Section
		decode(t, rec, &secB)

		rec = ts.do(newAuthRequest(http.MethodGet, "/academic-core/sections?class_id="+grade1.ID, token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, secA)}, rec)
		rec = ts.do(newAuthRequest(http.MethodGet, "/academic-core/sections?is_active=false", token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, secB)}, rec)

		rec = ts.do(newAuthRequest(http.MethodDelete, "/academic-core/sections/"+secB.ID, token))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("update class", func(t *testing.T) {
		in := academic.ClassInput{Name: "Grade 2", Sections: []string{" A ", "B"}, ClassTeacher: "Mrs. Smith", MaxStudents: 25}
		rec := ts.do(newAuthRequest(http.MethodPut, "/academic-core/classes/"+grade2.ID, token, marchallObj(t, in)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var cls academic.Class
		decode(t, rec, &cls)
		assert.Equal(t, core.StringList{"A", "B"}, cls.Sections)
		assert.Equal(t, 25, cls.MaxStudents)
	})

	t.Run("classes with students cannot be deleted", func(t *testing.T) {
		testutil.CreateStudent(t, ts.env, schoolID, grade1.ID, "Alice")

		rec := ts.do(newAuthRequest(http.MethodDelete, "/academic-core/classes/"+grade1.ID, token))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"This class still has enrolled students."}`, rec.Body.String())

		rec = ts.do(newAuthRequest(http.MethodDelete, "/academic-core/classes/"+grade2.ID, token))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

package sqlxrepos

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/edutrack/core/academic"
	"github.com/trezcool/edutrack/core/school"
	"github.com/trezcool/edutrack/core/student"
)

func NewPlanStore(db *sqlx.DB) *Table[school.Plan] {
	return NewTable[school.Plan](db, "plans", "", "name")
}

// NewSchoolStore scopes schools on their own id: a school admin only sees its school.
func NewSchoolStore(db *sqlx.DB) *Table[school.School] {
	return NewTable[school.School](db, "schools", "id", "name", "code", "email")
}

func NewSessionStore(db *sqlx.DB) *Table[academic.Session] {
	return NewTable[academic.Session](db, "academic_sessions", "school_id", "name")
}

func NewClassStore(db *sqlx.DB) *Table[academic.Class] {
	return NewTable[academic.Class](db, "classes", "school_id", "name", "class_teacher")
}

func NewSectionStore(db *sqlx.DB) *Table[academic.Section] {
	return NewTable[academic.Section](db, "sections", "school_id", "name", "room_number")
}

func NewStudentStore(db *sqlx.DB) *Table[student.Student] {
	return NewTable[student.Student](db, "students", "school_id",
		"first_name", "middle_name", "last_name", "father_name", "mother_name")
}

func NewApplicationStore(db *sqlx.DB) *Table[student.Application] {
	return NewTable[student.Application](db, "admission_applications", "school_id",
		"first_name", "last_name", "father_name", "mother_name")
}

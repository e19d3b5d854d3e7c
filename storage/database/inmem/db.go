// Package inmemdb is a process-local database used by tests and demos.
package inmemdb

import (
	"sync"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/academic"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/school"
	"github.com/trezcool/edutrack/core/student"
	"github.com/trezcool/edutrack/core/user"
)

type (
	DB struct {
		user    *userTable
		profile *profileTable

		Plans        *Table[school.Plan]
		Schools      *Table[school.School]
		Sessions     *Table[academic.Session]
		Classes      *Table[academic.Class]
		Sections     *Table[academic.Section]
		Students     *Table[student.Student]
		Applications *Table[student.Application]
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	profileTable struct {
		mutex sync.RWMutex
		table map[string]auth.Profile
	}
)

// Open returns an empty database with the indexes of the SQL schema.
func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		profile: &profileTable{table: make(map[string]auth.Profile)},

		Plans: NewTable[school.Plan]("", []string{"name"},
			Unique[school.Plan]{Name: "plans_name_key", Key: func(p school.Plan) (string, bool) {
				return p.Name, true
			}},
		),
		Schools: NewTable[school.School]("id", []string{"name", "code", "email"},
			Unique[school.School]{Name: "schools_code_key", Key: func(s school.School) (string, bool) {
				return s.Code, true
			}},
		),
		Sessions: NewTable[academic.Session]("school_id", []string{"name"},
			Unique[academic.Session]{Name: core.ConstraintOneActiveSession, Key: func(s academic.Session) (string, bool) {
				return s.SchoolID, s.IsActive
			}},
		),
		Classes: NewTable[academic.Class]("school_id", []string{"name", "class_teacher"},
			Unique[academic.Class]{Name: "classes_school_id_name_key", Key: func(c academic.Class) (string, bool) {
				return c.SchoolID + "|" + c.Name, true
			}},
		),
		Sections: NewTable[academic.Section]("school_id", []string{"name", "room_number"},
			Unique[academic.Section]{Name: "sections_class_id_name_key", Key: func(s academic.Section) (string, bool) {
				return s.ClassID + "|" + s.Name, true
			}},
		),
		Students: NewTable[student.Student]("school_id",
			[]string{"first_name", "middle_name", "last_name", "father_name", "mother_name"}),
		Applications: NewTable[student.Application]("school_id",
			[]string{"first_name", "last_name", "father_name", "mother_name"}),
	}
}

package academic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/core"
)

const DefaultMaxStudents = 40

// Session is an academic year of a school. At most one session per school is active.
type Session struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	StartDate core.Date `db:"start_date" json:"start_date"`
	EndDate   core.Date `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type SessionInput struct {
	SchoolID  string    `json:"school_id" validate:"omitempty,uuid"`
	Name      string    `json:"name" validate:"required,academicyear"`
	StartDate core.Date `json:"start_date" validate:"required"`
	EndDate   core.Date `json:"end_date" validate:"required"`
	IsActive  bool      `json:"is_active"`
}

func (in *SessionInput) Validate(validate *validator.Validate) error {
	in.SchoolID = core.CleanString(in.SchoolID, true /* lower */)
	in.Name = core.CleanString(in.Name)
	return validate.Struct(in)
}

type Class struct {
	ID           string          `db:"id" json:"id"`
	SchoolID     string          `db:"school_id" json:"school_id"`
	Name         string          `db:"name" json:"name"`
	Sections     core.StringList `db:"sections" json:"sections"`
	ClassTeacher string          `db:"class_teacher" json:"class_teacher"`
	MaxStudents  int             `db:"max_students" json:"max_students"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

type ClassInput struct {
	SchoolID     string   `json:"school_id" validate:"omitempty,uuid"`
	Name         string   `json:"name" validate:"required,max=50"`
	Sections     []string `json:"sections" validate:"dive,required,max=20"`
	ClassTeacher string   `json:"class_teacher" validate:"max=100"`
	MaxStudents  int      `json:"max_students" validate:"gte=0,lte=500"`
}

func (in *ClassInput) Validate(validate *validator.Validate) error {
	in.SchoolID = core.CleanString(in.SchoolID, true /* lower */)
	in.Name = core.CleanString(in.Name)
	in.ClassTeacher = core.CleanString(in.ClassTeacher)
	for i, s := range in.Sections {
		in.Sections[i] = core.CleanString(s)
	}
	if in.MaxStudents == 0 {
		in.MaxStudents = DefaultMaxStudents
	}
	return validate.Struct(in)
}

// Section is a division of a class.
type Section struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	Name       string    `db:"name" json:"name"`
	RoomNumber string    `db:"room_number" json:"room_number"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type SectionInput struct {
	SchoolID   string `json:"school_id" validate:"omitempty,uuid"`
	ClassID    string `json:"class_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required,max=20"`
	RoomNumber string `json:"room_number" validate:"max=20"`
	IsActive   *bool  `json:"is_active"`
}

func (in *SectionInput) Validate(validate *validator.Validate) error {
	in.SchoolID = core.CleanString(in.SchoolID, true /* lower */)
	in.ClassID = core.CleanString(in.ClassID, true /* lower */)
	in.Name = core.CleanString(in.Name)
	in.RoomNumber = core.CleanString(in.RoomNumber)
	return validate.Struct(in)
}

// Setup is the academic setup overview of a school.
type Setup struct {
	Current  *Session `json:"current_session"`
	Sessions int      `json:"sessions"`
	Classes  int      `json:"classes"`
	Sections int      `json:"sections"`
}

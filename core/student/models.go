package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/core"
)

type FeeStructure string

const (
	FeeRegular     FeeStructure = "regular"
	FeeRTE         FeeStructure = "rte"
	FeeScholarship FeeStructure = "scholarship"
	FeeStaff       FeeStructure = "staff"
)

// tuition per year, by fee structure
var tuitionFees = map[FeeStructure]float64{
	FeeRegular:     45000,
	FeeRTE:         0,
	FeeScholarship: 22500,
	FeeStaff:       33750,
}

// TuitionFee returns the yearly tuition of a fee structure; unknown structures pay nothing.
func TuitionFee(fs FeeStructure) float64 {
	return tuitionFees[fs]
}

// TotalFee is the amount due on admission.
func TotalFee(fs FeeStructure, admissionFee, registrationFee float64) float64 {
	return admissionFee + registrationFee + TuitionFee(fs)
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusAlumni   = "alumni"

	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

type Student struct {
	ID              string       `db:"id" json:"id"`
	SchoolID        string       `db:"school_id" json:"school_id"`
	FirstName       string       `db:"first_name" json:"first_name"`
	MiddleName      string       `db:"middle_name" json:"middle_name"`
	LastName        string       `db:"last_name" json:"last_name"`
	DateOfBirth     core.Date    `db:"date_of_birth" json:"date_of_birth"`
	Gender          string       `db:"gender" json:"gender"`
	Address         string       `db:"address" json:"address"`
	FatherName      string       `db:"father_name" json:"father_name"`
	FatherPhone     string       `db:"father_phone" json:"father_phone"`
	MotherName      string       `db:"mother_name" json:"mother_name"`
	MotherPhone     string       `db:"mother_phone" json:"mother_phone"`
	ClassID         string       `db:"class_id" json:"class_id"`
	Section         string       `db:"section" json:"section"`
	RollNo          string       `db:"roll_no" json:"roll_no"`
	AdmissionDate   core.Date    `db:"admission_date" json:"admission_date"`
	AcademicYear    string       `db:"academic_year" json:"academic_year"`
	Medium          string       `db:"medium" json:"medium"`
	PreviousSchool  string       `db:"previous_school" json:"previous_school"`
	PreviousClass   string       `db:"previous_class" json:"previous_class"`
	TCNumber        string       `db:"tc_number" json:"tc_number"`
	PassingYear     string       `db:"passing_year" json:"passing_year"`
	FeeStructure    FeeStructure `db:"fee_structure" json:"fee_structure"`
	PaymentMode     string       `db:"payment_mode" json:"payment_mode"`
	AdmissionFee    float64      `db:"admission_fee" json:"admission_fee"`
	RegistrationFee float64      `db:"registration_fee" json:"registration_fee"`
	Status          string       `db:"status" json:"status"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

func (s Student) FullName() string {
	if s.MiddleName == "" {
		return s.FirstName + " " + s.LastName
	}
	return s.FirstName + " " + s.MiddleName + " " + s.LastName
}

// StudentInput is the admission form of a student, also used for edits.
type StudentInput struct {
	SchoolID        string    `json:"school_id" validate:"omitempty,uuid"`
	FirstName       string    `json:"first_name" validate:"required,max=100"`
	MiddleName      string    `json:"middle_name" validate:"max=100"`
	LastName        string    `json:"last_name" validate:"required,max=100"`
	DateOfBirth     core.Date `json:"date_of_birth" validate:"required"`
	Gender          string    `json:"gender" validate:"required,oneof=male female other"`
	Address         string    `json:"address" validate:"required"`
	FatherName      string    `json:"father_name" validate:"required,max=100"`
	FatherPhone     string    `json:"father_phone" validate:"required,numeric,min=10,max=15"`
	MotherName      string    `json:"mother_name" validate:"required,max=100"`
	MotherPhone     string    `json:"mother_phone" validate:"required,numeric,min=10,max=15"`
	ClassID         string    `json:"class_id" validate:"required,uuid"`
	Section         string    `json:"section" validate:"required,max=20"`
	RollNo          string    `json:"roll_no" validate:"max=20"`
	AdmissionDate   core.Date `json:"admission_date" validate:"required"`
	AcademicYear    string    `json:"academic_year" validate:"required,academicyear"`
	Medium          string    `json:"medium" validate:"omitempty,oneof=english hindi regional"`
	PreviousSchool  string    `json:"previous_school" validate:"max=200"`
	PreviousClass   string    `json:"previous_class" validate:"max=50"`
	TCNumber        string    `json:"tc_number" validate:"max=50"`
	PassingYear     string    `json:"passing_year" validate:"omitempty,numeric,len=4"`
	FeeStructure    string    `json:"fee_structure" validate:"required,oneof=regular rte scholarship staff"`
	PaymentMode     string    `json:"payment_mode" validate:"omitempty,oneof=yearly quarterly monthly"`
	AdmissionFee    float64   `json:"admission_fee" validate:"gte=0"`
	RegistrationFee float64   `json:"registration_fee" validate:"gte=0"`
	Status          string    `json:"status" validate:"omitempty,oneof=active inactive alumni"`
}

func (in *StudentInput) Validate(validate *validator.Validate) error {
	for _, s := range []*string{
		&in.FirstName, &in.MiddleName, &in.LastName, &in.Address,
		&in.FatherName, &in.FatherPhone, &in.MotherName, &in.MotherPhone,
		&in.Section, &in.RollNo, &in.AcademicYear,
		&in.PreviousSchool, &in.PreviousClass, &in.TCNumber, &in.PassingYear,
	} {
		*s = core.CleanString(*s)
	}
	in.SchoolID = core.CleanString(in.SchoolID, true /* lower */)
	in.ClassID = core.CleanString(in.ClassID, true /* lower */)
	in.Gender = core.CleanString(in.Gender, true /* lower */)
	in.Medium = core.CleanString(in.Medium, true /* lower */)
	in.FeeStructure = core.CleanString(in.FeeStructure, true /* lower */)
	in.PaymentMode = core.CleanString(in.PaymentMode, true /* lower */)
	if in.Status == "" {
		in.Status = StatusActive
	}
	return validate.Struct(in)
}

// Application is a public admission request awaiting review.
type Application struct {
	ID              string       `db:"id" json:"id"`
	SchoolID        string       `db:"school_id" json:"school_id"`
	FirstName       string       `db:"first_name" json:"first_name"`
	LastName        string       `db:"last_name" json:"last_name"`
	Gender          string       `db:"gender" json:"gender"`
	FatherName      string       `db:"father_name" json:"father_name"`
	MotherName      string       `db:"mother_name" json:"mother_name"`
	AdmissionClass  string       `db:"admission_class" json:"admission_class"`
	Section         string       `db:"section" json:"section"`
	FeeStructure    FeeStructure `db:"fee_structure" json:"fee_structure"`
	PaymentMode     string       `db:"payment_mode" json:"payment_mode"`
	AdmissionFee    float64      `db:"admission_fee" json:"admission_fee"`
	RegistrationFee float64      `db:"registration_fee" json:"registration_fee"`
	TotalFee        float64      `db:"total_fee" json:"total_fee"`
	Status          string       `db:"status" json:"status"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

type ApplicationInput struct {
	SchoolID        string  `json:"school_id" validate:"omitempty,uuid"`
	FirstName       string  `json:"first_name" validate:"required,max=100"`
	LastName        string  `json:"last_name" validate:"required,max=100"`
	Gender          string  `json:"gender" validate:"required,oneof=male female other"`
	FatherName      string  `json:"father_name" validate:"required,max=100"`
	MotherName      string  `json:"mother_name" validate:"required,max=100"`
	AdmissionClass  string  `json:"admission_class" validate:"required,max=50"`
	Section         string  `json:"section" validate:"required,max=20"`
	FeeStructure    string  `json:"fee_structure" validate:"required,oneof=regular rte scholarship staff"`
	PaymentMode     string  `json:"payment_mode" validate:"omitempty,oneof=yearly quarterly monthly"`
	AdmissionFee    float64 `json:"admission_fee" validate:"gte=0"`
	RegistrationFee float64 `json:"registration_fee" validate:"gte=0"`
}

func (in *ApplicationInput) Validate(validate *validator.Validate) error {
	for _, s := range []*string{
		&in.FirstName, &in.LastName, &in.FatherName, &in.MotherName, &in.AdmissionClass, &in.Section,
	} {
		*s = core.CleanString(*s)
	}
	in.SchoolID = core.CleanString(in.SchoolID, true /* lower */)
	in.Gender = core.CleanString(in.Gender, true /* lower */)
	in.FeeStructure = core.CleanString(in.FeeStructure, true /* lower */)
	in.PaymentMode = core.CleanString(in.PaymentMode, true /* lower */)
	return validate.Struct(in)
}

type Review struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func (r Review) Validate(validate *validator.Validate) error { return validate.Struct(r) }

// Stats summarizes a school for its dashboard.
type Stats struct {
	Students            int     `json:"students"`
	ActiveStudents      int     `json:"active_students"`
	PendingApplications int     `json:"pending_applications"`
	Classes             int     `json:"classes"`
	ExpectedFees        float64 `json:"expected_fees"`
}

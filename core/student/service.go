package student

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/academic"
)

type (
	Service interface {
		academic.Enrollment

		// List filters on class_id, section and status; Search matches the student and parent names.
		List(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		Get(ctx context.Context, scope core.Scope, id string) (Student, error)
		// Create enrolls a student; enrolling into a full class is a validation error.
		Create(ctx context.Context, scope core.Scope, in StudentInput) (Student, error)
		Update(ctx context.Context, scope core.Scope, id string, in StudentInput) (Student, error)
		Delete(ctx context.Context, scope core.Scope, id string) error

		ListApplications(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		GetApplication(ctx context.Context, scope core.Scope, id string) (Application, error)
		CreateApplication(ctx context.Context, scope core.Scope, in ApplicationInput) (Application, error)
		ReviewApplication(ctx context.Context, scope core.Scope, id string, r Review) (Application, error)
		DeleteApplication(ctx context.Context, scope core.Scope, id string) error

		Stats(ctx context.Context, scope core.Scope) (Stats, error)
	}

	service struct {
		students     core.Store[Student]
		applications core.Store[Application]
		classes      core.Store[academic.Class]
		nowFunc      func() time.Time
	}
)

var _ Service = (*service)(nil)

var (
	defaultStudentOrdering     = []core.DBOrdering{{Field: "first_name", Ascending: true}, {Field: "last_name", Ascending: true}}
	defaultApplicationOrdering = []core.DBOrdering{{Field: "created_at"}}
)

func NewService(students core.Store[Student], applications core.Store[Application], classes core.Store[academic.Class]) Service {
	return &service{
		students:     students,
		applications: applications,
		classes:      classes,
		nowFunc:      time.Now,
	}
}

func (svc *service) CountInClass(ctx context.Context, scope core.Scope, classID string) (int, error) {
	return svc.students.Count(ctx, scope, core.QueryFilter{}.With("class_id", classID))
}

func (svc *service) List(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if len(ordering) == 0 {
		ordering = defaultStudentOrdering
	}
	return svc.students.List(ctx, scope, filter, ordering)
}

func (svc *service) Get(ctx context.Context, scope core.Scope, id string) (Student, error) {
	return svc.students.Get(ctx, scope, id)
}

// checkCapacity makes sure classID, a class of schoolID, can take one more student.
func (svc *service) checkCapacity(ctx context.Context, schoolID, classID string) error {
	tenant := core.Scope{SchoolID: schoolID}
	class, err := svc.classes.Get(ctx, tenant, classID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError(err, core.FieldError{Field: "class_id", Error: "unknown class"})
		}
		return err
	}
	enrolled, err := svc.CountInClass(ctx, tenant, classID)
	if err != nil {
		return errors.Wrap(err, "counting enrolled students")
	}
	if class.MaxStudents > 0 && enrolled >= class.MaxStudents {
		msg := fmt.Sprintf("class %s is full (%d students)", class.Name, class.MaxStudents)
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "class_id", Error: msg})
	}
	return nil
}

func (svc *service) fill(st *Student, in StudentInput) {
	st.FirstName = in.FirstName
	st.MiddleName = in.MiddleName
	st.LastName = in.LastName
	st.DateOfBirth = in.DateOfBirth
	st.Gender = in.Gender
	st.Address = in.Address
	st.FatherName = in.FatherName
	st.FatherPhone = in.FatherPhone
	st.MotherName = in.MotherName
	st.MotherPhone = in.MotherPhone
	st.ClassID = in.ClassID
	st.Section = in.Section
	st.RollNo = in.RollNo
	st.AdmissionDate = in.AdmissionDate
	st.AcademicYear = in.AcademicYear
	st.Medium = in.Medium
	st.PreviousSchool = in.PreviousSchool
	st.PreviousClass = in.PreviousClass
	st.TCNumber = in.TCNumber
	st.PassingYear = in.PassingYear
	st.FeeStructure = FeeStructure(in.FeeStructure)
	st.PaymentMode = in.PaymentMode
	st.AdmissionFee = in.AdmissionFee
	st.RegistrationFee = in.RegistrationFee
	st.Status = in.Status
}

func (svc *service) Create(ctx context.Context, scope core.Scope, in StudentInput) (Student, error) {
	schoolID, err := scope.Tenant(in.SchoolID)
	if err != nil {
		return Student{}, err
	}
	if err = svc.checkCapacity(ctx, schoolID, in.ClassID); err != nil {
		return Student{}, err
	}

	st := Student{
		ID:        core.NewID(),
		SchoolID:  schoolID,
		CreatedAt: svc.nowFunc().UTC(),
	}
	svc.fill(&st, in)
	return svc.students.Insert(ctx, st)
}

func (svc *service) Update(ctx context.Context, scope core.Scope, id string, in StudentInput) (Student, error) {
	st, err := svc.students.Get(ctx, scope, id)
	if err != nil {
		return Student{}, err
	}
	if in.ClassID != st.ClassID {
		if err = svc.checkCapacity(ctx, st.SchoolID, in.ClassID); err != nil {
			return Student{}, err
		}
	}
	svc.fill(&st, in)
	return svc.students.Update(ctx, scope, st)
}

func (svc *service) Delete(ctx context.Context, scope core.Scope, id string) error {
	return svc.students.Delete(ctx, scope, id)
}

// Admission applications

func (svc *service) ListApplications(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	if len(ordering) == 0 {
		ordering = defaultApplicationOrdering
	}
	return svc.applications.List(ctx, scope, filter, ordering)
}

func (svc *service) GetApplication(ctx context.Context, scope core.Scope, id string) (Application, error) {
	return svc.applications.Get(ctx, scope, id)
}

func (svc *service) CreateApplication(ctx context.Context, scope core.Scope, in ApplicationInput) (Application, error) {
	schoolID, err := scope.Tenant(in.SchoolID)
	if err != nil {
		return Application{}, err
	}
	fs := FeeStructure(in.FeeStructure)
	return svc.applications.Insert(ctx, Application{
		ID:              core.NewID(),
		SchoolID:        schoolID,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Gender:          in.Gender,
		FatherName:      in.FatherName,
		MotherName:      in.MotherName,
		AdmissionClass:  in.AdmissionClass,
		Section:         in.Section,
		FeeStructure:    fs,
		PaymentMode:     in.PaymentMode,
		AdmissionFee:    in.AdmissionFee,
		RegistrationFee: in.RegistrationFee,
		TotalFee:        TotalFee(fs, in.AdmissionFee, in.RegistrationFee),
		Status:          ApplicationPending,
		CreatedAt:       svc.nowFunc().UTC(),
	})
}

func (svc *service) ReviewApplication(ctx context.Context, scope core.Scope, id string, r Review) (Application, error) {
	app, err := svc.applications.Get(ctx, scope, id)
	if err != nil {
		return Application{}, err
	}
	if app.Status != ApplicationPending {
		err = errors.Errorf("application already %s", app.Status)
		return Application{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}
	app.Status = r.Status
	return svc.applications.Update(ctx, scope, app)
}

func (svc *service) DeleteApplication(ctx context.Context, scope core.Scope, id string) error {
	return svc.applications.Delete(ctx, scope, id)
}

func (svc *service) Stats(ctx context.Context, scope core.Scope) (Stats, error) {
	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.Students, err = svc.students.Count(gctx, scope, core.QueryFilter{})
		return err
	})
	g.Go(func() error {
		active, err := svc.students.List(gctx, scope, core.QueryFilter{}.With("status", StatusActive), nil)
		if err != nil {
			return err
		}
		stats.ActiveStudents = len(active)
		for _, st := range active {
			stats.ExpectedFees += TotalFee(st.FeeStructure, st.AdmissionFee, st.RegistrationFee)
		}
		return nil
	})
	g.Go(func() (err error) {
		stats.PendingApplications, err = svc.applications.Count(gctx, scope, core.QueryFilter{}.With("status", ApplicationPending))
		return err
	})
	g.Go(func() (err error) {
		stats.Classes, err = svc.classes.Count(gctx, scope, core.QueryFilter{})
		return err
	})

	if err := g.Wait(); err != nil {
		return Stats{}, errors.Wrap(err, "loading school statistics")
	}
	return stats, nil
}

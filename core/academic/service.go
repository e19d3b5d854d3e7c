package academic

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/edutrack/core"
)

type (
	// Enrollment counts the students enrolled in a class.
	Enrollment interface {
		CountInClass(ctx context.Context, scope core.Scope, classID string) (int, error)
	}

	Service interface {
		ListSessions(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Session, error)
		GetSession(ctx context.Context, scope core.Scope, id string) (Session, error)
		CreateSession(ctx context.Context, scope core.Scope, in SessionInput) (Session, error)
		UpdateSession(ctx context.Context, scope core.Scope, id string, in SessionInput) (Session, error)
		DeleteSession(ctx context.Context, scope core.Scope, id string) error
		// SetCurrent activates a session and deactivates the other sessions of its school.
		SetCurrent(ctx context.Context, scope core.Scope, id string) (Session, error)
		// Current returns the active session, or the latest one when none is active.
		Current(ctx context.Context, scope core.Scope) (Session, error)

		ListClasses(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		GetClass(ctx context.Context, scope core.Scope, id string) (Class, error)
		CreateClass(ctx context.Context, scope core.Scope, in ClassInput) (Class, error)
		UpdateClass(ctx context.Context, scope core.Scope, id string, in ClassInput) (Class, error)
		DeleteClass(ctx context.Context, scope core.Scope, id string) error

		ListSections(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Section, error)
		GetSection(ctx context.Context, scope core.Scope, id string) (Section, error)
		CreateSection(ctx context.Context, scope core.Scope, in SectionInput) (Section, error)
		UpdateSection(ctx context.Context, scope core.Scope, id string, in SectionInput) (Section, error)
		DeleteSection(ctx context.Context, scope core.Scope, id string) error

		Setup(ctx context.Context, scope core.Scope) (Setup, error)
	}

	service struct {
		tx         core.Transactor
		sessions   core.Store[Session]
		classes    core.Store[Class]
		sections   core.Store[Section]
		enrollment Enrollment
		nowFunc    func() time.Time
	}
)

var _ Service = (*service)(nil)

var (
	defaultSessionOrdering = []core.DBOrdering{{Field: "is_active"}, {Field: "start_date"}}
	defaultClassOrdering   = []core.DBOrdering{{Field: "name", Ascending: true}}
	defaultSectionOrdering = []core.DBOrdering{{Field: "name", Ascending: true}}
)

func NewService(
	tx core.Transactor,
	sessions core.Store[Session],
	classes core.Store[Class],
	sections core.Store[Section],
	enrollment Enrollment,
) Service {
	return &service{
		tx:         tx,
		sessions:   sessions,
		classes:    classes,
		sections:   sections,
		enrollment: enrollment,
		nowFunc:    time.Now,
	}
}

// Sessions

func (svc *service) ListSessions(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Session, error) {
	if len(ordering) == 0 {
		ordering = defaultSessionOrdering
	}
	return svc.sessions.List(ctx, scope, filter, ordering)
}

func (svc *service) GetSession(ctx context.Context, scope core.Scope, id string) (Session, error) {
	return svc.sessions.Get(ctx, scope, id)
}

func (svc *service) CreateSession(ctx context.Context, scope core.Scope, in SessionInput) (Session, error) {
	schoolID, err := scope.Tenant(in.SchoolID)
	if err != nil {
		return Session{}, err
	}
	return svc.sessions.Insert(ctx, Session{
		ID:        core.NewID(),
		SchoolID:  schoolID,
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		IsActive:  in.IsActive,
		CreatedAt: svc.nowFunc().UTC(),
	})
}

func (svc *service) UpdateSession(ctx context.Context, scope core.Scope, id string, in SessionInput) (Session, error) {
	sess, err := svc.sessions.Get(ctx, scope, id)
	if err != nil {
		return Session{}, err
	}
	sess.Name = in.Name
	sess.StartDate = in.StartDate
	sess.EndDate = in.EndDate
	sess.IsActive = in.IsActive
	return svc.sessions.Update(ctx, scope, sess)
}

func (svc *service) DeleteSession(ctx context.Context, scope core.Scope, id string) error {
	return svc.sessions.Delete(ctx, scope, id)
}

func (svc *service) SetCurrent(ctx context.Context, scope core.Scope, id string) (Session, error) {
	var current Session
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		sess, err := svc.sessions.Get(ctx, scope, id, exec)
		if err != nil {
			return err
		}

		active, err := svc.sessions.List(ctx, scope, core.QueryFilter{}.
			With("school_id", sess.SchoolID).
			With("is_active", true), nil, exec)
		if err != nil {
			return errors.Wrap(err, "listing active sessions")
		}
		for _, other := range active {
			if other.ID == sess.ID {
				continue
			}
			other.IsActive = false
			if _, err = svc.sessions.Update(ctx, scope, other, exec); err != nil {
				return errors.Wrap(err, "deactivating session")
			}
		}

		sess.IsActive = true
		current, err = svc.sessions.Update(ctx, scope, sess, exec)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return current, nil
}

func (svc *service) Current(ctx context.Context, scope core.Scope) (Session, error) {
	sessions, err := svc.sessions.List(ctx, scope, core.QueryFilter{}, defaultSessionOrdering)
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, core.ErrNotFound
	}
	return sessions[0], nil
}

// Classes

func (svc *service) ListClasses(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	if len(ordering) == 0 {
		ordering = defaultClassOrdering
	}
	return svc.classes.List(ctx, scope, filter, ordering)
}

func (svc *service) GetClass(ctx context.Context, scope core.Scope, id string) (Class, error) {
	return svc.classes.Get(ctx, scope, id)
}

func (svc *service) CreateClass(ctx context.Context, scope core.Scope, in ClassInput) (Class, error) {
	schoolID, err := scope.Tenant(in.SchoolID)
	if err != nil {
		return Class{}, err
	}
	return svc.classes.Insert(ctx, Class{
		ID:           core.NewID(),
		SchoolID:     schoolID,
		Name:         in.Name,
		Sections:     in.Sections,
		ClassTeacher: in.ClassTeacher,
		MaxStudents:  in.MaxStudents,
		CreatedAt:    svc.nowFunc().UTC(),
	})
}

func (svc *service) UpdateClass(ctx context.Context, scope core.Scope, id string, in ClassInput) (Class, error) {
	class, err := svc.classes.Get(ctx, scope, id)
	if err != nil {
		return Class{}, err
	}
	class.Name = in.Name
	class.Sections = in.Sections
	class.ClassTeacher = in.ClassTeacher
	class.MaxStudents = in.MaxStudents
	return svc.classes.Update(ctx, scope, class)
}

// DeleteClass refuses to delete a class that still has enrolled students.
func (svc *service) DeleteClass(ctx context.Context, scope core.Scope, id string) error {
	class, err := svc.classes.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	enrolled, err := svc.enrollment.CountInClass(ctx, scope, class.ID)
	if err != nil {
		return errors.Wrap(err, "counting enrolled students")
	}
	if enrolled > 0 {
		return core.NewConflictError(core.ConstraintClassInUse, errors.Errorf("class %s has %d students", class.Name, enrolled))
	}
	return svc.classes.Delete(ctx, scope, id)
}

// Sections

func (svc *service) ListSections(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering) ([]Section, error) {
	if len(ordering) == 0 {
		ordering = defaultSectionOrdering
	}
	return svc.sections.List(ctx, scope, filter, ordering)
}

func (svc *service) GetSection(ctx context.Context, scope core.Scope, id string) (Section, error) {
	return svc.sections.Get(ctx, scope, id)
}

// sectionClass returns the class a section is attached to, which must belong to schoolID.
func (svc *service) sectionClass(ctx context.Context, schoolID, classID string) (Class, error) {
	class, err := svc.classes.Get(ctx, core.Scope{SchoolID: schoolID}, classID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Class{}, core.NewValidationError(err, core.FieldError{Field: "class_id", Error: "unknown class"})
		}
		return Class{}, err
	}
	return class, nil
}

func (svc *service) CreateSection(ctx context.Context, scope core.Scope, in SectionInput) (Section, error) {
	schoolID, err := scope.Tenant(in.SchoolID)
	if err != nil {
		return Section{}, err
	}
	if _, err = svc.sectionClass(ctx, schoolID, in.ClassID); err != nil {
		return Section{}, err
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	return svc.sections.Insert(ctx, Section{
		ID:         core.NewID(),
		SchoolID:   schoolID,
		ClassID:    in.ClassID,
		Name:       in.Name,
		RoomNumber: in.RoomNumber,
		IsActive:   isActive,
		CreatedAt:  svc.nowFunc().UTC(),
	})
}

func (svc *service) UpdateSection(ctx context.Context, scope core.Scope, id string, in SectionInput) (Section, error) {
	sec, err := svc.sections.Get(ctx, scope, id)
	if err != nil {
		return Section{}, err
	}
	if in.ClassID != sec.ClassID {
		if _, err = svc.sectionClass(ctx, sec.SchoolID, in.ClassID); err != nil {
			return Section{}, err
		}
	}
	sec.ClassID = in.ClassID
	sec.Name = in.Name
	sec.RoomNumber = in.RoomNumber
	if in.IsActive != nil {
		sec.IsActive = *in.IsActive
	}
	return svc.sections.Update(ctx, scope, sec)
}

func (svc *service) DeleteSection(ctx context.Context, scope core.Scope, id string) error {
	return svc.sections.Delete(ctx, scope, id)
}

func (svc *service) Setup(ctx context.Context, scope core.Scope) (Setup, error) {
	var setup Setup
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cur, err := svc.Current(gctx, scope)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil
			}
			return err
		}
		setup.Current = &cur
		return nil
	})
	g.Go(func() (err error) {
		setup.Sessions, err = svc.sessions.Count(gctx, scope, core.QueryFilter{})
		return err
	})
	g.Go(func() (err error) {
		setup.Classes, err = svc.classes.Count(gctx, scope, core.QueryFilter{})
		return err
	})
	g.Go(func() (err error) {
		setup.Sections, err = svc.sections.Count(gctx, scope, core.QueryFilter{})
		return err
	})

	if err := g.Wait(); err != nil {
		return Setup{}, errors.Wrap(err, "loading academic setup")
	}
	return setup, nil
}

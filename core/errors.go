package core

import "github.com/pkg/errors"

var (
	ErrNotFound = errors.New("not found")
	ErrNoTenant  = errors.New("no school is assigned to this account")
	ErrForbidden = errors.New("this record belongs to another school")
)

// Constraint names surfaced to users.
const (
	ConstraintOneActiveSession = "one_active_session_per_school"
	ConstraintClassInUse       = "students_class_id_fkey"
)

// Friendly error messages.
const (
	msgActiveSessionExists = "It looks like this school already has an active session."
	msgRecordExists        = "This record already exists."
	msgClassInUse          = "This class still has enrolled students."
	msgSomethingWentWrong  = "Something went wrong. Please try again."
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a unique constraint violation.
type ConflictError struct {
	Constraint string
	Err        error
}

func NewConflictError(constraint string, err error) error {
	return &ConflictError{Constraint: constraint, Err: err}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "unique violation: " + err.Constraint
	}
	return err.Err.Error()
}

// ErrorMessage translates err into the message shown to users.
func ErrorMessage(err error) string {
	if cErr, ok := errors.Cause(err).(*ConflictError); ok {
		switch cErr.Constraint {
		case ConstraintOneActiveSession:
			return msgActiveSessionExists
		case ConstraintClassInUse:
			return msgClassInUse
		}
		return msgRecordExists
	}
	return msgSomethingWentWrong
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

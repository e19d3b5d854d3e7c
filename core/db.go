package core

import (
	"context"
	"database/sql"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}

	// Transactor runs fn in a single unit of work; fn's executor must be passed down to the repositories.
	Transactor interface {
		InTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Scope restricts which tenant rows a caller may read or write.
type Scope struct {
	All      bool   // every school (super admins)
	SchoolID string // a single school (school admins)
}

// Allows reports whether rows of the given school are visible in this scope.
func (s Scope) Allows(schoolID string) bool {
	if s.All {
		return true
	}
	return s.SchoolID != "" && s.SchoolID == schoolID
}

// Empty reports whether the scope grants access to nothing.
func (s Scope) Empty() bool {
	return !s.All && s.SchoolID == ""
}

// Tenant resolves the school a new row belongs to.
// School admins always write to their own school; super admins must name one.
func (s Scope) Tenant(requested string) (string, error) {
	if s.All {
		if requested == "" {
			return "", NewValidationError(ErrNoTenant, FieldError{Field: "school_id", Error: "this field is required"})
		}
		return requested, nil
	}
	if s.SchoolID == "" {
		return "", ErrNoTenant
	}
	if requested != "" && requested != s.SchoolID {
		return "", ErrForbidden
	}
	return s.SchoolID, nil
}

// QueryFilter is the generic list filter understood by the entity repositories.
// Equals keys are column names; Search does a case-insensitive match on the repository's search columns.
type QueryFilter struct {
	Search string
	Equals map[string]interface{}
}

func (qf QueryFilter) With(column string, value interface{}) QueryFilter {
	eq := make(map[string]interface{}, len(qf.Equals)+1)
	for k, v := range qf.Equals {
		eq[k] = v
	}
	eq[column] = value
	qf.Equals = eq
	return qf
}

// Package sqlxrepos implements the entity stores on Postgres with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/edutrack/core"
)

const (
	lq = '"'
	rq = '"'

	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Table is a tenant-scoped Postgres table of T, whose columns are the `db` tags of T.
type Table[T any] struct {
	db            *sqlx.DB
	name          string
	columns       []string
	scopeColumn   string
	searchColumns []string
}

var _ core.Store[struct{}] = (*Table[struct{}])(nil)

func NewTable[T any](db *sqlx.DB, name, scopeColumn string, searchColumns ...string) *Table[T] {
	return &Table[T]{
		db:            db,
		name:          name,
		columns:       columnNames(reflect.TypeOf((*T)(nil)).Elem()),
		scopeColumn:   scopeColumn,
		searchColumns: searchColumns,
	}
}

func columnNames(typ reflect.Type) []string {
	var cols []string
	for i := 0; i < typ.NumField(); i++ {
		if name := strings.SplitN(typ.Field(i).Tag.Get("db"), ",", 2)[0]; name != "" && name != "-" {
			cols = append(cols, name)
		}
	}
	return cols
}

func (t *Table[T]) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return t.db
}

func (t *Table[T]) quoted() string { return strmangle.IdentQuote(lq, rq, t.name) }

func (t *Table[T]) hasColumn(col string) bool {
	return strmangle.SetInclude(col, t.columns)
}

// trapErr maps "no rows" to core.ErrNotFound and constraint violations to *core.ConflictError.
func (t *Table[T]) trapErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch pqErr.Code {
		case uniqueViolation, foreignKeyViolation:
			return core.NewConflictError(pqErr.Constraint, errors.Wrap(err, msg))
		}
	}
	return errors.Wrap(err, msg)
}

// where builds the conditions restricting a query to scope and filter, with `?` bindvars.
func (t *Table[T]) where(scope core.Scope, filter core.QueryFilter) (string, []interface{}, error) {
	var (
		conds []string
		args  []interface{}
	)

	if scope.Empty() {
		conds = append(conds, "FALSE")
	} else if !scope.All && t.scopeColumn != "" {
		conds = append(conds, strmangle.IdentQuote(lq, rq, t.scopeColumn)+" = ?")
		args = append(args, scope.SchoolID)
	}

	cols := make([]string, 0, len(filter.Equals))
	for col := range filter.Equals {
		if !t.hasColumn(col) {
			return "", nil, core.NewValidationError(errors.Errorf("unknown filter column %q", col))
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		conds = append(conds, strmangle.IdentQuote(lq, rq, col)+" = ?")
		args = append(args, filter.Equals[col])
	}

	if filter.Search != "" && len(t.searchColumns) > 0 {
		val := "%" + filter.Search + "%"
		search := make([]string, 0, len(t.searchColumns))
		for _, col := range strmangle.IdentQuoteSlice(lq, rq, t.searchColumns) {
			search = append(search, col+" ILIKE ?")
			args = append(args, val)
		}
		conds = append(conds, "("+strings.Join(search, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (t *Table[T]) orderBy(ordering []core.DBOrdering) (string, error) {
	if len(ordering) == 0 {
		return "", nil
	}
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if !t.hasColumn(ord.Field) {
			return "", core.NewValidationError(errors.Errorf("unknown ordering column %q", ord.Field))
		}
		list = append(list, core.DBOrdering{Field: strmangle.IdentQuote(lq, rq, ord.Field), Ascending: ord.Ascending}.String())
	}
	return " ORDER BY " + strings.Join(list, ", "), nil
}

func (t *Table[T]) query(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) ([]T, error) {
	rows, err := exec.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]T, 0)
	if err = sqlx.StructScan(rows, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Table[T]) List(ctx context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]T, error) {
	where, args, err := t.where(scope, filter)
	if err != nil {
		return nil, err
	}
	order, err := t.orderBy(ordering)
	if err != nil {
		return nil, err
	}

	rows, err := t.query(ctx, t.getExec(exec), "SELECT * FROM "+t.quoted()+where+order, args...)
	if err != nil {
		return nil, t.trapErr(err, "listing "+t.name)
	}
	return rows, nil
}

func (t *Table[T]) Count(ctx context.Context, scope core.Scope, filter core.QueryFilter, exec ...core.DBExecutor) (int, error) {
	where, args, err := t.where(scope, filter)
	if err != nil {
		return 0, err
	}

	var n int
	q := sqlx.Rebind(sqlx.DOLLAR, "SELECT COUNT(*) FROM "+t.quoted()+where)
	if err = t.getExec(exec).QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, t.trapErr(err, "counting "+t.name)
	}
	return n, nil
}

func (t *Table[T]) Get(ctx context.Context, scope core.Scope, id string, exec ...core.DBExecutor) (T, error) {
	var zero T
	if !core.IsUUID(id) {
		return zero, core.ErrNotFound
	}
	where, args, err := t.where(scope, core.QueryFilter{}.With("id", id))
	if err != nil {
		return zero, err
	}

	rows, err := t.query(ctx, t.getExec(exec), "SELECT * FROM "+t.quoted()+where+" LIMIT 1", args...)
	if err != nil {
		return zero, t.trapErr(err, "getting "+t.name)
	}
	if len(rows) == 0 {
		return zero, core.ErrNotFound
	}
	return rows[0], nil
}

func (t *Table[T]) Insert(ctx context.Context, row T, exec ...core.DBExecutor) (T, error) {
	var zero T
	params := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		params = append(params, ":"+col)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		t.quoted(), strings.Join(strmangle.IdentQuoteSlice(lq, rq, t.columns), ", "), strings.Join(params, ", "),
	)

	q, args, err := sqlx.Named(q, row)
	if err != nil {
		return zero, errors.Wrap(err, "binding "+t.name)
	}
	rows, err := t.query(ctx, t.getExec(exec), q, args...)
	if err != nil {
		return zero, t.trapErr(err, "inserting into "+t.name)
	}
	if len(rows) == 0 {
		return zero, errors.New("inserting into " + t.name + ": no row returned")
	}
	return rows[0], nil
}

// Update writes every column but the key, the tenant and the creation time.
func (t *Table[T]) Update(ctx context.Context, scope core.Scope, row T, exec ...core.DBExecutor) (T, error) {
	var zero T
	if scope.Empty() {
		return zero, core.ErrNotFound
	}

	cols := strmangle.SetComplement(t.columns, []string{"id", t.scopeColumn, "created_at"})
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		sets = append(sets, strmangle.IdentQuote(lq, rq, col)+" = :"+col)
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = :id", t.quoted(), strings.Join(sets, ", "), strmangle.IdentQuote(lq, rq, "id"))

	q, args, err := sqlx.Named(q, row)
	if err != nil {
		return zero, errors.Wrap(err, "binding "+t.name)
	}
	if !scope.All && t.scopeColumn != "" {
		q += " AND " + strmangle.IdentQuote(lq, rq, t.scopeColumn) + " = ?"
		args = append(args, scope.SchoolID)
	}

	rows, err := t.query(ctx, t.getExec(exec), q+" RETURNING *", args...)
	if err != nil {
		return zero, t.trapErr(err, "updating "+t.name)
	}
	if len(rows) == 0 {
		return zero, core.ErrNotFound
	}
	return rows[0], nil
}

func (t *Table[T]) Delete(ctx context.Context, scope core.Scope, id string, exec ...core.DBExecutor) error {
	if !core.IsUUID(id) {
		return core.ErrNotFound
	}
	where, args, err := t.where(scope, core.QueryFilter{}.With("id", id))
	if err != nil {
		return err
	}

	res, err := t.getExec(exec).ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, "DELETE FROM "+t.quoted()+where), args...)
	if err != nil {
		return t.trapErr(err, "deleting from "+t.name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting from "+t.name)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

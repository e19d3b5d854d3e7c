package inmemdb

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
)

// Unique emulates a unique index. Key returns the indexed value of a row and whether the row is indexed.
type Unique[T any] struct {
	Name string
	Key  func(row T) (string, bool)
}

// Table is a tenant-scoped in-memory table of T, addressed through the `db` tags of T.
type Table[T any] struct {
	mu            sync.RWMutex
	rows          []T
	columns       map[string]int
	scopeColumn   string
	searchColumns []string
	uniques       []Unique[T]
}

var _ core.Store[struct{}] = (*Table[struct{}])(nil)

// NewTable creates a table. Rows are scoped on scopeColumn; an empty scopeColumn makes the table global.
func NewTable[T any](scopeColumn string, searchColumns []string, uniques ...Unique[T]) *Table[T] {
	return &Table[T]{
		columns:       columnIndex(reflect.TypeOf((*T)(nil)).Elem()),
		scopeColumn:   scopeColumn,
		searchColumns: searchColumns,
		uniques:       uniques,
	}
}

func columnIndex(typ reflect.Type) map[string]int {
	cols := make(map[string]int)
	if typ.Kind() != reflect.Struct {
		return cols
	}
	for i := 0; i < typ.NumField(); i++ {
		if name := strings.SplitN(typ.Field(i).Tag.Get("db"), ",", 2)[0]; name != "" && name != "-" {
			cols[name] = i
		}
	}
	return cols
}

func (t *Table[T]) value(row T, column string) (interface{}, bool) {
	idx, ok := t.columns[column]
	if !ok {
		return nil, false
	}
	return reflect.ValueOf(row).Field(idx).Interface(), true
}

func (t *Table[T]) id(row T) string {
	v, _ := t.value(row, "id")
	s, _ := v.(string)
	return s
}

func (t *Table[T]) visible(row T, scope core.Scope) bool {
	if scope.Empty() {
		return false
	}
	if scope.All || t.scopeColumn == "" {
		return true
	}
	v, _ := t.value(row, t.scopeColumn)
	return normalize(v) == scope.SchoolID
}

func (t *Table[T]) matches(row T, filter core.QueryFilter) bool {
	for col, want := range filter.Equals {
		got, ok := t.value(row, col)
		if !ok || normalize(got) != normalize(want) {
			return false
		}
	}
	if filter.Search == "" {
		return true
	}
	needle := strings.ToLower(filter.Search)
	for _, col := range t.searchColumns {
		if v, ok := t.value(row, col); ok && strings.Contains(strings.ToLower(normalize(v)), needle) {
			return true
		}
	}
	return false
}

func (t *Table[T]) checkFilter(filter core.QueryFilter, ordering []core.DBOrdering) error {
	for col := range filter.Equals {
		if _, ok := t.columns[col]; !ok {
			return core.NewValidationError(errors.Errorf("unknown filter column %q", col))
		}
	}
	for _, ord := range ordering {
		if _, ok := t.columns[ord.Field]; !ok {
			return core.NewValidationError(errors.Errorf("unknown ordering column %q", ord.Field))
		}
	}
	return nil
}

// checkUniques must be called with the write lock held; the row at skip is ignored.
func (t *Table[T]) checkUniques(row T, skip int) error {
	for _, u := range t.uniques {
		key, ok := u.Key(row)
		if !ok {
			continue
		}
		for i, other := range t.rows {
			if i == skip {
				continue
			}
			if okey, ook := u.Key(other); ook && okey == key {
				return core.NewConflictError(u.Name, errors.Errorf("duplicate key value violates unique constraint %q", u.Name))
			}
		}
	}
	return nil
}

// find must be called with a lock held.
func (t *Table[T]) find(scope core.Scope, id string) int {
	for i, row := range t.rows {
		if t.id(row) == id && t.visible(row, scope) {
			return i
		}
	}
	return -1
}

func (t *Table[T]) List(_ context.Context, scope core.Scope, filter core.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]T, error) {
	if err := t.checkFilter(filter, ordering); err != nil {
		return nil, err
	}

	t.mu.RLock()
	rows := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if t.visible(row, scope) && t.matches(row, filter) {
			rows = append(rows, row)
		}
	}
	t.mu.RUnlock()

	if len(ordering) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, ord := range ordering {
				a, _ := t.value(rows[i], ord.Field)
				b, _ := t.value(rows[j], ord.Field)
				if c := compare(a, b); c != 0 {
					if ord.Ascending {
						return c < 0
					}
					return c > 0
				}
			}
			return false
		})
	}
	return rows, nil
}

func (t *Table[T]) Count(ctx context.Context, scope core.Scope, filter core.QueryFilter, exec ...core.DBExecutor) (int, error) {
	rows, err := t.List(ctx, scope, filter, nil, exec...)
	return len(rows), err
}

func (t *Table[T]) Get(_ context.Context, scope core.Scope, id string, _ ...core.DBExecutor) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i := t.find(scope, id); i >= 0 {
		return t.rows[i], nil
	}
	var zero T
	return zero, core.ErrNotFound
}

func (t *Table[T]) Insert(_ context.Context, row T, _ ...core.DBExecutor) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	if t.id(row) == "" {
		return zero, errors.New("inserting row: missing id")
	}
	if t.find(core.Scope{All: true}, t.id(row)) >= 0 {
		return zero, core.NewConflictError("pkey", errors.New("duplicate primary key"))
	}
	if err := t.checkUniques(row, -1); err != nil {
		return zero, err
	}
	t.rows = append(t.rows, row)
	return row, nil
}

func (t *Table[T]) Update(_ context.Context, scope core.Scope, row T, _ ...core.DBExecutor) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	i := t.find(scope, t.id(row))
	if i < 0 {
		return zero, core.ErrNotFound
	}
	if t.scopeColumn != "" {
		// rows never move between tenants
		prev, _ := t.value(t.rows[i], t.scopeColumn)
		if next, _ := t.value(row, t.scopeColumn); normalize(prev) != normalize(next) {
			return zero, core.ErrForbidden
		}
	}
	if err := t.checkUniques(row, i); err != nil {
		return zero, err
	}
	t.rows[i] = row
	return row, nil
}

func (t *Table[T]) Delete(_ context.Context, scope core.Scope, id string, _ ...core.DBExecutor) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.find(scope, id)
	if i < 0 {
		return core.ErrNotFound
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

func normalize(v interface{}) string {
	if v == nil {
		return ""
	}
	if tm, ok := asTime(v); ok {
		return tm.UTC().Format(time.RFC3339Nano)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func asTime(v interface{}) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case core.Date:
		return tv.Time, true
	}
	return time.Time{}, false
}

func compare(a, b interface{}) int {
	if ta, ok := asTime(a); ok {
		tb, _ := asTime(b)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		}
		return 0
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() != rb.Kind() {
		return strings.Compare(normalize(a), normalize(b))
	}
	switch ra.Kind() {
	case reflect.Bool:
		switch {
		case ra.Bool() == rb.Bool():
			return 0
		case ra.Bool():
			return 1
		}
		return -1
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch {
		case ra.Int() < rb.Int():
			return -1
		case ra.Int() > rb.Int():
			return 1
		}
		return 0
	case reflect.Float32, reflect.Float64:
		switch {
		case ra.Float() < rb.Float():
			return -1
		case ra.Float() > rb.Float():
			return 1
		}
		return 0
	case reflect.String:
		return strings.Compare(strings.ToLower(ra.String()), strings.ToLower(rb.String()))
	}
	return strings.Compare(normalize(a), normalize(b))
}

// Transactor runs units of work directly against the tables.
type Transactor struct{}

var _ core.Transactor = Transactor{}

func (Transactor) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

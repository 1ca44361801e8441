package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// Row is a column-keyed snapshot of a stored row.
type Row map[string]any

// Where filters rows by column. A scalar value matches by equality, a slice
// matches any of its elements (an empty slice matches nothing) and nil
// matches NULL.
type Where map[string]any

// Store is the contract the domain core requires from persistence. Every
// call is atomic on its own; Transaction groups calls where the backend can.
type Store interface {
	Insert(ctx context.Context, table string, row any) error
	Update(ctx context.Context, table string, where Where, patch map[string]any) (int64, error)
	Delete(ctx context.Context, table string, where Where) (int64, error)
	Select(ctx context.Context, table string, where Where, dst any, order ...string) error
	SelectOne(ctx context.Context, table string, where Where, dst any) error
	Count(ctx context.Context, table string, where Where) (int64, error)
	Transaction(ctx context.Context, fn func(Store) error) error
}

var ErrNotFound = errors.New("row not found")

// ConstraintViolation reports a unique constraint rejecting a write.
type ConstraintViolation struct {
	Name string
	Err  error
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation: %s", e.Name)
}

func (e *ConstraintViolation) Unwrap() error {
	return e.Err
}

// IsConstraint reports whether err is a violation of the named constraint.
// An empty name matches any constraint.
func IsConstraint(err error, name string) bool {
	var cv *ConstraintViolation
	if !errors.As(err, &cv) {
		return false
	}
	return name == "" || cv.Name == name
}

// Columns returns the sorted column names of a filter. Backends iterate in
// this order so generated statements are stable.
func (w Where) Columns() []string {
	columns := make([]string, 0, len(w))
	for column := range w {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// IsList reports whether a filter value is a slice (IN semantics).
func IsList(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return false
	}
	return rv.Type().Elem().Kind() != reflect.Uint8
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"giftcircle/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store implements store.Store on gorm. Rows are plain gorm models; table
// names come from the caller, never from the model.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, table string, row any) error {
	if err := checkIdentifier(table); err != nil {
		return err
	}
	return mapError(s.db.WithContext(ctx).Table(table).Create(row).Error)
}

func (s *Store) Update(ctx context.Context, table string, where store.Where, patch map[string]any) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if len(where) == 0 {
		return 0, fmt.Errorf("update %s: refusing update without conditions", table)
	}
	if len(patch) == 0 {
		return 0, nil
	}
	clause, args, err := whereClause(where)
	if err != nil {
		return 0, err
	}
	result := s.db.WithContext(ctx).Table(table).Where(clause, args...).Updates(patch)
	if result.Error != nil {
		return 0, mapError(result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) Delete(ctx context.Context, table string, where store.Where) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if len(where) == 0 {
		return 0, fmt.Errorf("delete %s: refusing delete without conditions", table)
	}
	clause, args, err := whereClause(where)
	if err != nil {
		return 0, err
	}
	result := s.db.WithContext(ctx).Exec(`DELETE FROM "`+table+`" WHERE `+clause, args...)
	if result.Error != nil {
		return 0, mapError(result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) Select(ctx context.Context, table string, where store.Where, dst any, order ...string) error {
	query, err := s.scoped(ctx, table, where)
	if err != nil {
		return err
	}
	for _, clause := range order {
		query = query.Order(clause)
	}
	return mapError(query.Find(dst).Error)
}

func (s *Store) SelectOne(ctx context.Context, table string, where store.Where, dst any) error {
	query, err := s.scoped(ctx, table, where)
	if err != nil {
		return err
	}
	err = query.Take(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return mapError(err)
}

func (s *Store) Count(ctx context.Context, table string, where store.Where) (int64, error) {
	query, err := s.scoped(ctx, table, where)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (s *Store) Transaction(ctx context.Context, fn func(store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) scoped(ctx context.Context, table string, where store.Where) (*gorm.DB, error) {
	if err := checkIdentifier(table); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Table(table)
	if len(where) == 0 {
		return query, nil
	}
	clause, args, err := whereClause(where)
	if err != nil {
		return nil, err
	}
	return query.Where(clause, args...), nil
}

// whereClause renders a filter as gorm placeholders. Slices expand through
// gorm's IN handling; an empty slice renders IN (NULL) and matches nothing.
func whereClause(where store.Where) (string, []any, error) {
	parts := make([]string, 0, len(where))
	args := make([]any, 0, len(where))
	for _, column := range where.Columns() {
		if err := checkIdentifier(column); err != nil {
			return "", nil, err
		}
		value := where[column]
		switch {
		case value == nil:
			parts = append(parts, `"`+column+`" IS NULL`)
		case store.IsList(value):
			parts = append(parts, `"`+column+`" IN ?`)
			args = append(args, value)
		default:
			parts = append(parts, `"`+column+`" = ?`)
			args = append(args, value)
		}
	}
	return strings.Join(parts, " AND "), args, nil
}

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &store.ConstraintViolation{Name: pgErr.ConstraintName, Err: err}
	}
	return err
}

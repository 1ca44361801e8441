package inmemory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"giftcircle/internal/store"
)

type uniqueIndex struct {
	name    string
	columns []string
}

// DeleteGuard reports whether a delete of row must be silently skipped, the
// way a row-level security policy filters rows out of a DELETE.
type DeleteGuard func(table string, row store.Row) bool

type Option func(*Store)

// WithUnique declares a unique index. Rows with a NULL in any indexed
// column never conflict.
func WithUnique(table, name string, columns ...string) Option {
	return func(s *Store) {
		s.uniques[table] = append(s.uniques[table], uniqueIndex{name: name, columns: columns})
	}
}

func WithDeleteGuard(guard DeleteGuard) Option {
	return func(s *Store) {
		s.guards = append(s.guards, guard)
	}
}

// Store keeps rows in process memory. Each call holds the store lock for its
// duration; transactions hold it until commit, so they are serializable.
type Store struct {
	mu      sync.Mutex
	tables  map[string][]store.Row
	uniques map[string][]uniqueIndex
	guards  []DeleteGuard

	hookMu sync.RWMutex
	hook   func(store.Change)
}

func New(opts ...Option) *Store {
	s := &Store{
		tables:  make(map[string][]store.Row),
		uniques: make(map[string][]uniqueIndex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithSchema returns a store with the unique indexes of the migrations.
func NewWithSchema(opts ...Option) *Store {
	schema := []Option{
		WithUnique(store.TableGroups, store.ConstraintGroupInviteCode, "invite_code"),
		WithUnique(store.TableVotes, store.ConstraintVoteVoter, "proposal_id", "voter_name"),
		WithUnique(store.TableGifts, store.ConstraintGiftShareCode, "share_code"),
		WithUnique(store.TableGifts, store.ConstraintGiftParty, "party_id"),
		WithUnique(store.TableDirectGifts, store.ConstraintDirectGiftShare, "share_code"),
		WithUnique(store.TablePartyBirthdays, store.ConstraintPartyBirthdayPair, "party_id", "birthday_id"),
	}
	return New(append(schema, opts...)...)
}

// OnChange registers the receiver of committed row changes.
func (s *Store) OnChange(fn func(store.Change)) {
	s.hookMu.Lock()
	s.hook = fn
	s.hookMu.Unlock()
}

func (s *Store) emit(changes []store.Change) {
	s.hookMu.RLock()
	hook := s.hook
	s.hookMu.RUnlock()
	if hook == nil {
		return
	}
	for _, change := range changes {
		hook(change)
	}
}

func (s *Store) Insert(ctx context.Context, table string, row any) error {
	s.mu.Lock()
	tx := s.begin()
	err := tx.Insert(ctx, table, row)
	s.commit(tx, err)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(tx.changes)
	return nil
}

func (s *Store) Update(ctx context.Context, table string, where store.Where, patch map[string]any) (int64, error) {
	s.mu.Lock()
	tx := s.begin()
	n, err := tx.Update(ctx, table, where, patch)
	s.commit(tx, err)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s.emit(tx.changes)
	return n, nil
}

func (s *Store) Delete(ctx context.Context, table string, where store.Where) (int64, error) {
	s.mu.Lock()
	tx := s.begin()
	n, err := tx.Delete(ctx, table, where)
	s.commit(tx, err)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s.emit(tx.changes)
	return n, nil
}

func (s *Store) Select(ctx context.Context, table string, where store.Where, dst any, order ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin().Select(ctx, table, where, dst, order...)
}

func (s *Store) SelectOne(ctx context.Context, table string, where store.Where, dst any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin().SelectOne(ctx, table, where, dst)
}

func (s *Store) Count(ctx context.Context, table string, where store.Where) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin().Count(ctx, table, where)
}

func (s *Store) Transaction(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	tx := s.begin()
	err := fn(tx)
	s.commit(tx, err)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(tx.changes)
	return nil
}

// Rows returns a copy of every row of table, for assertions in tests.
func (s *Store) Rows(table string) []store.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	out := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, copyRow(row))
	}
	return out
}

func (s *Store) begin() *txStore {
	return &txStore{
		tables:  s.tables,
		uniques: s.uniques,
		guards:  s.guards,
		written: make(map[string]bool),
	}
}

func (s *Store) commit(tx *txStore, err error) {
	if err != nil {
		tx.changes = nil
		return
	}
	s.tables = tx.tables
}

// txStore works on copy-on-write tables: a table is cloned the first time it
// is written, so an aborted transaction leaves the committed tables intact.
type txStore struct {
	tables  map[string][]store.Row
	uniques map[string][]uniqueIndex
	guards  []DeleteGuard
	written map[string]bool
	changes []store.Change
}

func (tx *txStore) writable(table string) []store.Row {
	if !tx.written[table] {
		cloned := make(map[string][]store.Row, len(tx.tables))
		for name, rows := range tx.tables {
			cloned[name] = rows
		}
		rows := make([]store.Row, 0, len(tx.tables[table]))
		for _, row := range tx.tables[table] {
			rows = append(rows, copyRow(row))
		}
		cloned[table] = rows
		tx.tables = cloned
		tx.written[table] = true
	}
	return tx.tables[table]
}

func (tx *txStore) Insert(_ context.Context, table string, row any) error {
	values, err := encodeRow(row, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}

	rows := tx.writable(table)
	if err := tx.checkUnique(table, rows, values, -1); err != nil {
		return err
	}

	tx.tables[table] = append(rows, values)
	tx.changes = append(tx.changes, store.Change{Table: table, Op: store.OpInsert, New: copyRow(values)})
	return nil
}

func (tx *txStore) Update(_ context.Context, table string, where store.Where, patch map[string]any) (int64, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("update %s: refusing update without conditions", table)
	}
	if len(patch) == 0 {
		return 0, nil
	}

	rows := tx.writable(table)
	var affected int64
	for i, row := range rows {
		if !matches(row, where) {
			continue
		}
		updated := copyRow(row)
		for column, value := range patch {
			updated[column] = normalize(value)
		}
		if err := tx.checkUnique(table, rows, updated, i); err != nil {
			return 0, err
		}
		tx.changes = append(tx.changes, store.Change{Table: table, Op: store.OpUpdate, Old: copyRow(row), New: copyRow(updated)})
		rows[i] = updated
		affected++
	}
	return affected, nil
}

func (tx *txStore) Delete(_ context.Context, table string, where store.Where) (int64, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("delete %s: refusing delete without conditions", table)
	}

	rows := tx.writable(table)
	kept := rows[:0]
	var affected int64
	for _, row := range rows {
		if matches(row, where) && !tx.guarded(table, row) {
			tx.changes = append(tx.changes, store.Change{Table: table, Op: store.OpDelete, Old: copyRow(row)})
			affected++
			continue
		}
		kept = append(kept, row)
	}
	tx.tables[table] = kept
	return affected, nil
}

func (tx *txStore) Select(_ context.Context, table string, where store.Where, dst any, order ...string) error {
	rows := tx.find(table, where)
	if len(order) > 0 {
		sortRows(rows, order)
	}
	return decodeRows(rows, dst)
}

func (tx *txStore) SelectOne(_ context.Context, table string, where store.Where, dst any) error {
	rows := tx.find(table, where)
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return decodeRow(rows[0], dst)
}

func (tx *txStore) Count(_ context.Context, table string, where store.Where) (int64, error) {
	return int64(len(tx.find(table, where))), nil
}

func (tx *txStore) Transaction(_ context.Context, fn func(store.Store) error) error {
	return fn(tx)
}

func (tx *txStore) find(table string, where store.Where) []store.Row {
	var result []store.Row
	for _, row := range tx.tables[table] {
		if matches(row, where) {
			result = append(result, row)
		}
	}
	return result
}

func (tx *txStore) guarded(table string, row store.Row) bool {
	for _, guard := range tx.guards {
		if guard(table, copyRow(row)) {
			return true
		}
	}
	return false
}

func (tx *txStore) checkUnique(table string, rows []store.Row, candidate store.Row, self int) error {
	for _, index := range tx.uniques[table] {
		key, ok := indexKey(candidate, index.columns)
		if !ok {
			continue
		}
		for i, row := range rows {
			if i == self {
				continue
			}
			other, ok := indexKey(row, index.columns)
			if ok && other == key {
				return &store.ConstraintViolation{Name: index.name}
			}
		}
	}
	if id, ok := candidate["id"]; ok && id != nil {
		for i, row := range rows {
			if i != self && valuesEqual(row["id"], id) {
				return &store.ConstraintViolation{Name: table + "_pkey"}
			}
		}
	}
	return nil
}

func indexKey(row store.Row, columns []string) (string, bool) {
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		value := row[column]
		if value == nil {
			return "", false
		}
		parts = append(parts, fmt.Sprintf("%v", value))
	}
	return strings.Join(parts, "\x00"), true
}

func matches(row store.Row, where store.Where) bool {
	for column, want := range where {
		got := row[column]
		switch {
		case want == nil:
			if got != nil {
				return false
			}
		case store.IsList(want):
			list := reflect.ValueOf(want)
			found := false
			for i := 0; i < list.Len(); i++ {
				if valuesEqual(got, list.Index(i).Interface()) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if !valuesEqual(got, want) {
				return false
			}
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func sortRows(rows []store.Row, order []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, clause := range order {
			fields := strings.Fields(clause)
			if len(fields) == 0 {
				continue
			}
			column := fields[0]
			desc := len(fields) > 1 && strings.EqualFold(fields[1], "desc")
			cmp := compareValues(rows[i][column], rows[j][column])
			if cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareValues orders NULLs last, like postgres does for ascending sorts.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch av := a.(type) {
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case int64:
		bv, _ := b.(int64)
		return cmpOrdered(av, bv)
	case float64:
		bv, _ := b.(float64)
		return cmpOrdered(av, bv)
	case bool:
		bv, _ := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	}
	return 0
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func copyRow(row store.Row) store.Row {
	if row == nil {
		return nil
	}
	out := make(store.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

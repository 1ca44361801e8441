package inmemory

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"giftcircle/internal/store"
	"gorm.io/gorm/schema"
)

var naming = schema.NamingStrategy{}

type fieldInfo struct {
	index      int
	column     string
	autoCreate bool
	autoUpdate bool
}

var fieldCache sync.Map // reflect.Type -> []fieldInfo

// fieldsOf maps struct fields to columns with the same naming rules gorm
// applies, so one model type works against both backends.
func fieldsOf(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}

	fields := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		settings := schema.ParseTagSetting(field.Tag.Get("gorm"), ";")
		if _, skip := settings["-"]; skip {
			continue
		}
		column := settings["COLUMN"]
		if column == "" {
			column = naming.ColumnName("", field.Name)
		}
		_, autoCreate := settings["AUTOCREATETIME"]
		_, autoUpdate := settings["AUTOUPDATETIME"]
		fields = append(fields, fieldInfo{
			index:      i,
			column:     column,
			autoCreate: autoCreate,
			autoUpdate: autoUpdate,
		})
	}

	fieldCache.Store(t, fields)
	return fields
}

// encodeRow converts a struct (or pointer to struct, or Row) into a Row.
// Zero auto timestamps are filled in and written back when row is a pointer.
func encodeRow(row any, now time.Time) (store.Row, error) {
	switch typed := row.(type) {
	case store.Row:
		return normalizeRow(typed), nil
	case map[string]any:
		return normalizeRow(typed), nil
	}

	rv := reflect.ValueOf(row)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("nil row")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported row type %T", row)
	}

	out := make(store.Row)
	for _, field := range fieldsOf(rv.Type()) {
		value := rv.Field(field.index)
		if (field.autoCreate || field.autoUpdate) && value.Type() == reflect.TypeOf(time.Time{}) && value.Interface().(time.Time).IsZero() {
			if value.CanSet() {
				value.Set(reflect.ValueOf(now))
			}
			out[field.column] = now
			continue
		}
		out[field.column] = normalize(value.Interface())
	}
	return out, nil
}

func normalizeRow(row map[string]any) store.Row {
	out := make(store.Row, len(row))
	for k, v := range row {
		out[k] = normalize(v)
	}
	return out
}

// normalize dereferences pointers and collapses named scalar types to their
// underlying kind so comparisons do not depend on the Go type a caller used.
func normalize(value any) any {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return rv.Interface()
}

func decodeRows(rows []store.Row, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("select destination must be a pointer to a slice, got %T", dst)
	}
	slice := rv.Elem()
	elemType := slice.Type().Elem()

	out := reflect.MakeSlice(slice.Type(), 0, len(rows))
	for _, row := range rows {
		elem := reflect.New(elemType).Elem()
		if err := fillStruct(row, elem); err != nil {
			return err
		}
		out = reflect.Append(out, elem)
	}
	slice.Set(out)
	return nil
}

func decodeRow(row store.Row, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("select destination must be a non-nil pointer, got %T", dst)
	}
	return fillStruct(row, rv.Elem())
}

func fillStruct(row store.Row, target reflect.Value) error {
	if target.Kind() != reflect.Struct {
		return fmt.Errorf("unsupported destination %s", target.Type())
	}
	for _, field := range fieldsOf(target.Type()) {
		value, ok := row[field.column]
		if !ok {
			continue
		}
		if err := setField(target.Field(field.index), value); err != nil {
			return fmt.Errorf("column %s: %w", field.column, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	target := field.Type()
	pointer := target.Kind() == reflect.Pointer
	if pointer {
		target = target.Elem()
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(target):
	case rv.Type().ConvertibleTo(target):
		rv = rv.Convert(target)
	default:
		return fmt.Errorf("cannot assign %T to %s", value, field.Type())
	}

	if pointer {
		ptr := reflect.New(target)
		ptr.Elem().Set(rv)
		field.Set(ptr)
		return nil
	}
	field.Set(rv)
	return nil
}

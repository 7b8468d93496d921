package querybuilder

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	errInsertNoTable   = errors.New("querybuilder: insert needs a table")
	errInsertNilModel  = errors.New("querybuilder: insert model is nil")
	errInsertNoColumns = errors.New("querybuilder: insert model has no db-tagged fields")
)

// InsertModel renders a single-row INSERT for a struct whose persisted
// fields carry db tags, mirroring how sqlx maps rows back out. Untagged
// fields and fields tagged "-" are skipped. The suffix, when present, is
// appended verbatim after the VALUES clause; ON CONFLICT and RETURNING
// clauses are written there by the caller.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	if table == "" {
		return "", nil, errInsertNoTable
	}
	columns, values, err := taggedColumns(model)
	if err != nil {
		return "", nil, err
	}

	binder := &argBinder{}
	slots := make([]string, len(values))
	for i, value := range values {
		slots[i] = binder.bind(value)
	}

	var out strings.Builder
	out.WriteString("INSERT INTO ")
	out.WriteString(table)
	out.WriteString(" (")
	out.WriteString(strings.Join(columns, ", "))
	out.WriteString(") VALUES (")
	out.WriteString(strings.Join(slots, ", "))
	out.WriteString(")")
	if suffix != "" {
		out.WriteString(" ")
		out.WriteString(suffix)
	}
	return out.String(), binder.values, nil
}

func taggedColumns(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, errInsertNilModel
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("querybuilder: insert model must be a struct, got %s", value.Kind())
	}

	var (
		columns []string
		values  []any
	)
	for _, field := range reflect.VisibleFields(value.Type()) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		column := field.Tag.Get("db")
		if column == "" || column == "-" {
			continue
		}
		columns = append(columns, column)
		values = append(values, value.FieldByIndex(field.Index).Interface())
	}
	if len(columns) == 0 {
		return nil, nil, errInsertNoColumns
	}
	return columns, values, nil
}

package querybuilder

import (
	"errors"
	"reflect"
	"strings"
	"sync"
)

var modelColumns sync.Map

type modelField struct {
	index  int
	column string
}

// InsertModel inserts the exported db-tagged fields of model, which must be a
// struct or a pointer to one.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return "", nil, errors.New("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return "", nil, errors.New("model must be struct")
	}

	fields := fieldsOf(value.Type())
	if len(fields) == 0 {
		return "", nil, errors.New("model has no db columns")
	}

	cols := make([]string, len(fields))
	vals := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = f.column
		vals[i] = value.Field(f.index).Interface()
	}
	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

func fieldsOf(typ reflect.Type) []modelField {
	if cached, ok := modelColumns.Load(typ); ok {
		return cached.([]modelField)
	}

	fields := make([]modelField, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		column, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		column = strings.TrimSpace(column)
		if column == "" || column == "-" {
			continue
		}
		fields = append(fields, modelField{index: i, column: column})
	}

	modelColumns.Store(typ, fields)
	return fields
}

package types

import (
	"fmt"
	"reflect"
)

// ArrayColumn is the column name used when an array is rendered as a table.
const ArrayColumn = "value"

// arrayConverter converts sequences element by element. The canonical
// representation is []any holding canonical element values.
type arrayConverter struct {
	typ  *ArrayType
	elem Converter
}

var _ TableConverter = (*arrayConverter)(nil)

func newArrayConverter(t *ArrayType) *arrayConverter {
	return &arrayConverter{typ: t, elem: ConverterFor(t.elem)}
}

func (c *arrayConverter) Type() Type { return c.typ }

func (c *arrayConverter) IsCompatible(v any) bool {
	_, err := c.Convert(v)
	return err == nil
}

func (c *arrayConverter) Convert(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil is not convertible to %s", ErrIncompatible, c.typ)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			ce, err := c.elem.Convert(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ce
		}
		return out, nil
	case Table:
		return c.FromTable(x)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %T is not convertible to %s", ErrIncompatible, v, c.typ)
	}
	// A blob element shape keeps []byte elements whole.
	if c.typ.elem == Blob && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, fmt.Errorf("%w: %T is not convertible to %s", ErrIncompatible, v, c.typ)
	}
	out := make([]any, rv.Len())
	for i := range out {
		ce, err := c.elem.Convert(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = ce
	}
	return out, nil
}

// ToTable renders the array as a one-column table indexed on ArrayColumn.
func (c *arrayConverter) ToTable(v any) (Table, error) {
	cv, err := c.Convert(v)
	if err != nil {
		return nil, err
	}
	row, err := NewRecordType("", Field{Name: ArrayColumn, Type: c.typ.elem})
	if err != nil {
		return nil, err
	}
	tt := &TableType{row: row, index: []string{ArrayColumn}}
	elems := cv.([]any)
	rows := make([]*Record, len(elems))
	for i, e := range elems {
		rows[i] = &Record{typ: row, values: []any{e}}
	}
	return &RowTable{typ: tt, rows: rows}, nil
}

// FromTable builds an array from the table's index column; row order
// defines element order. A table without index columns must have exactly
// one column.
func (c *arrayConverter) FromTable(t Table) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil table for %s", ErrIncompatible, c.typ)
	}
	column, err := indexColumn(t.Type())
	if err != nil {
		return nil, err
	}
	var out []any
	if n, ok := t.Len(); ok {
		out = make([]any, 0, n)
	}
	err = t.Each(func(row *Record) error {
		raw, _ := row.Get(column)
		ce, err := c.elem.Convert(raw)
		if err != nil {
			return fmt.Errorf("element %d: %w", len(out), err)
		}
		out = append(out, ce)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func indexColumn(t *TableType) (string, error) {
	if len(t.index) > 0 {
		return t.index[0], nil
	}
	if t.row.Len() == 1 {
		return t.row.fields[0].Name, nil
	}
	return "", fmt.Errorf("%w: %s has no index column", ErrIncompatible, t)
}

package types

import (
	"fmt"
)

// Table is a multiset of records that share one row type.
type Table interface {
	// Type returns the table type.
	Type() *TableType

	// Each calls fn for every row in order. Iteration stops at the first
	// error returned by fn, and that error is returned.
	Each(fn func(row *Record) error) error

	// Len returns the number of rows and whether the count is known.
	// Some table sources cannot be counted without being consumed.
	Len() (int, bool)
}

// RowTable is a materialized table. Its row count is always known.
type RowTable struct {
	typ  *TableType
	rows []*Record
}

var _ Table = (*RowTable)(nil)

// NewRowTable creates a table from rows. Each row must have the table's row shape.
func NewRowTable(t *TableType, rows ...*Record) (*RowTable, error) {
	out := make([]*Record, 0, len(rows))
	for i, r := range rows {
		if r == nil {
			return nil, fmt.Errorf("%w: row %d is nil", ErrIncompatible, i)
		}
		if !Same(r.typ, t.row) {
			return nil, fmt.Errorf("%w: row %d has shape %s, want %s", ErrIncompatible, i, r.typ, t.row)
		}
		out = append(out, r)
	}
	return &RowTable{typ: t, rows: out}, nil
}

func (t *RowTable) Type() *TableType { return t.typ }

func (t *RowTable) Len() (int, bool) { return len(t.rows), true }

func (t *RowTable) Each(fn func(row *Record) error) error {
	for _, r := range t.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns the rows in order.
func (t *RowTable) Rows() []*Record {
	out := make([]*Record, len(t.rows))
	copy(out, t.rows)
	return out
}

// Row returns row i.
func (t *RowTable) Row(i int) *Record { return t.rows[i] }

// RowSource yields raw rows as field maps. It stops early when yield returns an error.
type RowSource func(yield func(row map[string]any) error) error

// StreamTable wraps a raw row source. Rows are converted through the row
// converter as they are read. The row count is unknown.
type StreamTable struct {
	typ    *TableType
	source RowSource
}

var _ Table = (*StreamTable)(nil)

// NewStreamTable creates a table backed by source.
func NewStreamTable(t *TableType, source RowSource) *StreamTable {
	return &StreamTable{typ: t, source: source}
}

func (t *StreamTable) Type() *TableType { return t.typ }

// Len always reports an unknown count.
func (t *StreamTable) Len() (int, bool) { return 0, false }

func (t *StreamTable) Each(fn func(row *Record) error) error {
	rc := newRecordConverter(t.typ.row)
	return t.source(func(raw map[string]any) error {
		r, err := rc.FromMap(raw)
		if err != nil {
			return err
		}
		return fn(r)
	})
}

// tableConverter rebuilds tables row by row through the row converter.
type tableConverter struct {
	typ *TableType
	row *recordConverter
}

var _ TableConverter = (*tableConverter)(nil)

func newTableConverter(t *TableType) *tableConverter {
	return &tableConverter{typ: t, row: newRecordConverter(t.row)}
}

func (c *tableConverter) Type() Type { return c.typ }

func (c *tableConverter) IsCompatible(v any) bool {
	_, err := c.Convert(v)
	return err == nil
}

func (c *tableConverter) Convert(v any) (any, error) {
	switch x := v.(type) {
	case *RowTable:
		if x != nil && Same(x.typ, c.typ) {
			return x, nil
		}
		if x != nil {
			return c.FromTable(x)
		}
	case Table:
		return c.FromTable(x)
	case []map[string]any:
		rows := make([]*Record, 0, len(x))
		for i, raw := range x {
			r, err := c.row.FromMap(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rows = append(rows, r)
		}
		return &RowTable{typ: c.typ, rows: rows}, nil
	case []*Record:
		rows := make([]*Record, 0, len(x))
		for i, r := range x {
			cr, err := c.row.Convert(r)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rows = append(rows, cr.(*Record))
		}
		return &RowTable{typ: c.typ, rows: rows}, nil
	}
	return nil, fmt.Errorf("%w: %T is not convertible to %s", ErrIncompatible, v, c.typ)
}

func (c *tableConverter) ToTable(v any) (Table, error) {
	t, err := c.Convert(v)
	if err != nil {
		return nil, err
	}
	return t.(*RowTable), nil
}

// FromTable materializes t, converting every row through the row converter.
func (c *tableConverter) FromTable(t Table) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil table for %s", ErrIncompatible, c.typ)
	}
	var rows []*Record
	if n, ok := t.Len(); ok {
		rows = make([]*Record, 0, n)
	}
	i := 0
	err := t.Each(func(row *Record) error {
		r, err := c.row.FromMap(row.Values())
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, r)
		i++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RowTable{typ: c.typ, rows: rows}, nil
}

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Record is an immutable instance of a RecordType. Field values are held
// in their canonical representation.
type Record struct {
	typ    *RecordType
	values []any
}

// NewRecord builds a record from a field map, converting every field
// through its own converter.
func NewRecord(t *RecordType, values map[string]any) (*Record, error) {
	return newRecordConverter(t).FromMap(values)
}

// Type returns the record type.
func (r *Record) Type() *RecordType { return r.typ }

// Get returns the value of a field.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.typ.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Values returns a copy of the field values keyed by name.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, f := range r.typ.fields {
		out[f.Name] = r.values[i]
	}
	return out
}

// String renders the record for diagnostics.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range r.typ.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", f.Name, r.values[i])
	}
	b.WriteByte('}')
	return b.String()
}

// recordConverter reconstructs records by converting each field through
// the converter of its declared type.
type recordConverter struct {
	typ    *RecordType
	fields []Converter
}

var (
	_ MapConverter   = (*recordConverter)(nil)
	_ TableConverter = (*recordConverter)(nil)
)

func newRecordConverter(t *RecordType) *recordConverter {
	c := &recordConverter{typ: t, fields: make([]Converter, len(t.fields))}
	for i, f := range t.fields {
		c.fields[i] = ConverterFor(f.Type)
	}
	return c
}

func (c *recordConverter) Type() Type { return c.typ }

func (c *recordConverter) IsCompatible(v any) bool {
	_, err := c.Convert(v)
	return err == nil
}

func (c *recordConverter) Convert(v any) (any, error) {
	switch x := v.(type) {
	case *Record:
		if x == nil {
			break
		}
		if x.typ == c.typ || Same(x.typ, c.typ) {
			return x, nil
		}
		return c.FromMap(x.Values())
	case map[string]any:
		return c.FromMap(x)
	case Table:
		return c.FromTable(x)
	}
	return nil, fmt.Errorf("%w: %T is not convertible to %s", ErrIncompatible, v, c.typ)
}

func (c *recordConverter) ToMap(v any) (map[string]any, error) {
	r, err := c.Convert(v)
	if err != nil {
		return nil, err
	}
	return r.(*Record).Values(), nil
}

func (c *recordConverter) FromMap(m map[string]any) (*Record, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil map for %s", ErrIncompatible, c.typ)
	}
	var unknown []string
	for name := range m {
		if _, ok := c.typ.index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: unknown fields %v for %s", ErrIncompatible, unknown, c.typ)
	}

	values := make([]any, len(c.typ.fields))
	for i, f := range c.typ.fields {
		raw, ok := m[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %q for %s", ErrIncompatible, f.Name, c.typ)
		}
		cv, err := c.fields[i].Convert(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		values[i] = cv
	}
	return &Record{typ: c.typ, values: values}, nil
}

// ToTable builds a single-row table holding the record.
func (c *recordConverter) ToTable(v any) (Table, error) {
	r, err := c.Convert(v)
	if err != nil {
		return nil, err
	}
	tt := &TableType{row: c.typ}
	return &RowTable{typ: tt, rows: []*Record{r.(*Record)}}, nil
}

var errStopIteration = errors.New("stop iteration")

// FromTable reconstructs the record from row 0. A table without rows is a
// hard failure.
func (c *recordConverter) FromTable(t Table) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil table for %s", ErrIncompatible, c.typ)
	}
	var first *Record
	err := t.Each(func(row *Record) error {
		first = row
		return errStopIteration
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	if first == nil {
		return nil, fmt.Errorf("%w: cannot reconstruct %s", ErrEmptyTable, c.typ)
	}
	return c.FromMap(first.Values())
}

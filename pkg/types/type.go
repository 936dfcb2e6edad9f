package types

import (
	"errors"
	"fmt"
	"strings"
)

// Type errors.
var (
	ErrInvalidType = errors.New("invalid type")
)

// Kind classifies a Type into one of its structural arms.
type Kind uint8

const (
	KindOpaque Kind = iota
	KindPrimitive
	KindRecord
	KindTable
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindRecord:
		return "record"
	case KindTable:
		return "table"
	case KindArray:
		return "array"
	default:
		return "opaque"
	}
}

// Type is a structural type. The set of implementations is closed:
// Primitive, *RecordType, *TableType, *ArrayType and *OpaqueType.
type Type interface {
	// Kind returns the structural arm of the type.
	Kind() Kind

	// String returns the shape signature. Two types with the same
	// signature are interchangeable.
	String() string

	isType()
}

// Same reports whether two types describe the same shape.
func Same(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// Field is a named member of a record type.
type Field struct {
	Name string
	Type Type
}

// RecordType is an ordered set of named fields.
type RecordType struct {
	name   string
	fields []Field
	index  map[string]int
	sig    string
}

// NewRecordType creates a record type. Field names must be unique and non-empty.
func NewRecordType(name string, fields ...Field) (*RecordType, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: record %q has no fields", ErrInvalidType, name)
	}
	rt := &RecordType{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: record %q field %d has no name", ErrInvalidType, name, i)
		}
		if f.Type == nil {
			return nil, fmt.Errorf("%w: record %q field %q has no type", ErrInvalidType, name, f.Name)
		}
		if _, dup := rt.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: record %q has duplicate field %q", ErrInvalidType, name, f.Name)
		}
		rt.fields[i] = f
		rt.index[f.Name] = i
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, f := range rt.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type.String())
	}
	b.WriteByte('}')
	rt.sig = b.String()

	return rt, nil
}

// MustRecordType is like NewRecordType but panics on error.
func MustRecordType(name string, fields ...Field) *RecordType {
	rt, err := NewRecordType(name, fields...)
	if err != nil {
		panic(err)
	}
	return rt
}

func (*RecordType) Kind() Kind { return KindRecord }
func (r *RecordType) String() string { return r.sig }
func (*RecordType) isType()         {}

// Name returns the record type name (may be empty).
func (r *RecordType) Name() string { return r.name }

// Len returns the number of fields.
func (r *RecordType) Len() int { return len(r.fields) }

// Fields returns the fields in declaration order.
func (r *RecordType) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Field returns the field with the given name.
func (r *RecordType) Field(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// TableType is a table whose rows share one record type.
type TableType struct {
	row   *RecordType
	index []string
}

// NewTableType creates a table type. Index columns must be fields of the row type.
func NewTableType(row *RecordType, index ...string) (*TableType, error) {
	if row == nil {
		return nil, fmt.Errorf("%w: table without row type", ErrInvalidType)
	}
	for _, col := range index {
		if _, ok := row.Field(col); !ok {
			return nil, fmt.Errorf("%w: index column %q is not a field of %s", ErrInvalidType, col, row)
		}
	}
	idx := make([]string, len(index))
	copy(idx, index)
	return &TableType{row: row, index: idx}, nil
}

// MustTableType is like NewTableType but panics on error.
func MustTableType(row *RecordType, index ...string) *TableType {
	tt, err := NewTableType(row, index...)
	if err != nil {
		panic(err)
	}
	return tt
}

func (*TableType) Kind() Kind { return KindTable }
func (*TableType) isType()    {}

func (t *TableType) String() string {
	return "table<" + t.row.String() + ">[" + strings.Join(t.index, ",") + "]"
}

// Row returns the row type.
func (t *TableType) Row() *RecordType { return t.row }

// Index returns the index column names.
func (t *TableType) Index() []string {
	out := make([]string, len(t.index))
	copy(out, t.index)
	return out
}

// ArrayType is a homogeneous sequence.
type ArrayType struct {
	elem Type
}

// NewArrayType creates an array type of the given element type.
func NewArrayType(elem Type) *ArrayType {
	return &ArrayType{elem: elem}
}

func (*ArrayType) Kind() Kind { return KindArray }
func (*ArrayType) isType()    {}

func (a *ArrayType) String() string {
	if a.elem == nil {
		return "array<?>"
	}
	return "array<" + a.elem.String() + ">"
}

// Elem returns the element type.
func (a *ArrayType) Elem() Type { return a.elem }

// OpaqueType names a shape with no structural converter.
type OpaqueType struct {
	name string
}

// NewOpaqueType creates an opaque type.
func NewOpaqueType(name string) *OpaqueType {
	return &OpaqueType{name: name}
}

func (*OpaqueType) Kind() Kind       { return KindOpaque }
func (o *OpaqueType) String() string { return "opaque<" + o.name + ">" }
func (*OpaqueType) isType()          {}

// Name returns the declared name.
func (o *OpaqueType) Name() string { return o.name }

// Parse resolves a primitive type name. Unknown names resolve to an
// *OpaqueType so that declarations never fail to produce a type.
func Parse(name string) Type {
	if p, ok := primitiveNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return NewOpaqueType(name)
}

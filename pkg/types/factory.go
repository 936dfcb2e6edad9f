package types

import "sync"

// converters caches one converter per shape signature.
var converters sync.Map

// ConverterFor returns the converter for t. The result is shared by every
// caller asking for the same shape. Shapes without a structural converter,
// including nil, get an opaque converter.
func ConverterFor(t Type) Converter {
	if t == nil {
		return &opaqueConverter{typ: NewOpaqueType("")}
	}
	key := t.String()
	if c, ok := converters.Load(key); ok {
		return c.(Converter)
	}
	c, _ := converters.LoadOrStore(key, newConverter(t))
	return c.(Converter)
}

func newConverter(t Type) Converter {
	switch t.Kind() {
	case KindPrimitive:
		if p, ok := t.(Primitive); ok && p.Valid() {
			return primitiveConverter{kind: p}
		}
	case KindRecord:
		return newRecordConverter(t.(*RecordType))
	case KindTable:
		return newTableConverter(t.(*TableType))
	case KindArray:
		if at := t.(*ArrayType); at.elem != nil {
			return newArrayConverter(at)
		}
	}
	return &opaqueConverter{typ: t}
}

// Package types implements the structural type system used to exchange
// attribute values between connectors and generic consumers.
//
// # Shapes
//
// Every attribute declares a Type, which is one of a closed set of shapes:
//
//	Primitive   bool, int8..int64, float32/64, decimal, bigint, string, char, date, blob
//	Record      ordered field-name -> Type mapping
//	Table       multiset of records sharing one row type, with index columns
//	Array       homogeneous ordered sequence of one element Type
//	Opaque      a declared shape this package does not understand
//
// # Converters
//
// ConverterFor returns the converter for a shape. Converters are stateless
// and cached per distinct shape signature, so every attribute declaring the
// same shape shares one instance. The factory is total: shapes without a
// structural converter get an opaque converter that passes values through
// unchanged and fails structural conversions with ErrIncompatible.
//
// Structural operations are exposed through optional interfaces
// (StringConverter, MapConverter, TableConverter) and the package-level
// helpers ToString, FromString, ToMap, FromMap, ToTable and FromTable, which
// report ErrIncompatible when a converter does not support the operation.
//
// # Row counts
//
// Table.Len reports whether the row count is known. Tables built from
// records or materialized rows know their size; StreamTable wraps a row
// source that cannot be counted without consuming it, and always reports
// an unknown length. Callers must not assume counting is cheap.
package types

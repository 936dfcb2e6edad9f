package types

import (
	"math/big"
	"time"
)

// Zero returns the canonical zero value of t. Opaque shapes have no zero
// value and return nil.
func Zero(t Type) any {
	switch t.Kind() {
	case KindPrimitive:
		switch t.(Primitive) {
		case Bool:
			return false
		case Int8:
			return int8(0)
		case Int16:
			return int16(0)
		case Int32:
			return int32(0)
		case Int64:
			return int64(0)
		case Float32:
			return float32(0)
		case Float64:
			return float64(0)
		case Decimal:
			return new(big.Float).SetPrec(decimalPrec)
		case BigInt:
			return new(big.Int)
		case String:
			return ""
		case Char:
			return rune(0)
		case Date:
			return time.Unix(0, 0).UTC()
		case Blob:
			return []byte{}
		}
	case KindRecord:
		rt := t.(*RecordType)
		values := make([]any, len(rt.fields))
		for i, f := range rt.fields {
			values[i] = Zero(f.Type)
		}
		return &Record{typ: rt, values: values}
	case KindTable:
		return &RowTable{typ: t.(*TableType)}
	case KindArray:
		return []any{}
	}
	return nil
}

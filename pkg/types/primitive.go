package types

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Primitive is a scalar shape.
type Primitive uint8

const (
	Bool Primitive = iota + 1
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Decimal
	BigInt
	String
	Char
	Date
	Blob
)

// decimalPrec is the mantissa precision used for decimal values.
const decimalPrec = 128

var primitiveNames = map[string]Primitive{
	"bool":    Bool,
	"boolean": Bool,
	"int8":    Int8,
	"byte":    Int8,
	"int16":   Int16,
	"short":   Int16,
	"int32":   Int32,
	"int":     Int32,
	"int64":   Int64,
	"long":    Int64,
	"float32": Float32,
	"float":   Float32,
	"float64": Float64,
	"double":  Float64,
	"decimal": Decimal,
	"bigint":  BigInt,
	"string":  String,
	"char":    Char,
	"date":    Date,
	"blob":    Blob,
	"bytes":   Blob,
}

func (Primitive) Kind() Kind { return KindPrimitive }
func (Primitive) isType()    {}

// String returns the primitive name.
func (p Primitive) String() string {
	names := []string{
		"invalid", "bool", "int8", "int16", "int32", "int64",
		"float32", "float64", "decimal", "bigint", "string", "char",
		"date", "blob",
	}
	if int(p) < len(names) {
		return names[p]
	}
	return "invalid"
}

// Valid reports whether p names a known primitive.
func (p Primitive) Valid() bool { return p >= Bool && p <= Blob }

// IsInteger reports whether p is a fixed-width integer kind.
func (p Primitive) IsInteger() bool { return p >= Int8 && p <= Int64 }

func (p Primitive) bits() int {
	switch p {
	case Int8:
		return 8
	case Int16:
		return 16
	case Int32, Float32:
		return 32
	default:
		return 64
	}
}

// primitiveConverter coerces values to the canonical Go representation
// of a primitive kind:
//
//	bool, int8, int16, int32, int64, float32, float64, *big.Float (decimal),
//	*big.Int, string, rune (char), time.Time (UTC), []byte
type primitiveConverter struct {
	kind Primitive
}

var _ StringConverter = primitiveConverter{}

func (c primitiveConverter) Type() Type { return c.kind }

func (c primitiveConverter) IsCompatible(v any) bool {
	_, err := c.Convert(v)
	return err == nil
}

func (c primitiveConverter) Convert(v any) (any, error) {
	if v == nil {
		return nil, c.incompatible(v)
	}
	switch c.kind {
	case Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, c.incompatible(v)
			}
			return parsed, nil
		}
	case Int8, Int16, Int32, Int64:
		n, ok := toInt64(v)
		if !ok {
			return nil, c.incompatible(v)
		}
		return c.narrow(v, n)
	case Float32, Float64:
		f, ok := toFloat(v)
		if !ok {
			return nil, c.incompatible(v)
		}
		if c.kind == Float32 {
			if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
				return nil, c.incompatible(v)
			}
			return float32(f), nil
		}
		return f, nil
	case Decimal:
		if d, ok := toDecimal(v); ok {
			return d, nil
		}
	case BigInt:
		if n, ok := toBigInt(v); ok {
			return n, nil
		}
	case String:
		switch s := v.(type) {
		case string:
			return s, nil
		case fmt.Stringer:
			return s.String(), nil
		}
	case Char:
		switch r := v.(type) {
		case rune:
			if utf8.ValidRune(r) {
				return r, nil
			}
		case string:
			if utf8.RuneCountInString(r) == 1 {
				ch, _ := utf8.DecodeRuneInString(r)
				if ch != utf8.RuneError {
					return ch, nil
				}
			}
		}
	case Date:
		switch d := v.(type) {
		case time.Time:
			return d.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(d))
			if err != nil {
				return nil, c.incompatible(v)
			}
			return parsed.UTC(), nil
		default:
			if ms, ok := toInt64(v); ok {
				return time.UnixMilli(ms).UTC(), nil
			}
		}
	case Blob:
		if b, ok := v.([]byte); ok {
			out := make([]byte, len(b))
			copy(out, b)
			return out, nil
		}
	}
	return nil, c.incompatible(v)
}

func (c primitiveConverter) ToString(v any) (string, error) {
	cv, err := c.Convert(v)
	if err != nil {
		return "", err
	}
	switch x := cv.(type) {
	case bool:
		return strconv.FormatBool(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		if c.kind == Char {
			return string(x), nil
		}
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case *big.Float:
		return x.Text('g', -1), nil
	case *big.Int:
		return x.String(), nil
	case string:
		return x, nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(x), nil
	}
	return "", c.incompatible(v)
}

func (c primitiveConverter) FromString(s string) (any, error) {
	switch c.kind {
	case String:
		return s, nil
	case Blob:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
		}
		return b, nil
	case Char:
		return c.Convert(s)
	case Int8, Int16, Int32, Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, c.kind.bits())
		if err != nil {
			return nil, c.incompatible(s)
		}
		return c.narrow(s, n)
	}
	return c.Convert(s)
}

func (c primitiveConverter) narrow(orig any, n int64) (any, error) {
	switch c.kind {
	case Int8:
		if n < math.MinInt8 || n > math.MaxInt8 {
			return nil, c.incompatible(orig)
		}
		return int8(n), nil
	case Int16:
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, c.incompatible(orig)
		}
		return int16(n), nil
	case Int32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, c.incompatible(orig)
		}
		return int32(n), nil
	default:
		return n, nil
	}
}

func (c primitiveConverter) incompatible(v any) error {
	return fmt.Errorf("%w: %T is not convertible to %s", ErrIncompatible, v, c.kind)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case *big.Int:
		if n == nil || !n.IsInt64() {
			return 0, false
		}
		return n.Int64(), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case *big.Float:
		if n == nil {
			return 0, false
		}
		f, _ := n.Float64()
		return f, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		if i, ok := toInt64(v); ok {
			return float64(i), true
		}
		if u, ok := v.(uint64); ok {
			return float64(u), true
		}
		return 0, false
	}
}

func toDecimal(v any) (*big.Float, bool) {
	d := new(big.Float).SetPrec(decimalPrec)
	switch n := v.(type) {
	case *big.Float:
		if n == nil {
			return nil, false
		}
		return d.Set(n), true
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return d.SetInt(n), true
	case float32:
		return decimalFromFloat(d, float64(n))
	case float64:
		return decimalFromFloat(d, n)
	case uint64:
		return d.SetUint64(n), true
	case string:
		if _, ok := d.SetString(strings.TrimSpace(n)); !ok {
			return nil, false
		}
		return d, true
	default:
		if i, ok := toInt64(v); ok {
			return d.SetInt64(i), true
		}
		return nil, false
	}
}

func decimalFromFloat(d *big.Float, f float64) (*big.Float, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return d.SetFloat64(f), true
}

func toBigInt(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return new(big.Int).Set(n), true
	case *big.Float:
		if n == nil || !n.IsInt() {
			return nil, false
		}
		i, _ := n.Int(nil)
		return i, true
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	case string:
		i, ok := new(big.Int).SetString(strings.TrimSpace(n), 10)
		return i, ok
	default:
		if i, ok := toInt64(v); ok {
			return big.NewInt(i), true
		}
		return nil, false
	}
}

package types

import (
	"errors"
	"fmt"
)

// Conversion errors.
var (
	// ErrIncompatible is returned when a value cannot be represented in a shape,
	// or when a converter does not support the requested structural operation.
	ErrIncompatible = errors.New("incompatible value")

	// ErrEmptyTable is returned when a record is reconstructed from a table
	// without rows. Reconstruction is ambiguous and never defaulted.
	ErrEmptyTable = errors.New("table has no rows")
)

// Converter coerces values into the canonical representation of one shape.
type Converter interface {
	// Type returns the shape this converter serves.
	Type() Type

	// Convert coerces v into the canonical representation of Type.
	Convert(v any) (any, error)

	// IsCompatible reports whether Convert would succeed for v.
	IsCompatible(v any) bool
}

// StringConverter converts values to and from their string form.
type StringConverter interface {
	Converter
	ToString(v any) (string, error)
	FromString(s string) (any, error)
}

// MapConverter projects values to and from field maps.
type MapConverter interface {
	Converter
	ToMap(v any) (map[string]any, error)
	FromMap(m map[string]any) (*Record, error)
}

// TableConverter converts values to and from tables.
type TableConverter interface {
	Converter
	ToTable(v any) (Table, error)
	FromTable(t Table) (any, error)
}

// ToString converts v to a string through c.
func ToString(c Converter, v any) (string, error) {
	sc, ok := c.(StringConverter)
	if !ok {
		return "", unsupported(c, "to string")
	}
	return sc.ToString(v)
}

// FromString parses s through c.
func FromString(c Converter, s string) (any, error) {
	sc, ok := c.(StringConverter)
	if !ok {
		return nil, unsupported(c, "from string")
	}
	return sc.FromString(s)
}

// ToMap projects v to a field map through c.
func ToMap(c Converter, v any) (map[string]any, error) {
	mc, ok := c.(MapConverter)
	if !ok {
		return nil, unsupported(c, "to map")
	}
	return mc.ToMap(v)
}

// FromMap reconstructs a record from m through c.
func FromMap(c Converter, m map[string]any) (*Record, error) {
	mc, ok := c.(MapConverter)
	if !ok {
		return nil, unsupported(c, "from map")
	}
	return mc.FromMap(m)
}

// ToTable converts v to a table through c.
func ToTable(c Converter, v any) (Table, error) {
	tc, ok := c.(TableConverter)
	if !ok {
		return nil, unsupported(c, "to table")
	}
	return tc.ToTable(v)
}

// FromTable reconstructs a value of c's shape from t.
func FromTable(c Converter, t Table) (any, error) {
	tc, ok := c.(TableConverter)
	if !ok {
		return nil, unsupported(c, "from table")
	}
	return tc.FromTable(t)
}

func unsupported(c Converter, op string) error {
	return fmt.Errorf("%w: %s does not support conversion %s", ErrIncompatible, c.Type(), op)
}

// opaqueConverter passes values through unchanged. Structural operations
// fail at use time.
type opaqueConverter struct {
	typ Type
}

var (
	_ StringConverter = (*opaqueConverter)(nil)
	_ MapConverter    = (*opaqueConverter)(nil)
	_ TableConverter  = (*opaqueConverter)(nil)
)

func (c *opaqueConverter) Type() Type { return c.typ }

func (c *opaqueConverter) Convert(v any) (any, error) { return v, nil }

func (c *opaqueConverter) IsCompatible(any) bool { return true }

func (c *opaqueConverter) ToString(any) (string, error) { return "", unsupported(c, "to string") }

func (c *opaqueConverter) FromString(string) (any, error) { return nil, unsupported(c, "from string") }

func (c *opaqueConverter) ToMap(any) (map[string]any, error) { return nil, unsupported(c, "to map") }

func (c *opaqueConverter) FromMap(map[string]any) (*Record, error) {
	return nil, unsupported(c, "from map")
}

func (c *opaqueConverter) ToTable(any) (Table, error) { return nil, unsupported(c, "to table") }

func (c *opaqueConverter) FromTable(Table) (any, error) { return nil, unsupported(c, "from table") }

package types

import (
	"bytes"
	"math/big"
	"reflect"
	"time"
)

// Equal reports whether two canonical values are equal. It understands
// big numbers, times, blobs, records, tables and []any sequences, and
// falls back to reflect.DeepEqual otherwise.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case *big.Int:
		y, ok := b.(*big.Int)
		return ok && (x == y || (x != nil && y != nil && x.Cmp(y) == 0))
	case *big.Float:
		y, ok := b.(*big.Float)
		return ok && (x == y || (x != nil && y != nil && x.Cmp(y) == 0))
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case *Record:
		y, ok := b.(*Record)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		if !Same(x.typ, y.typ) {
			return false
		}
		for i := range x.values {
			if !Equal(x.values[i], y.values[i]) {
				return false
			}
		}
		return true
	case Table:
		y, ok := b.(Table)
		if !ok || !Same(x.Type(), y.Type()) {
			return false
		}
		xr, err := collectRows(x)
		if err != nil {
			return false
		}
		yr, err := collectRows(y)
		if err != nil || len(xr) != len(yr) {
			return false
		}
		for i := range xr {
			if !Equal(xr[i], yr[i]) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func collectRows(t Table) ([]*Record, error) {
	var rows []*Record
	err := t.Each(func(r *Record) error {
		rows = append(rows, r)
		return nil
	})
	return rows, err
}

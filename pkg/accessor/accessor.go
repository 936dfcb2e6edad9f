package accessor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/attrhub/attrhub-go/pkg/model"
	"github.com/attrhub/attrhub-go/pkg/types"
)

// Accessor errors.
var (
	ErrDisconnected = errors.New("accessor is not connected")
	ErrInvalidValue = errors.New("value not compatible with attribute")
	ErrReadOnly     = errors.New("accessor is read-only")
	ErrType         = errors.New("value has unexpected type")
)

// Support is what an accessor needs from a repository.
type Support interface {
	Get(ctx context.Context, name string) (*model.Attribute, error)
	GetValue(ctx context.Context, name string) (any, error)
	SetValue(ctx context.Context, name string, value any) error
}

// Accessor reads and writes one named attribute.
type Accessor struct {
	name         string
	interceptors []Interceptor

	mu      sync.RWMutex
	support Support
	attr    *model.Attribute
}

// New creates an unbound accessor for attribute name.
func New(name string, interceptors ...Interceptor) *Accessor {
	return &Accessor{name: name, interceptors: interceptors}
}

// Name returns the attribute name the accessor is for.
func (a *Accessor) Name() string { return a.name }

// Connected reports whether the accessor is bound.
func (a *Accessor) Connected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.support != nil
}

// Metadata returns the bound attribute, or nil while disconnected.
func (a *Accessor) Metadata() *model.Attribute {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.attr
}

// Bind connects the accessor to s for attr.
func (a *Accessor) Bind(s Support, attr *model.Attribute) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.support, a.attr = s, attr
}

// Unbind disconnects the accessor.
func (a *Accessor) Unbind() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.support, a.attr = nil, nil
}

func (a *Accessor) bound() (Support, *model.Attribute, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.support == nil {
		return nil, nil, fmt.Errorf("%s: %w", a.name, ErrDisconnected)
	}
	return a.support, a.attr, nil
}

// GetValue returns the current value in the attribute's declared shape.
func (a *Accessor) GetValue(ctx context.Context) (any, error) {
	s, _, err := a.bound()
	if err != nil {
		return nil, err
	}
	next := func(ctx context.Context) (any, error) { return s.GetValue(ctx, a.name) }
	return a.chainGet(next)(ctx)
}

// SetValue writes value through the interceptor chain.
func (a *Accessor) SetValue(ctx context.Context, value any) error {
	s, _, err := a.bound()
	if err != nil {
		return err
	}
	next := func(ctx context.Context, v any) error { return s.SetValue(ctx, a.name, v) }
	return a.chainSet(next)(ctx, value)
}

// GetValueAs returns the current value coerced to shape t.
//
// Besides plain conversion this bridges shapes: a table-shaped value can
// be read as a record (first row) or an array (index column), any value
// can be read as a table of its own shape, and any value whose converter
// supports it can be read as a string.
func (a *Accessor) GetValueAs(ctx context.Context, t types.Type) (any, error) {
	v, err := a.GetValue(ctx)
	if err != nil {
		return nil, err
	}
	attr := a.Metadata()
	if attr == nil {
		return nil, fmt.Errorf("%s: %w", a.name, ErrDisconnected)
	}
	out, err := coerce(attr.Converter(), types.ConverterFor(t), v)
	if err != nil {
		return nil, fmt.Errorf("%s: read as %s: %w", a.name, t, err)
	}
	return out, nil
}

func coerce(from, to types.Converter, v any) (any, error) {
	if types.Same(from.Type(), to.Type()) {
		return v, nil
	}
	if tbl, ok := v.(types.Table); ok && to.Type().Kind() != types.KindTable {
		return types.FromTable(to, tbl)
	}
	switch to.Type().Kind() {
	case types.KindTable:
		tbl, err := types.ToTable(from, v)
		if err != nil {
			return nil, err
		}
		return to.Convert(tbl)
	case types.KindPrimitive:
		if to.Type() == types.String {
			if s, err := types.ToString(from, v); err == nil {
				return s, nil
			}
		}
	}
	return to.Convert(v)
}

// Value reads the accessor's value and asserts it to T.
func Value[T any](ctx context.Context, a *Accessor) (T, error) {
	var zero T
	v, err := a.GetValue(ctx)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s: %w: %T", a.name, ErrType, v)
	}
	return t, nil
}

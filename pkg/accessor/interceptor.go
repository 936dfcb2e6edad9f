package accessor

import (
	"context"
	"fmt"
	"time"

	"github.com/attrhub/attrhub-go/pkg/log"
)

// GetFunc reads a value.
type GetFunc func(ctx context.Context) (any, error)

// SetFunc writes a value.
type SetFunc func(ctx context.Context, value any) error

// Interceptor wraps accessor reads and writes. Implementations call next
// to continue the chain or return without calling it to short-circuit.
type Interceptor interface {
	InterceptGet(ctx context.Context, a *Accessor, next GetFunc) (any, error)
	InterceptSet(ctx context.Context, a *Accessor, value any, next SetFunc) error
}

// InterceptorFuncs adapts functions to Interceptor. Nil fields pass through.
type InterceptorFuncs struct {
	Get func(ctx context.Context, a *Accessor, next GetFunc) (any, error)
	Set func(ctx context.Context, a *Accessor, value any, next SetFunc) error
}

func (f InterceptorFuncs) InterceptGet(ctx context.Context, a *Accessor, next GetFunc) (any, error) {
	if f.Get == nil {
		return next(ctx)
	}
	return f.Get(ctx, a, next)
}

func (f InterceptorFuncs) InterceptSet(ctx context.Context, a *Accessor, value any, next SetFunc) error {
	if f.Set == nil {
		return next(ctx, value)
	}
	return f.Set(ctx, a, value, next)
}

func (a *Accessor) chainGet(next GetFunc) GetFunc {
	for i := len(a.interceptors) - 1; i >= 0; i-- {
		ic, inner := a.interceptors[i], next
		next = func(ctx context.Context) (any, error) { return ic.InterceptGet(ctx, a, inner) }
	}
	return next
}

func (a *Accessor) chainSet(next SetFunc) SetFunc {
	for i := len(a.interceptors) - 1; i >= 0; i-- {
		ic, inner := a.interceptors[i], next
		next = func(ctx context.Context, v any) error { return ic.InterceptSet(ctx, a, v, inner) }
	}
	return next
}

// Validate rejects values the attribute's converter is not compatible
// with before they reach the repository.
func Validate() Interceptor {
	return InterceptorFuncs{
		Set: func(ctx context.Context, a *Accessor, value any, next SetFunc) error {
			if attr := a.Metadata(); attr != nil && !attr.Converter().IsCompatible(value) {
				return fmt.Errorf("%s: %w: %T", a.Name(), ErrInvalidValue, value)
			}
			return next(ctx, value)
		},
	}
}

// ReadOnly rejects every write.
func ReadOnly() Interceptor {
	return InterceptorFuncs{
		Set: func(_ context.Context, a *Accessor, _ any, _ SetFunc) error {
			return fmt.Errorf("%s: %w", a.Name(), ErrReadOnly)
		},
	}
}

// Audit records every access as an activity event.
func Audit(l log.Logger) Interceptor {
	record := func(a *Accessor, op log.AccessOp, start time.Time, err error) {
		e := log.Event{
			Timestamp: start,
			Attribute: a.Name(),
			Category:  log.CategoryAccess,
			Access:    &log.AccessEvent{Op: op, Duration: time.Since(start), Failed: err != nil},
		}
		if attr := a.Metadata(); attr != nil {
			e.Resource = attr.Resource()
		}
		l.Log(e)
	}
	return InterceptorFuncs{
		Get: func(ctx context.Context, a *Accessor, next GetFunc) (any, error) {
			start := time.Now()
			v, err := next(ctx)
			record(a, log.AccessRead, start, err)
			return v, err
		},
		Set: func(ctx context.Context, a *Accessor, value any, next SetFunc) error {
			start := time.Now()
			err := next(ctx, value)
			record(a, log.AccessWrite, start, err)
			return err
		},
	}
}

package accessor_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrhub/attrhub-go/pkg/accessor"
	"github.com/attrhub/attrhub-go/pkg/log"
	"github.com/attrhub/attrhub-go/pkg/model"
	"github.com/attrhub/attrhub-go/pkg/repository"
	"github.com/attrhub/attrhub-go/pkg/types"
)

type mapConnector struct {
	mu     sync.Mutex
	values map[string]any
}

func (m *mapConnector) Connect(_ context.Context, id string, d *model.Descriptor) (*model.Attribute, error) {
	return model.NewAttribute("boiler", id, d, nil), nil
}

func (m *mapConnector) Read(_ context.Context, a *model.Attribute) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[a.ID()]; ok {
		return v, nil
	}
	return types.Zero(a.Type()), nil
}

func (m *mapConnector) Write(_ context.Context, a *model.Attribute, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[a.ID()] = v
	return nil
}

func setup(t *testing.T) (*repository.Repository, *accessor.Binder) {
	t.Helper()
	repo := repository.New("boiler", &mapConnector{values: map[string]any{}})
	b := accessor.NewBinder(repo)
	repo.AddListener(b)
	return repo, b
}

type capture struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *capture) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestBindFollowsLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, b := setup(t)

	a := accessor.New("temp")
	require.NoError(t, b.Register(ctx, a))
	assert.False(t, a.Connected())

	_, err := a.GetValue(ctx)
	assert.ErrorIs(t, err, accessor.ErrDisconnected)

	_, err = repo.Add(ctx, "temp", model.NewDescriptor("", model.WithType(types.Float64)))
	require.NoError(t, err)
	assert.True(t, a.Connected())
	assert.Equal(t, types.Float64, a.Metadata().Type())

	require.NoError(t, a.SetValue(ctx, 21.5))
	v, err := accessor.Value[float64](ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 21.5, v)

	_, err = repo.Remove(ctx, "temp")
	require.NoError(t, err)
	assert.False(t, a.Connected())
	assert.Nil(t, a.Metadata())
}

func TestRegisterBindsExisting(t *testing.T) {
	ctx := context.Background()
	repo, b := setup(t)
	_, err := repo.Add(ctx, "pressure", model.NewDescriptor("", model.WithType(types.Int32)))
	require.NoError(t, err)

	a := accessor.New("pressure")
	require.NoError(t, b.Register(ctx, a))
	assert.True(t, a.Connected())

	b.Unregister(a)
	assert.False(t, a.Connected())

	// Unregistered accessors are not rebound on replacement.
	_, err = repo.Add(ctx, "pressure", model.NewDescriptor("", model.WithType(types.Int64)))
	require.NoError(t, err)
	assert.False(t, a.Connected())
}

func TestRebindOnReplace(t *testing.T) {
	ctx := context.Background()
	repo, b := setup(t)
	a := accessor.New("x")
	require.NoError(t, b.Register(ctx, a))

	_, err := repo.Add(ctx, "x", model.NewDescriptor("", model.WithType(types.Int32)))
	require.NoError(t, err)
	_, err = repo.Add(ctx, "x", model.NewDescriptor("", model.WithType(types.String)))
	require.NoError(t, err)

	assert.True(t, a.Connected())
	assert.Equal(t, types.String, a.Metadata().Type())
}

func TestValueTypeMismatch(t *testing.T) {
	ctx := context.Background()
	repo, b := setup(t)
	_, _ = repo.Add(ctx, "n", model.NewDescriptor("", model.WithType(types.Int16)))
	a := accessor.New("n")
	require.NoError(t, b.Register(ctx, a))

	_, err := accessor.Value[string](ctx, a)
	assert.ErrorIs(t, err, accessor.ErrType)
}

func TestGetValueAs(t *testing.T) {
	ctx := context.Background()
	repo, b := setup(t)

	row := types.MustRecordType("reading", types.Field{Name: "id", Type: types.Int64}, types.Field{Name: "value", Type: types.Float64})
	_, err := repo.Add(ctx, "readings", model.NewDescriptor("", model.WithType(types.MustTableType(row, "id"))))
	require.NoError(t, err)
	_, err = repo.Add(ctx, "level", model.NewDescriptor("", model.WithType(types.Int32)))
	require.NoError(t, err)

	readings := accessor.New("readings")
	level := accessor.New("level")
	require.NoError(t, b.Register(ctx, readings))
	require.NoError(t, b.Register(ctx, level))

	require.NoError(t, readings.SetValue(ctx, []map[string]any{
		{"id": 3, "value": 0.5},
		{"id": 7, "value": 1.5},
	}))
	require.NoError(t, level.SetValue(ctx, 12))

	t.Run("TableAsArray", func(t *testing.T) {
		v, err := readings.GetValueAs(ctx, types.NewArrayType(types.Int64))
		require.NoError(t, err)
		assert.True(t, types.Equal([]any{int64(3), int64(7)}, v))
	})

	t.Run("TableAsRecord", func(t *testing.T) {
		v, err := readings.GetValueAs(ctx, row)
		require.NoError(t, err)
		id, _ := v.(*types.Record).Get("id")
		assert.Equal(t, int64(3), id)
	})

	t.Run("PrimitiveAsString", func(t *testing.T) {
		v, err := level.GetValueAs(ctx, types.String)
		require.NoError(t, err)
		assert.Equal(t, "12", v)
	})

	t.Run("PrimitiveWidening", func(t *testing.T) {
		v, err := level.GetValueAs(ctx, types.Float64)
		require.NoError(t, err)
		assert.Equal(t, 12.0, v)
	})

	t.Run("Incompatible", func(t *testing.T) {
		_, err := level.GetValueAs(ctx, row)
		assert.Error(t, err)
	})
}

func TestInterceptors(t *testing.T) {
	ctx := context.Background()
	repo, b := setup(t)
	_, _ = repo.Add(ctx, "mode", model.NewDescriptor("", model.WithType(types.Int8)))

	t.Run("Validate", func(t *testing.T) {
		a := accessor.New("mode", accessor.Validate())
		require.NoError(t, b.Register(ctx, a))
		assert.ErrorIs(t, a.SetValue(ctx, "eco"), accessor.ErrInvalidValue)
		assert.NoError(t, a.SetValue(ctx, 3))
	})

	t.Run("ReadOnly", func(t *testing.T) {
		a := accessor.New("mode", accessor.ReadOnly())
		require.NoError(t, b.Register(ctx, a))
		assert.ErrorIs(t, a.SetValue(ctx, 1), accessor.ErrReadOnly)
		_, err := a.GetValue(ctx)
		assert.NoError(t, err)
	})

	t.Run("Audit", func(t *testing.T) {
		c := &capture{}
		a := accessor.New("mode", accessor.Audit(c))
		require.NoError(t, b.Register(ctx, a))
		_, _ = a.GetValue(ctx)
		_ = a.SetValue(ctx, 2)

		require.Len(t, c.events, 2)
		assert.Equal(t, log.AccessRead, c.events[0].Access.Op)
		assert.Equal(t, log.AccessWrite, c.events[1].Access.Op)
		assert.Equal(t, "boiler", c.events[0].Resource)
	})

	t.Run("Order", func(t *testing.T) {
		var order []string
		mark := func(name string) accessor.Interceptor {
			return accessor.InterceptorFuncs{Get: func(ctx context.Context, _ *accessor.Accessor, next accessor.GetFunc) (any, error) {
				order = append(order, name)
				return next(ctx)
			}}
		}
		a := accessor.New("mode", mark("outer"), mark("inner"))
		require.NoError(t, b.Register(ctx, a))
		_, _ = a.GetValue(ctx)
		assert.Equal(t, []string{"outer", "inner"}, order)
	})

	t.Run("ShortCircuit", func(t *testing.T) {
		a := accessor.New("mode", accessor.InterceptorFuncs{
			Get: func(context.Context, *accessor.Accessor, accessor.GetFunc) (any, error) { return int8(99), nil },
		})
		require.NoError(t, b.Register(ctx, a))
		v, err := a.GetValue(ctx)
		require.NoError(t, err)
		assert.Equal(t, int8(99), v)
	})
}

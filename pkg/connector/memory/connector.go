package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/attrhub/attrhub-go/pkg/model"
	"github.com/attrhub/attrhub-go/pkg/types"
)

// ErrClosed is returned for attributes that were disconnected.
var ErrClosed = errors.New("memory: attribute disconnected")

// ErrForeignAttribute is returned for attributes another connector connected.
var ErrForeignAttribute = errors.New("memory: attribute not connected by this connector")

// Option configures a Connector.
type Option func(*Connector)

// WithInitial sets the value an attribute starts with. It is converted to
// the declared type on Connect; an incompatible value falls back to the
// zero value of the type.
func WithInitial(id string, value any) Option {
	return func(c *Connector) { c.initial[id] = value }
}

// WithHidden registers an attribute that is only reported by Discover.
func WithHidden(id string, d *model.Descriptor) Option {
	return func(c *Connector) { c.hidden[id] = d }
}

// WithDelay delays every read and write. The delay honors cancellation.
func WithDelay(d time.Duration) Option {
	return func(c *Connector) { c.delay = d }
}

// Connector is a repository.Connector backed by a map.
type Connector struct {
	resource string
	delay    time.Duration
	initial  map[string]any

	mu     sync.RWMutex
	hidden map[string]*model.Descriptor
	values map[string]any
}

// New creates a connector for resource.
func New(resource string, opts ...Option) *Connector {
	c := &Connector{
		resource: resource,
		initial:  make(map[string]any),
		hidden:   make(map[string]*model.Descriptor),
		values:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect binds attribute id. Any id is accepted.
func (c *Connector) Connect(ctx context.Context, id string, d *model.Descriptor) (*model.Attribute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conv := types.ConverterFor(d.Type())

	c.mu.Lock()
	v, ok := c.values[id]
	if ok {
		v, ok = convert(conv, v)
	}
	if !ok {
		v, ok = convert(conv, c.initial[id])
	}
	if !ok {
		v = types.Zero(d.Type())
	}
	c.values[id] = v
	c.mu.Unlock()

	cell := &Cell{owner: c, id: id, conv: conv}
	var binding any = cell
	if d.Distributed() {
		binding = &DistributedCell{Cell: cell}
	}
	return model.NewAttribute(c.resource, id, d, binding), nil
}

func convert(conv types.Converter, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	cv, err := conv.Convert(v)
	return cv, err == nil
}

// Read returns the current value.
func (c *Connector) Read(ctx context.Context, attr *model.Attribute) (any, error) {
	cell, err := c.cell(attr)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return cell.Get()
}

// Write stores value. The repository has already converted it.
func (c *Connector) Write(ctx context.Context, attr *model.Attribute, value any) error {
	cell, err := c.cell(attr)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	return cell.Set(value)
}

// Disconnect closes the binding. The stored value is kept.
func (c *Connector) Disconnect(_ context.Context, attr *model.Attribute) error {
	cell, err := c.cell(attr)
	if err != nil {
		return err
	}
	cell.close()
	return nil
}

// Discover returns the hidden attributes.
func (c *Connector) Discover(ctx context.Context) (map[string]*model.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.hidden), nil
}

// SetHidden replaces the attributes reported by Discover.
func (c *Connector) SetHidden(hidden map[string]*model.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hidden = maps.Clone(hidden)
	if c.hidden == nil {
		c.hidden = make(map[string]*model.Descriptor)
	}
}

// Value returns the stored value of id regardless of connection state.
func (c *Connector) Value(id string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[id]
	return v, ok
}

func (c *Connector) cell(attr *model.Attribute) (*Cell, error) {
	var cell *Cell
	switch b := attr.Binding().(type) {
	case *Cell:
		cell = b
	case *DistributedCell:
		cell = b.Cell
	}
	if cell == nil || cell.owner != c {
		return nil, fmt.Errorf("%w: %s", ErrForeignAttribute, attr.ID())
	}
	return cell, nil
}

func (c *Connector) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

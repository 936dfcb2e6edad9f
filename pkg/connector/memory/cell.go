package memory

import (
	"fmt"
	"sync/atomic"

	"github.com/attrhub/attrhub-go/pkg/distributed"
	"github.com/attrhub/attrhub-go/pkg/types"
)

// Cell is the binding of one connected attribute.
type Cell struct {
	owner  *Connector
	id     string
	conv   types.Converter
	closed atomic.Bool
}

// Get returns the stored value.
func (c *Cell) Get() (any, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: %s", ErrClosed, c.id)
	}
	c.owner.mu.RLock()
	defer c.owner.mu.RUnlock()
	return c.owner.values[c.id], nil
}

// Set stores v after converting it to the declared type.
func (c *Cell) Set(v any) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: %s", ErrClosed, c.id)
	}
	cv, err := c.conv.Convert(v)
	if err != nil {
		return err
	}
	c.owner.mu.Lock()
	defer c.owner.mu.Unlock()
	c.owner.values[c.id] = cv
	return nil
}

func (c *Cell) close() { c.closed.Store(true) }

// DistributedCell is a Cell whose value is replicated as a snapshot.
// Primitive values travel in their string form; other shapes are not
// shared.
type DistributedCell struct {
	*Cell
}

var _ distributed.Distributable = (*DistributedCell)(nil)

// TakeSnapshot returns the string form of the value.
func (c *DistributedCell) TakeSnapshot() (any, bool) {
	if _, ok := c.conv.Type().(types.Primitive); !ok {
		return nil, false
	}
	v, err := c.Get()
	if err != nil || v == nil {
		return nil, false
	}
	s, err := types.ToString(c.conv, v)
	if err != nil {
		return nil, false
	}
	return s, true
}

// ApplySnapshot replaces the value with the snapshot state.
func (c *DistributedCell) ApplySnapshot(s *distributed.Snapshot) error {
	var text string
	if err := s.Decode(&text); err != nil {
		return err
	}
	v, err := types.FromString(c.conv, text)
	if err != nil {
		return fmt.Errorf("apply snapshot of %s: %w", c.id, err)
	}
	return c.Set(v)
}

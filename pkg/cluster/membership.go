package cluster

import (
	"context"
	"sync/atomic"

	"github.com/attrhub/attrhub-go/pkg/distributed"
)

// StaticMembership reports a fixed, switchable active flag.
type StaticMembership struct {
	active atomic.Bool
}

// NewStaticMembership creates a membership with the given initial state.
func NewStaticMembership(active bool) *StaticMembership {
	m := &StaticMembership{}
	m.active.Store(active)
	return m
}

// IsActiveNode reports the current flag.
func (m *StaticMembership) IsActiveNode(context.Context) bool { return m.active.Load() }

// SetActive changes the flag.
func (m *StaticMembership) SetActive(active bool) { m.active.Store(active) }

var _ distributed.ClusterMembership = (*StaticMembership)(nil)

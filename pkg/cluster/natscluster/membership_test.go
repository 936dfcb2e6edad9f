package natscluster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errWrongRevision = errors.New("wrong last sequence")

// fakeStore mimics a KV bucket with a TTL on a manual clock.
type fakeStore struct {
	mu      sync.Mutex
	now     time.Time
	ttl     time.Duration
	rev     uint64
	entries map[string]fakeEntry
}

type fakeEntry struct {
	value   string
	rev     uint64
	written time.Time
}

func newFakeStore(ttl time.Duration) *fakeStore {
	return &fakeStore{now: time.Unix(1000, 0), ttl: ttl, entries: map[string]fakeEntry{}}
}

func (s *fakeStore) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *fakeStore) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func (s *fakeStore) live(key string) (fakeEntry, bool) {
	e, ok := s.entries[key]
	if !ok || s.now.Sub(e.written) >= s.ttl {
		return fakeEntry{}, false
	}
	return e, true
}

func (s *fakeStore) Create(_ context.Context, key string, value []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return 0, errors.New("key exists")
	}
	s.rev++
	s.entries[key] = fakeEntry{value: string(value), rev: s.rev, written: s.now}
	return s.rev, nil
}

func (s *fakeStore) Update(_ context.Context, key string, value []byte, revision uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok || e.rev != revision {
		return 0, errWrongRevision
	}
	s.rev++
	s.entries[key] = fakeEntry{value: string(value), rev: s.rev, written: s.now}
	return s.rev, nil
}

func (s *fakeStore) Delete(_ context.Context, key string, revision uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.rev != revision {
		return errWrongRevision
	}
	delete(s.entries, key)
	return nil
}

func (s *fakeStore) holder(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.live(key)
	return e.value
}

func newTestMembership(store *fakeStore, node string) *Membership {
	m := newMembership(store, MembershipConfig{Lease: "pump", NodeID: node, LeaseTTL: 10 * time.Second})
	m.now = store.clock
	return m
}

func TestLeaseElection(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(10 * time.Second)
	a := newTestMembership(store, "a")
	b := newTestMembership(store, "b")

	a.campaign(ctx)
	b.campaign(ctx)
	assert.True(t, a.IsActiveNode(ctx))
	assert.False(t, b.IsActiveNode(ctx))
	assert.Equal(t, "a", store.holder(a.key))

	// Renewal keeps the lease past the original TTL.
	store.advance(6 * time.Second)
	a.campaign(ctx)
	store.advance(6 * time.Second)
	b.campaign(ctx)
	assert.True(t, a.IsActiveNode(ctx))
	assert.False(t, b.IsActiveNode(ctx))

	require.NoError(t, a.Stop(ctx))
	assert.False(t, a.IsActiveNode(ctx))

	b.campaign(ctx)
	assert.True(t, b.IsActiveNode(ctx))
	assert.Equal(t, "b", store.holder(b.key))
}

func TestLeaseExpiry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(10 * time.Second)
	a := newTestMembership(store, "a")
	b := newTestMembership(store, "b")

	a.campaign(ctx)
	require.True(t, a.IsActiveNode(ctx))

	// a stops renewing; its local view expires with the lease.
	store.advance(11 * time.Second)
	assert.False(t, a.IsActiveNode(ctx))

	b.campaign(ctx)
	assert.True(t, b.IsActiveNode(ctx))

	// a notices the takeover on its next renewal and does not win back.
	a.campaign(ctx)
	assert.False(t, a.IsActiveNode(ctx))
	assert.Equal(t, "b", store.holder(a.key))
}

func TestMembershipStartStop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(10 * time.Second)
	m := newMembership(store, MembershipConfig{Lease: "pump", NodeID: "a", RenewInterval: 5 * time.Millisecond})
	m.now = store.clock

	m.Start(ctx)
	m.Start(ctx)
	assert.Eventually(t, func() bool { return m.IsActiveNode(ctx) }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop(ctx))
	require.NoError(t, m.Stop(ctx))
	assert.Empty(t, store.holder(m.key))
}

func TestLeaseKeySanitized(t *testing.T) {
	m := newMembership(newFakeStore(time.Second), MembershipConfig{Lease: "plant/pump 1"})
	assert.Equal(t, "lease.plant_pump_1", m.key)
}

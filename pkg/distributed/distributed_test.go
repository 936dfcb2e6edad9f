package distributed_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/attrhub/attrhub-go/pkg/cluster"
	"github.com/attrhub/attrhub-go/pkg/distributed"
	"github.com/attrhub/attrhub-go/pkg/model"
	"github.com/attrhub/attrhub-go/pkg/repository"
	"github.com/attrhub/attrhub-go/pkg/types"
)

// ---------------------------------------------------------------------------
// stubs
// ---------------------------------------------------------------------------

type stubMembership struct{ mock.Mock }

func (s *stubMembership) IsActiveNode(ctx context.Context) bool { return s.Called(ctx).Bool(0) }

type stubMessaging struct{ mock.Mock }

func (s *stubMessaging) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.Called(ctx, channel, payload).Error(0)
}
func (s *stubMessaging) Subscribe(channel string, filter func([]byte) bool, handler func([]byte)) (distributed.Subscription, error) {
	ret := s.Called(channel, filter, handler)
	var sub distributed.Subscription
	if ret.Get(0) != nil {
		sub = ret.Get(0).(distributed.Subscription)
	}
	return sub, ret.Error(1)
}

// counter is a Distributable binding holding one integer.
type counter struct {
	mu      sync.Mutex
	value   int64
	share   bool
	applied int
}

func (c *counter) TakeSnapshot() (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.share
}

func (c *counter) ApplySnapshot(s *distributed.Snapshot) error {
	var v int64
	if err := s.Decode(&v); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.applied++
	return nil
}

func (c *counter) get() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// bindingConnector hands out the binding registered for each attribute ID.
type bindingConnector struct {
	bindings map[string]any
}

func (b *bindingConnector) Connect(_ context.Context, id string, d *model.Descriptor) (*model.Attribute, error) {
	return model.NewAttribute("pump", id, d, b.bindings[id]), nil
}
func (b *bindingConnector) Read(context.Context, *model.Attribute) (any, error) { return int64(0), nil }
func (b *bindingConnector) Write(context.Context, *model.Attribute, any) error  { return nil }

func newRepo(t *testing.T, bindings map[string]any) *repository.Repository {
	t.Helper()
	r := repository.New("pump", &bindingConnector{bindings: bindings})
	for id := range bindings {
		_, err := r.Add(context.Background(), id, model.NewDescriptor("", model.WithType(types.Int64)))
		require.NoError(t, err)
	}
	return r
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestSnapshotEncoding(t *testing.T) {
	s, err := distributed.NewSnapshot("pump", "speed", "n1", map[string]any{"rpm": int64(1200)})
	require.NoError(t, err)

	data, err := distributed.EncodeSnapshot(s)
	require.NoError(t, err)

	res, err := distributed.PeekResource(data)
	require.NoError(t, err)
	assert.Equal(t, "pump", res)

	back, err := distributed.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, "speed", back.Attribute)
	assert.Equal(t, "n1", back.Node)

	var state map[string]any
	require.NoError(t, back.Decode(&state))
	assert.EqualValues(t, 1200, state["rpm"])

	_, err = distributed.DecodeSnapshot([]byte{0xff})
	assert.ErrorIs(t, err, distributed.ErrInvalidSnapshot)
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "attrhub.pump_1.snapshots", distributed.Channel("pump 1"))
	assert.Equal(t, "attrhub.a_b.snapshots", distributed.Channel("a.b"))
}

func TestBroadcastSelectivity(t *testing.T) {
	ctx := context.Background()
	bindings := map[string]any{
		"a":     &counter{value: 1, share: true},
		"b":     &counter{value: 2, share: true},
		"quiet": &counter{share: false},
		"plain": "not distributable",
	}

	t.Run("Inactive", func(t *testing.T) {
		m := &stubMembership{}
		m.On("IsActiveNode", mock.Anything).Return(false)
		msg := &stubMessaging{}
		d := distributed.New(newRepo(t, bindings), m, msg, distributed.Config{})

		for i := 0; i < 10; i++ {
			n, err := d.Tick(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		}
		msg.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Active", func(t *testing.T) {
		m := &stubMembership{}
		m.On("IsActiveNode", mock.Anything).Return(true)
		msg := &stubMessaging{}
		msg.On("Publish", mock.Anything, distributed.Channel("pump"), mock.Anything).Return(nil)
		d := distributed.New(newRepo(t, bindings), m, msg, distributed.Config{Workers: 2})

		for i := 0; i < 10; i++ {
			n, err := d.Tick(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		}
		msg.AssertNumberOfCalls(t, "Publish", 20)
	})
}

func TestTickReportsPublishFailure(t *testing.T) {
	m := &stubMembership{}
	m.On("IsActiveNode", mock.Anything).Return(true)
	msg := &stubMessaging{}
	msg.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bus down"))
	d := distributed.New(newRepo(t, map[string]any{"a": &counter{share: true}}), m, msg, distributed.Config{})

	n, err := d.Tick(context.Background())
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "bus down")
}

func TestReplicationOverLocalBus(t *testing.T) {
	ctx := context.Background()
	bus := cluster.NewLocalBus()

	leaderState := &counter{value: 42, share: true}
	followerState := &counter{}
	leader := distributed.New(newRepo(t, map[string]any{"level": leaderState}),
		cluster.NewStaticMembership(true), bus, distributed.Config{Interval: time.Hour, NodeID: "leader"})
	follower := distributed.New(newRepo(t, map[string]any{"level": followerState, "local": &counter{}}),
		cluster.NewStaticMembership(false), bus, distributed.Config{Interval: time.Hour, NodeID: "follower"})

	require.NoError(t, leader.Start(ctx))
	defer leader.Stop()
	require.NoError(t, follower.Start(ctx))
	defer follower.Stop()

	assert.ErrorIs(t, leader.Start(ctx), distributed.ErrAlreadyStarted)

	n, err := leader.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, int64(42), followerState.get())
	// The sender applies its own broadcast as well.
	assert.Equal(t, 1, leaderState.applied)

	// Applying the same state again leaves it unchanged.
	_, err = leader.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), followerState.get())
	assert.Equal(t, 2, followerState.applied)
}

func TestUnknownAttributeIsIgnored(t *testing.T) {
	ctx := context.Background()
	bus := cluster.NewLocalBus()

	d := distributed.New(newRepo(t, map[string]any{"known": &counter{}}),
		cluster.NewStaticMembership(false), bus, distributed.Config{Interval: time.Hour})
	require.NoError(t, d.Start(ctx))
	defer d.Stop()

	s, err := distributed.NewSnapshot("pump", "unknown", "other", int64(1))
	require.NoError(t, err)
	payload, err := distributed.EncodeSnapshot(s)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		require.NoError(t, bus.Publish(ctx, d.Channel(), payload))
		require.NoError(t, bus.Publish(ctx, d.Channel(), []byte("garbage")))
	})
}

func TestOtherResourceIsFiltered(t *testing.T) {
	ctx := context.Background()
	bus := cluster.NewLocalBus()
	state := &counter{}

	d := distributed.New(newRepo(t, map[string]any{"x": state}),
		cluster.NewStaticMembership(false), bus, distributed.Config{Interval: time.Hour})
	require.NoError(t, d.Start(ctx))
	defer d.Stop()

	s, _ := distributed.NewSnapshot("other-resource", "x", "n", int64(9))
	payload, _ := distributed.EncodeSnapshot(s)
	require.NoError(t, bus.Publish(ctx, d.Channel(), payload))

	assert.Zero(t, state.applied)
}

func TestScheduledBroadcast(t *testing.T) {
	ctx := context.Background()
	bus := cluster.NewLocalBus()

	var mu sync.Mutex
	received := 0
	sub, err := bus.Subscribe(distributed.Channel("pump"), nil, func([]byte) {
		mu.Lock()
		received++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	d := distributed.New(newRepo(t, map[string]any{"a": &counter{share: true}}),
		cluster.NewStaticMembership(true), bus, distributed.Config{Interval: 20 * time.Millisecond})
	require.NoError(t, d.Start(ctx))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
}

func TestStartSubscribeFailure(t *testing.T) {
	msg := &stubMessaging{}
	msg.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("no bus"))
	d := distributed.New(newRepo(t, nil), &stubMembership{}, msg, distributed.Config{})

	assert.ErrorContains(t, d.Start(context.Background()), "no bus")
	assert.NoError(t, d.Stop())
}

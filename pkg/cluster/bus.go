package cluster

import (
	"context"
	"errors"
	"sync"

	"github.com/attrhub/attrhub-go/pkg/distributed"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("bus closed")

// LocalBus is an in-process ClusterMessaging. Publish delivers to every
// matching subscriber on the publishing goroutine before it returns.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string][]*localSub
	closed bool
}

type localSub struct {
	bus     *LocalBus
	channel string
	filter  func([]byte) bool
	handler func([]byte)
	once    sync.Once
}

// NewLocalBus creates an empty bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string][]*localSub)}
}

// Publish delivers payload to the subscribers of channel.
func (b *LocalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]*localSub(nil), b.subs[channel]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.filter != nil && !s.filter(payload) {
			continue
		}
		// Subscribers must not keep a reference beyond the call.
		s.handler(append([]byte(nil), payload...))
	}
	return nil
}

// Subscribe registers handler for channel.
func (b *LocalBus) Subscribe(channel string, filter func([]byte) bool, handler func([]byte)) (distributed.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	s := &localSub{bus: b, channel: channel, filter: filter, handler: handler}
	b.subs[channel] = append(b.subs[channel], s)
	return s, nil
}

// Close drops all subscriptions. Later Publish calls fail with ErrClosed.
func (b *LocalBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string][]*localSub)
}

// Unsubscribe removes the subscription. Repeated calls are no-ops.
func (s *localSub) Unsubscribe() error {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[s.channel]
		for i, x := range list {
			if x == s {
				b.subs[s.channel] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(b.subs[s.channel]) == 0 {
			delete(b.subs, s.channel)
		}
	})
	return nil
}

var _ distributed.ClusterMessaging = (*LocalBus)(nil)

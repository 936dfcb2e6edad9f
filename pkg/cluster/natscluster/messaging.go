package natscluster

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/attrhub/attrhub-go/pkg/distributed"
)

// Dial connects to the NATS server at url. The connection reconnects
// forever; call Close on it when done.
func Dial(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	base := []nats.Option{nats.Name(name), nats.MaxReconnects(-1)}
	conn, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Messaging is a ClusterMessaging backed by core NATS subjects.
// Channel names are used as subjects.
type Messaging struct {
	conn *nats.Conn
}

// NewMessaging wraps an established connection.
func NewMessaging(conn *nats.Conn) *Messaging {
	return &Messaging{conn: conn}
}

// Publish sends payload on channel.
func (m *Messaging) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.conn.Publish(channel, payload); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers messages on channel that pass filter to handler.
func (m *Messaging) Subscribe(channel string, filter func([]byte) bool, handler func([]byte)) (distributed.Subscription, error) {
	sub, err := m.conn.Subscribe(channel, func(msg *nats.Msg) {
		if filter != nil && !filter(msg.Data) {
			return
		}
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	return sub, nil
}

var _ distributed.ClusterMessaging = (*Messaging)(nil)

package distributed

import (
	"context"
	"regexp"
)

// ClusterMembership reports whether the local node is the active node.
type ClusterMembership interface {
	IsActiveNode(ctx context.Context) bool
}

// ClusterMessaging is a best-effort broadcast bus.
//
// Subscribe delivers every payload published on channel for which filter
// returns true to handler. A nil filter accepts everything. Handlers may
// be called concurrently.
type ClusterMessaging interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(channel string, filter func(payload []byte) bool, handler func(payload []byte)) (Subscription, error)
}

// Subscription is an active ClusterMessaging subscription.
type Subscription interface {
	Unsubscribe() error
}

var unsafeChannelChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Channel returns the snapshot channel name for resource.
func Channel(resource string) string {
	return "attrhub." + unsafeChannelChars.ReplaceAllString(resource, "_") + ".snapshots"
}

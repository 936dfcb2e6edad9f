package repository

import (
	"context"

	"github.com/attrhub/attrhub-go/pkg/model"
)

// Connector links a repository to the resource it manages.
//
// Connect resolves an attribute of the resource and returns its metadata,
// normally built with model.NewAttribute. Returning a nil attribute or an
// error wrapping ErrNotFound means the resource has no such attribute.
// Read and Write access the current value; errors are reported to callers
// as ErrConnector.
//
// Connectors are called from many goroutines at once and must be safe for
// concurrent use.
type Connector interface {
	Connect(ctx context.Context, id string, d *model.Descriptor) (*model.Attribute, error)
	Read(ctx context.Context, attr *model.Attribute) (any, error)
	Write(ctx context.Context, attr *model.Attribute, value any) error
}

// Disconnector is implemented by connectors that hold per-attribute resources.
// Disconnect runs after the attribute left the repository; its error is
// logged and otherwise ignored.
type Disconnector interface {
	Disconnect(ctx context.Context, attr *model.Attribute) error
}

// Discoverer is implemented by connectors that can enumerate attributes of
// the resource on their own. Discover returns descriptors keyed by
// attribute ID.
type Discoverer interface {
	Discover(ctx context.Context) (map[string]*model.Descriptor, error)
}

package repository

import (
	"context"
	"slices"

	"github.com/attrhub/attrhub-go/pkg/model"
)

// Listener is notified about attributes entering and leaving a repository.
//
// Callbacks run synchronously while the repository's write lock is held.
// The context passed in holds that lock, so a listener may read from the
// repository with it. AttributeRemoving is always called before the
// attribute is removed.
type Listener interface {
	AttributeAdded(ctx context.Context, attr *model.Attribute)
	AttributeRemoving(ctx context.Context, attr *model.Attribute)
}

// ListenerFuncs adapts plain functions to the Listener interface.
// Nil fields are skipped.
type ListenerFuncs struct {
	Added    func(ctx context.Context, attr *model.Attribute)
	Removing func(ctx context.Context, attr *model.Attribute)
}

func (l ListenerFuncs) AttributeAdded(ctx context.Context, attr *model.Attribute) {
	if l.Added != nil {
		l.Added(ctx, attr)
	}
}

func (l ListenerFuncs) AttributeRemoving(ctx context.Context, attr *model.Attribute) {
	if l.Removing != nil {
		l.Removing(ctx, attr)
	}
}

// AddListener registers l and returns a function that unregisters it.
// The returned function may be called more than once.
func (r *Repository) AddListener(l Listener) (remove func()) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.nextListener++
	id := r.nextListener
	r.listeners = append(r.listeners, listenerEntry{id: id, l: l})
	return func() {
		r.listenersMu.Lock()
		defer r.listenersMu.Unlock()
		r.listeners = slices.DeleteFunc(r.listeners, func(e listenerEntry) bool { return e.id == id })
	}
}

type listenerEntry struct {
	id uint64
	l  Listener
}

func (r *Repository) snapshotListeners() []Listener {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	out := make([]Listener, len(r.listeners))
	for i, e := range r.listeners {
		out[i] = e.l
	}
	return out
}

func (r *Repository) notifyAdded(ctx context.Context, attr *model.Attribute) {
	for _, l := range r.snapshotListeners() {
		l.AttributeAdded(ctx, attr)
	}
}

func (r *Repository) notifyRemoving(ctx context.Context, attr *model.Attribute) {
	for _, l := range r.snapshotListeners() {
		l.AttributeRemoving(ctx, attr)
	}
}

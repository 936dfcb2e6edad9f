package accessor

import (
	"context"
	"sync"

	"github.com/attrhub/attrhub-go/pkg/model"
)

// Binder binds registered accessors to attributes of one Support as they
// come and go. Register it with the repository's AddListener.
type Binder struct {
	support Support

	mu        sync.Mutex
	accessors map[string][]*Accessor
}

// NewBinder creates a binder for s.
func NewBinder(s Support) *Binder {
	return &Binder{support: s, accessors: make(map[string][]*Accessor)}
}

// Register adds a and binds it right away if its attribute exists.
func (b *Binder) Register(ctx context.Context, a *Accessor) error {
	b.mu.Lock()
	b.accessors[a.Name()] = append(b.accessors[a.Name()], a)
	b.mu.Unlock()

	attr, err := b.support.Get(ctx, a.Name())
	if err != nil {
		return err
	}
	if attr != nil {
		a.Bind(b.support, attr)
	}
	return nil
}

// Unregister removes and unbinds a.
func (b *Binder) Unregister(a *Accessor) {
	b.mu.Lock()
	list := b.accessors[a.Name()]
	for i, x := range list {
		if x == a {
			b.accessors[a.Name()] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.accessors[a.Name()]) == 0 {
		delete(b.accessors, a.Name())
	}
	b.mu.Unlock()
	a.Unbind()
}

func (b *Binder) registered(name string) []*Accessor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Accessor(nil), b.accessors[name]...)
}

// AttributeAdded binds the accessors registered for attr.
func (b *Binder) AttributeAdded(_ context.Context, attr *model.Attribute) {
	for _, a := range b.registered(attr.ID()) {
		a.Bind(b.support, attr)
	}
}

// AttributeRemoving unbinds the accessors registered for attr.
func (b *Binder) AttributeRemoving(_ context.Context, attr *model.Attribute) {
	for _, a := range b.registered(attr.ID()) {
		a.Unbind()
	}
}

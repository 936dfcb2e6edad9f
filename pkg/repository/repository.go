package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/attrhub/attrhub-go/pkg/log"
	"github.com/attrhub/attrhub-go/pkg/logfields"
	"github.com/attrhub/attrhub-go/pkg/metrics"
	"github.com/attrhub/attrhub-go/pkg/model"
)

type entry struct {
	attr    *model.Attribute
	metrics metrics.AttributeMetrics
}

// Repository holds the connected attributes of one resource.
type Repository struct {
	resource  string
	connector Connector
	lock      *rwLock

	logger   *slog.Logger
	events   log.Logger
	recorder metrics.Recorder

	// attrs is guarded by lock.
	attrs map[string]*entry

	// Totals across all attributes, including calls for unknown IDs.
	totals metrics.AttributeMetrics

	listenersMu  sync.Mutex
	listeners    []listenerEntry
	nextListener uint64
}

// New creates an empty repository for resource backed by connector.
func New(resource string, connector Connector, opts ...Option) *Repository {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository{
		resource:  resource,
		connector: connector,
		lock:      newRWLock(o.lockTimeout),
		logger:    o.logger.With(logfields.Resource(resource)),
		events:    o.events,
		recorder:  o.recorder,
		attrs:     make(map[string]*entry),
	}
}

// Resource returns the name of the managed resource.
func (r *Repository) Resource() string { return r.resource }

// Connector returns the connector the repository delegates to.
func (r *Repository) Connector() Connector { return r.connector }

// Metrics returns the repository-wide access counters.
func (r *Repository) Metrics() *metrics.AttributeMetrics { return &r.totals }

// Add connects attribute id with descriptor d and registers it.
//
// If id is already registered with an equal descriptor the existing
// attribute is returned and the connector is not called. A different
// descriptor replaces the attribute: listeners see it removed, the old
// attribute is disconnected, and the new one is connected.
func (r *Repository) Add(ctx context.Context, id string, d *model.Descriptor) (*model.Attribute, error) {
	ctx, release, err := r.lock.lock(ctx)
	if err != nil {
		return nil, r.fail(id, OpLock, err)
	}
	defer release()
	return r.addLocked(ctx, id, d)
}

func (r *Repository) addLocked(ctx context.Context, id string, d *model.Descriptor) (*model.Attribute, error) {
	if d == nil {
		return nil, r.fail(id, OpAdd, fmt.Errorf("%w: nil descriptor", ErrInvalidValue))
	}
	if e, ok := r.attrs[id]; ok {
		if e.attr.Descriptor().Equal(d) {
			return e.attr, nil
		}
		r.removeLocked(ctx, e, "descriptor changed")
	}

	attr, err := r.connector.Connect(ctx, id, d)
	if err != nil {
		return nil, r.fail(id, OpAdd, connectorError(err))
	}
	if attr == nil {
		return nil, r.fail(id, OpAdd, ErrNotFound)
	}

	r.attrs[id] = &entry{attr: attr}
	r.recorder.SetAttributeCount(r.resource, len(r.attrs))
	r.logger.Debug("attribute added", logfields.Attribute(id), slog.String("type", attr.Type().String()))
	r.events.Log(log.Event{
		Timestamp: time.Now(),
		Resource:  r.resource,
		Attribute: id,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Stage: log.StageAdded, Type: attr.Type().String()},
	})
	r.notifyAdded(ctx, attr)
	return attr, nil
}

// removeLocked notifies listeners, drops e from the map, then disconnects.
func (r *Repository) removeLocked(ctx context.Context, e *entry, reason string) {
	id := e.attr.ID()
	r.events.Log(log.Event{
		Timestamp: time.Now(),
		Resource:  r.resource,
		Attribute: id,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Stage: log.StageRemoving, Reason: reason},
	})
	r.notifyRemoving(ctx, e.attr)

	delete(r.attrs, id)
	r.recorder.SetAttributeCount(r.resource, len(r.attrs))

	if dc, ok := r.connector.(Disconnector); ok {
		if err := dc.Disconnect(ctx, e.attr); err != nil {
			_ = r.fail(id, OpDisconnect, connectorError(err))
		}
	}
	r.logger.Debug("attribute removed", logfields.Attribute(id), slog.String("reason", reason))
	r.events.Log(log.Event{
		Timestamp: time.Now(),
		Resource:  r.resource,
		Attribute: id,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Stage: log.StageRemoved, Reason: reason},
	})
}

// Get returns the attribute registered under id, or nil if there is none.
func (r *Repository) Get(ctx context.Context, id string) (*model.Attribute, error) {
	_, release, err := r.lock.rlock(ctx)
	if err != nil {
		return nil, r.fail(id, OpLock, err)
	}
	defer release()
	if e, ok := r.attrs[id]; ok {
		return e.attr, nil
	}
	return nil, nil
}

// Info returns the descriptor of attribute id, or nil if there is none.
func (r *Repository) Info(ctx context.Context, id string) (*model.Descriptor, error) {
	attr, err := r.Get(ctx, id)
	if attr == nil || err != nil {
		return nil, err
	}
	return attr.Descriptor(), nil
}

// AttributeMetrics returns the access counters of attribute id, or nil if
// there is none.
func (r *Repository) AttributeMetrics(ctx context.Context, id string) (*metrics.AttributeMetrics, error) {
	_, release, err := r.lock.rlock(ctx)
	if err != nil {
		return nil, r.fail(id, OpLock, err)
	}
	defer release()
	if e, ok := r.attrs[id]; ok {
		return &e.metrics, nil
	}
	return nil, nil
}

// GetValue reads the current value of attribute id through the connector.
// The value is converted to the attribute's declared type.
func (r *Repository) GetValue(ctx context.Context, id string) (any, error) {
	r.totals.MarkRead()
	ctx, release, err := r.lock.rlock(ctx)
	if err != nil {
		r.recorder.IncAttributeRead(r.resource, id, resultOf(err))
		return nil, r.fail(id, OpRead, err)
	}
	defer release()

	e, ok := r.attrs[id]
	if !ok {
		r.recorder.IncAttributeRead(r.resource, id, metrics.ResultFailed)
		return nil, r.fail(id, OpRead, ErrNotFound)
	}
	e.metrics.MarkRead()

	v, err := r.read(ctx, e.attr)
	if err != nil {
		r.recorder.IncAttributeRead(r.resource, id, resultOf(err))
		return nil, r.fail(id, OpRead, err)
	}
	r.recorder.IncAttributeRead(r.resource, id, metrics.ResultSuccess)
	return v, nil
}

func (r *Repository) read(ctx context.Context, attr *model.Attribute) (any, error) {
	if !attr.Access().CanRead() {
		return nil, ErrNotReadable
	}
	ctx, cancel := withAttributeTimeout(ctx, attr)
	defer cancel()

	start := time.Now()
	v, err := r.connector.Read(ctx, attr)
	r.logAccess(attr.ID(), log.AccessRead, time.Since(start), err)
	if err != nil {
		return nil, connectorError(err)
	}
	cv, err := attr.Converter().Convert(v)
	if err != nil {
		return nil, fmt.Errorf("%w: connector returned %T: %w", ErrInvalidValue, v, err)
	}
	return cv, nil
}

// SetValue converts value to the declared type of attribute id and writes
// it through the connector. A value the converter rejects fails with
// ErrInvalidValue without reaching the connector.
func (r *Repository) SetValue(ctx context.Context, id string, value any) error {
	_, err := r.setValue(ctx, id, value)
	return err
}

func (r *Repository) setValue(ctx context.Context, id string, value any) (any, error) {
	r.totals.MarkWrite()
	ctx, release, err := r.lock.rlock(ctx)
	if err != nil {
		r.recorder.IncAttributeWrite(r.resource, id, resultOf(err))
		return nil, r.fail(id, OpWrite, err)
	}
	defer release()

	e, ok := r.attrs[id]
	if !ok {
		r.recorder.IncAttributeWrite(r.resource, id, metrics.ResultFailed)
		return nil, r.fail(id, OpWrite, ErrNotFound)
	}
	e.metrics.MarkWrite()

	cv, err := r.write(ctx, e.attr, value)
	if err != nil {
		r.recorder.IncAttributeWrite(r.resource, id, resultOf(err))
		return nil, r.fail(id, OpWrite, err)
	}
	r.recorder.IncAttributeWrite(r.resource, id, metrics.ResultSuccess)
	return cv, nil
}

func (r *Repository) write(ctx context.Context, attr *model.Attribute, value any) (any, error) {
	if !attr.Access().CanWrite() {
		return nil, ErrNotWritable
	}
	cv, err := attr.Converter().Convert(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	ctx, cancel := withAttributeTimeout(ctx, attr)
	defer cancel()

	start := time.Now()
	err = r.connector.Write(ctx, attr, cv)
	r.logAccess(attr.ID(), log.AccessWrite, time.Since(start), err)
	if err != nil {
		return nil, connectorError(err)
	}
	return cv, nil
}

// Remove unregisters attribute id and returns it. Listeners are told
// before the attribute disappears; the connector is told afterwards.
func (r *Repository) Remove(ctx context.Context, id string) (*model.Attribute, error) {
	ctx, release, err := r.lock.lock(ctx)
	if err != nil {
		return nil, r.fail(id, OpLock, err)
	}
	defer release()

	e, ok := r.attrs[id]
	if !ok {
		return nil, r.fail(id, OpRemove, ErrNotFound)
	}
	r.removeLocked(ctx, e, "removed")
	return e.attr, nil
}

// Retain removes every attribute whose ID is not in keep and returns the
// removed IDs in sorted order.
func (r *Repository) Retain(ctx context.Context, keep []string) ([]string, error) {
	ctx, release, err := r.lock.lock(ctx)
	if err != nil {
		return nil, r.fail("", OpLock, err)
	}
	defer release()

	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	var removed []string
	for _, id := range r.sortedIDs() {
		if _, ok := keepSet[id]; ok {
			continue
		}
		r.removeLocked(ctx, r.attrs[id], "not retained")
		removed = append(removed, id)
	}
	return removed, nil
}

// Clear removes all attributes.
func (r *Repository) Clear(ctx context.Context) error {
	ctx, release, err := r.lock.lock(ctx)
	if err != nil {
		return r.fail("", OpLock, err)
	}
	defer release()
	for _, id := range r.sortedIDs() {
		r.removeLocked(ctx, r.attrs[id], "cleared")
	}
	return nil
}

// Expand asks a Discoverer connector for attributes and adds the ones not
// yet registered. It returns the newly added attributes. Connectors that
// cannot discover leave the repository unchanged.
func (r *Repository) Expand(ctx context.Context) ([]*model.Attribute, error) {
	dc, ok := r.connector.(Discoverer)
	if !ok {
		return nil, nil
	}
	found, err := dc.Discover(ctx)
	if err != nil {
		return nil, r.fail("", OpDiscover, connectorError(err))
	}

	ctx, release, err := r.lock.lock(ctx)
	if err != nil {
		return nil, r.fail("", OpLock, err)
	}
	defer release()

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var added []*model.Attribute
	for _, id := range ids {
		if _, exists := r.attrs[id]; exists {
			continue
		}
		attr, err := r.addLocked(ctx, id, found[id])
		if err != nil {
			continue
		}
		added = append(added, attr)
	}
	if len(added) > 0 {
		r.logger.Info("discovered attributes", logfields.Count(len(added)))
	}
	return added, nil
}

// Reconcile makes the repository match descs: attributes not in descs are
// removed, the rest are added or replaced. Errors for individual attributes
// are joined; the remaining attributes are still processed.
func (r *Repository) Reconcile(ctx context.Context, descs map[string]*model.Descriptor) error {
	ctx, release, err := r.lock.lock(ctx)
	if err != nil {
		return r.fail("", OpLock, err)
	}
	defer release()

	keep := make([]string, 0, len(descs))
	for id := range descs {
		keep = append(keep, id)
	}
	sort.Strings(keep)

	if _, err := r.Retain(ctx, keep); err != nil {
		return err
	}
	var errs []error
	for _, id := range keep {
		if _, err := r.addLocked(ctx, id, descs[id]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Names returns the registered attribute IDs in sorted order.
func (r *Repository) Names(ctx context.Context) ([]string, error) {
	_, release, err := r.lock.rlock(ctx)
	if err != nil {
		return nil, r.fail("", OpLock, err)
	}
	defer release()
	return r.sortedIDs(), nil
}

// Attributes returns the registered attributes sorted by ID.
func (r *Repository) Attributes(ctx context.Context) ([]*model.Attribute, error) {
	_, release, err := r.lock.rlock(ctx)
	if err != nil {
		return nil, r.fail("", OpLock, err)
	}
	defer release()
	ids := r.sortedIDs()
	out := make([]*model.Attribute, len(ids))
	for i, id := range ids {
		out[i] = r.attrs[id].attr
	}
	return out, nil
}

// Descriptors returns the descriptor of every registered attribute keyed by ID.
func (r *Repository) Descriptors(ctx context.Context) (map[string]*model.Descriptor, error) {
	_, release, err := r.lock.rlock(ctx)
	if err != nil {
		return nil, r.fail("", OpLock, err)
	}
	defer release()
	out := make(map[string]*model.Descriptor, len(r.attrs))
	for id, e := range r.attrs {
		out[id] = e.attr.Descriptor()
	}
	return out, nil
}

// Len returns the number of registered attributes.
func (r *Repository) Len(ctx context.Context) (int, error) {
	_, release, err := r.lock.rlock(ctx)
	if err != nil {
		return 0, r.fail("", OpLock, err)
	}
	defer release()
	return len(r.attrs), nil
}

// sortedIDs must be called with the lock held.
func (r *Repository) sortedIDs() []string {
	ids := make([]string, 0, len(r.attrs))
	for id := range r.attrs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fail wraps err with resource and attribute context and logs it.
func (r *Repository) fail(id string, op Op, err error) error {
	ae := &AttributeError{Resource: r.resource, Attribute: id, Op: op, Err: err}

	level := slog.LevelWarn
	if errors.Is(err, ErrNotFound) {
		level = slog.LevelDebug
	}
	r.logger.LogAttrs(context.Background(), level, "attribute operation failed",
		logfields.Attribute(id),
		logfields.Operation(string(op)),
		logfields.Error(err),
	)
	r.events.Log(log.Event{
		Timestamp: time.Now(),
		Resource:  r.resource,
		Attribute: id,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Op: string(op), Message: err.Error()},
	})
	return ae
}

func (r *Repository) logAccess(id string, op log.AccessOp, d time.Duration, err error) {
	r.events.Log(log.Event{
		Timestamp: time.Now(),
		Resource:  r.resource,
		Attribute: id,
		Category:  log.CategoryAccess,
		Access:    &log.AccessEvent{Op: op, Duration: d, Failed: err != nil},
	})
}

func withAttributeTimeout(ctx context.Context, attr *model.Attribute) (context.Context, context.CancelFunc) {
	if t := attr.Descriptor().Timeout(); t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return ctx, func() {}
}

func resultOf(err error) metrics.ResultLabel {
	if errors.Is(err, ErrTimeout) {
		return metrics.ResultTimeout
	}
	return metrics.ResultFailed
}

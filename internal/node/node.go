package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attrhub/attrhub-go/pkg/accessor"
	"github.com/attrhub/attrhub-go/pkg/config"
	"github.com/attrhub/attrhub-go/pkg/connector/memory"
	"github.com/attrhub/attrhub-go/pkg/distributed"
	"github.com/attrhub/attrhub-go/pkg/log"
	"github.com/attrhub/attrhub-go/pkg/logfields"
	"github.com/attrhub/attrhub-go/pkg/metrics"
	"github.com/attrhub/attrhub-go/pkg/repository"
)

// MembershipFactory creates the active-node election for one resource.
// A returned membership that has a Stop(context.Context) error method is
// stopped when the resource goes away.
type MembershipFactory func(ctx context.Context, resource string) (distributed.ClusterMembership, error)

// Options are the collaborators of a node. Messaging nil disables
// replication; Membership nil then is never consulted.
type Options struct {
	Logger     *slog.Logger
	Events     log.Logger
	Recorder   metrics.Recorder
	Messaging  distributed.ClusterMessaging
	Membership MembershipFactory

	// Interval and Workers tune replication of every resource.
	Interval time.Duration
	Workers  int
}

type stopper interface {
	Stop(ctx context.Context) error
}

// Resource is one managed resource of the node.
type Resource struct {
	name       string
	repo       *repository.Repository
	sync       *distributed.DistributedRepository
	conn       *memory.Connector
	binder     *accessor.Binder
	membership distributed.ClusterMembership
	events     log.Logger
	unlisten   func()

	mu        sync.Mutex
	accessors map[string]*accessor.Accessor
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Repository returns the attribute repository.
func (r *Resource) Repository() *repository.Repository { return r.repo }

// Sync returns the replication wrapper, or nil when replication is off.
func (r *Resource) Sync() *distributed.DistributedRepository { return r.sync }

// Accessor returns the shared accessor for attribute id, creating and
// registering it on first use. Accessors stay registered across reloads.
// Unknown attributes yield nil without registering anything.
func (r *Resource) Accessor(ctx context.Context, id string) (*accessor.Accessor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accessors[id]; ok {
		return a, nil
	}
	attr, err := r.repo.Get(ctx, id)
	if err != nil || attr == nil {
		return nil, err
	}
	a := accessor.New(id, accessor.Validate(), accessor.Audit(r.events))
	if err := r.binder.Register(ctx, a); err != nil {
		return nil, err
	}
	r.accessors[id] = a
	return a, nil
}

// Node owns the resources configured for this process.
type Node struct {
	id     string
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	resources map[string]*Resource
}

// New creates an empty node. Apply populates it. An empty id is replaced
// by a random UUID.
func New(id string, opts Options) *Node {
	if id == "" {
		id = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = log.NoopLogger{}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Node{
		id:        id,
		opts:      opts,
		logger:    opts.Logger.With(logfields.Node(id)),
		resources: make(map[string]*Resource),
	}
}

// ID returns the node ID.
func (n *Node) ID() string { return n.id }

// Resource returns the resource named name, or nil.
func (n *Node) Resource(name string) *Resource {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resources[name]
}

// Resources returns the resource names in sorted order.
func (n *Node) Resources() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.resources))
	for name := range n.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply makes the node match cfg. New resources are created and started,
// resources missing from cfg are stopped and cleared, and the attributes
// of the others are reconciled. Failures of one resource do not stop the
// others; all errors are joined.
func (n *Node) Apply(ctx context.Context, cfg *config.Config) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var errs []error
	wanted := make(map[string]bool, len(cfg.Resources))
	for _, rc := range cfg.Resources {
		wanted[rc.Name] = true
		if err := n.applyResource(ctx, rc); err != nil {
			errs = append(errs, fmt.Errorf("resource %s: %w", rc.Name, err))
		}
	}
	for name, r := range n.resources {
		if wanted[name] {
			continue
		}
		if err := n.close(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("resource %s: %w", name, err))
		}
		delete(n.resources, name)
		n.logger.Info("resource removed", logfields.Resource(name))
	}
	return errors.Join(errs...)
}

func (n *Node) applyResource(ctx context.Context, rc config.ResourceConfig) error {
	visible, hidden, err := rc.Descriptors()
	if err != nil {
		return err
	}

	r, exists := n.resources[rc.Name]
	if !exists {
		r, err = n.open(ctx, rc)
		if err != nil {
			return err
		}
		n.resources[rc.Name] = r
	}
	r.conn.SetHidden(hidden)

	// Hidden attributes found earlier stay registered.
	keep := maps.Clone(visible)
	for id, d := range hidden {
		if attr, _ := r.repo.Get(ctx, id); attr != nil {
			keep[id] = d
		}
	}
	errs := []error{r.repo.Reconcile(ctx, keep)}
	if _, err := r.repo.Expand(ctx); err != nil {
		errs = append(errs, err)
	}
	if count, err := r.repo.Len(ctx); err == nil {
		n.opts.Recorder.SetAttributeCount(rc.Name, count)
	}

	if !exists && r.sync != nil {
		if err := r.sync.Start(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if !exists {
		n.logger.Info("resource started", logfields.Resource(rc.Name), slog.Bool("replicated", r.sync != nil))
	}
	return errors.Join(errs...)
}

func (n *Node) open(ctx context.Context, rc config.ResourceConfig) (*Resource, error) {
	var opts []memory.Option
	for id, a := range rc.Attributes {
		if a.Initial != nil {
			opts = append(opts, memory.WithInitial(id, a.Initial))
		}
	}
	conn := memory.New(rc.Name, opts...)
	repo := repository.New(rc.Name, conn,
		repository.WithLogger(n.opts.Logger),
		repository.WithEventLogger(n.opts.Events),
		repository.WithRecorder(n.opts.Recorder),
		repository.WithLockTimeout(rc.LockTimeout.Std()),
	)
	r := &Resource{
		name:      rc.Name,
		repo:      repo,
		conn:      conn,
		events:    n.opts.Events,
		binder:    accessor.NewBinder(repo),
		accessors: make(map[string]*accessor.Accessor),
	}
	r.unlisten = repo.AddListener(r.binder)

	if n.opts.Messaging == nil || n.opts.Membership == nil {
		return r, nil
	}
	m, err := n.opts.Membership(ctx, rc.Name)
	if err != nil {
		r.unlisten()
		return nil, fmt.Errorf("membership: %w", err)
	}
	r.membership = m
	r.sync = distributed.New(repo, m, n.opts.Messaging, distributed.Config{
		Interval: n.opts.Interval,
		Workers:  n.opts.Workers,
		NodeID:   n.id,
		Logger:   n.opts.Logger,
		Events:   n.opts.Events,
		Recorder: n.opts.Recorder,
	})
	return r, nil
}

func (n *Node) close(ctx context.Context, r *Resource) error {
	var errs []error
	if r.sync != nil {
		errs = append(errs, r.sync.Stop())
	}
	errs = append(errs, r.repo.Clear(ctx))
	r.unlisten()
	if s, ok := r.membership.(stopper); ok {
		errs = append(errs, s.Stop(ctx))
	}
	n.opts.Recorder.SetAttributeCount(r.name, 0)
	return errors.Join(errs...)
}

// Stop stops and clears every resource.
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var errs []error
	for name, r := range n.resources {
		if err := n.close(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("resource %s: %w", name, err))
		}
		delete(n.resources, name)
	}
	return errors.Join(errs...)
}

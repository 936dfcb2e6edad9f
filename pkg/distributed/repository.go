package distributed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/attrhub/attrhub-go/pkg/log"
	"github.com/attrhub/attrhub-go/pkg/logfields"
	"github.com/attrhub/attrhub-go/pkg/metrics"
	"github.com/attrhub/attrhub-go/pkg/repository"
)

// Defaults applied by New.
const (
	DefaultInterval = 5 * time.Second
	DefaultWorkers  = 4
)

// ErrAlreadyStarted is returned by Start on a running repository.
var ErrAlreadyStarted = errors.New("distributed repository already started")

// Config configures a DistributedRepository.
type Config struct {
	// Interval between broadcast ticks.
	Interval time.Duration

	// Workers bounds how many attributes are snapshotted at once.
	Workers int

	// NodeID tags published snapshots. Defaults to a random UUID.
	NodeID string

	Logger   *slog.Logger
	Events   log.Logger
	Recorder metrics.Recorder
}

// DistributedRepository adds cluster snapshot replication to a Repository.
// All repository operations remain available on the embedded value.
type DistributedRepository struct {
	*repository.Repository

	membership ClusterMembership
	messaging  ClusterMessaging
	channel    string

	interval time.Duration
	workers  int
	nodeID   string
	logger   *slog.Logger
	events   log.Logger
	recorder metrics.Recorder

	mu        sync.Mutex
	cancel    context.CancelFunc
	scheduler gocron.Scheduler
	sub       Subscription
}

// New wraps repo. Nothing runs until Start is called.
func New(repo *repository.Repository, membership ClusterMembership, messaging ClusterMessaging, cfg Config) *DistributedRepository {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Events == nil {
		cfg.Events = log.NoopLogger{}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}
	channel := Channel(repo.Resource())
	return &DistributedRepository{
		Repository: repo,
		membership: membership,
		messaging:  messaging,
		channel:    channel,
		interval:   cfg.Interval,
		workers:    cfg.Workers,
		nodeID:     cfg.NodeID,
		logger: cfg.Logger.With(
			logfields.Resource(repo.Resource()),
			logfields.Channel(channel),
			logfields.Node(cfg.NodeID),
		),
		events:   cfg.Events,
		recorder: cfg.Recorder,
	}
}

// NodeID returns the node identifier used in published snapshots.
func (d *DistributedRepository) NodeID() string { return d.nodeID }

// Channel returns the snapshot channel of this repository.
func (d *DistributedRepository) Channel() string { return d.channel }

// Start subscribes to the snapshot channel and schedules the broadcast job.
// ctx bounds the lifetime of both; Stop ends them early.
func (d *DistributedRepository) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scheduler != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub, err := d.messaging.Subscribe(d.channel, d.accept, func(payload []byte) {
		d.handle(runCtx, payload)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", d.channel, err)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		cancel()
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(d.interval),
		gocron.NewTask(func() {
			if _, err := d.Tick(runCtx); err != nil {
				d.logger.Warn("snapshot broadcast failed", logfields.Error(err))
			}
		}),
		gocron.WithName(d.channel+"-broadcast"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = sub.Unsubscribe()
		_ = s.Shutdown()
		return fmt.Errorf("failed to create broadcast job: %w", err)
	}

	s.Start()
	d.cancel, d.scheduler, d.sub = cancel, s, sub
	d.logger.Info("distributed sync started", slog.Duration("interval", d.interval))
	return nil
}

// Stop shuts down the broadcast job and unsubscribes. It is safe to call
// Stop on a repository that was never started.
func (d *DistributedRepository) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scheduler == nil {
		return nil
	}
	d.cancel()
	errs := []error{d.scheduler.Shutdown(), d.sub.Unsubscribe()}
	d.scheduler, d.sub, d.cancel = nil, nil, nil
	d.logger.Info("distributed sync stopped")
	return errors.Join(errs...)
}

// Tick runs one broadcast cycle and returns the number of snapshots
// published. Nodes that are not active publish nothing.
func (d *DistributedRepository) Tick(ctx context.Context) (int, error) {
	if !d.membership.IsActiveNode(ctx) {
		return 0, nil
	}
	attrs, err := d.Attributes(ctx)
	if err != nil {
		return 0, err
	}

	var published atomic.Int64
	p := pool.New().WithErrors().WithMaxGoroutines(d.workers)
	for _, attr := range attrs {
		dist, ok := attr.Binding().(Distributable)
		if !ok {
			continue
		}
		p.Go(func() error {
			state, ok := dist.TakeSnapshot()
			if !ok {
				d.recorder.IncSnapshot(d.Resource(), metrics.SnapshotSkipped)
				return nil
			}
			if err := d.publish(ctx, attr.ID(), state); err != nil {
				d.recorder.IncSnapshot(d.Resource(), metrics.SnapshotFailed)
				return fmt.Errorf("%s: %w", attr.ID(), err)
			}
			published.Add(1)
			d.recorder.IncSnapshot(d.Resource(), metrics.SnapshotPublished)
			return nil
		})
	}
	err = p.Wait()
	n := int(published.Load())
	if n > 0 {
		d.logger.Debug("snapshots published", logfields.Count(n))
	}
	return n, err
}

func (d *DistributedRepository) publish(ctx context.Context, id string, state any) error {
	snap, err := NewSnapshot(d.Resource(), id, d.nodeID, state)
	if err != nil {
		return err
	}
	payload, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := d.messaging.Publish(ctx, d.channel, payload); err != nil {
		return err
	}
	d.events.Log(log.Event{
		Timestamp: snap.Taken,
		Resource:  d.Resource(),
		Attribute: id,
		Category:  log.CategorySync,
		Node:      d.nodeID,
		Sync:      &log.SyncEvent{Direction: log.DirectionOut, Size: len(payload)},
	})
	return nil
}

// accept drops snapshots of other resources sharing the channel.
func (d *DistributedRepository) accept(payload []byte) bool {
	resource, err := PeekResource(payload)
	return err == nil && resource == d.Resource()
}

func (d *DistributedRepository) handle(ctx context.Context, payload []byte) {
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		d.logger.Warn("dropping malformed snapshot", logfields.Error(err))
		return
	}
	attr, err := d.Get(ctx, snap.Attribute)
	if err != nil || attr == nil {
		return
	}
	dist, ok := attr.Binding().(Distributable)
	if !ok {
		return
	}
	if err := dist.ApplySnapshot(snap); err != nil {
		d.recorder.IncSnapshot(d.Resource(), metrics.SnapshotFailed)
		d.logger.Warn("failed to apply snapshot",
			logfields.Attribute(snap.Attribute),
			logfields.Node(snap.Node),
			logfields.Error(err))
		return
	}
	d.recorder.IncSnapshot(d.Resource(), metrics.SnapshotApplied)
	d.events.Log(log.Event{
		Timestamp: time.Now(),
		Resource:  d.Resource(),
		Attribute: snap.Attribute,
		Category:  log.CategorySync,
		Node:      snap.Node,
		Sync:      &log.SyncEvent{Direction: log.DirectionIn, Size: len(payload)},
	})
}

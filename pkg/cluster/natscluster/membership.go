package natscluster

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/attrhub/attrhub-go/pkg/distributed"
	"github.com/attrhub/attrhub-go/pkg/logfields"
)

// Membership defaults.
const (
	DefaultBucket        = "attrhub_leases"
	DefaultLeaseTTL      = 10 * time.Second
	DefaultRenewInterval = 3 * time.Second
)

// MembershipConfig configures lease-based election.
type MembershipConfig struct {
	// Bucket is the JetStream KV bucket holding leases.
	Bucket string
	// Lease names the election; nodes competing for the same Lease elect
	// one active node.
	Lease string
	// NodeID is written into the lease while held.
	NodeID string
	// LeaseTTL is how long a lease survives without renewal.
	LeaseTTL time.Duration
	// RenewInterval is how often the holder renews and followers campaign.
	RenewInterval time.Duration

	Logger *slog.Logger
}

func (c *MembershipConfig) applyDefaults() {
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = DefaultLeaseTTL
	}
	if c.RenewInterval <= 0 {
		c.RenewInterval = DefaultRenewInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// leaseStore is the subset of jetstream.KeyValue used for leases.
type leaseStore interface {
	Create(ctx context.Context, key string, value []byte) (uint64, error)
	Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
	Delete(ctx context.Context, key string, revision uint64) error
}

type kvStore struct {
	kv jetstream.KeyValue
}

func (s kvStore) Create(ctx context.Context, key string, value []byte) (uint64, error) {
	return s.kv.Create(ctx, key, value)
}

func (s kvStore) Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error) {
	return s.kv.Update(ctx, key, value, revision)
}

func (s kvStore) Delete(ctx context.Context, key string, revision uint64) error {
	return s.kv.Delete(ctx, key, jetstream.LastRevision(revision))
}

// Membership is a ClusterMembership backed by a JetStream KV lease.
type Membership struct {
	store  leaseStore
	key    string
	cfg    MembershipConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	held     bool
	revision uint64
	renewed  time.Time

	stop chan struct{}
	done chan struct{}
}

// NewMembership creates (or reuses) the lease bucket on js.
func NewMembership(ctx context.Context, js jetstream.JetStream, cfg MembershipConfig) (*Membership, error) {
	cfg.applyDefaults()
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "attrhub active-node leases",
		History:     1,
		TTL:         cfg.LeaseTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create KV bucket: %w", err)
	}
	return newMembership(kvStore{kv: kv}, cfg), nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_=-]+`)

func newMembership(store leaseStore, cfg MembershipConfig) *Membership {
	cfg.applyDefaults()
	return &Membership{
		store: store,
		key:   "lease." + unsafeKeyChars.ReplaceAllString(cfg.Lease, "_"),
		cfg:   cfg,
		logger: cfg.Logger.With(
			slog.String("lease", cfg.Lease),
			logfields.Node(cfg.NodeID),
		),
		now: time.Now,
	}
}

// Start campaigns immediately and then every RenewInterval until Stop is
// called or ctx is done.
func (m *Membership) Start(ctx context.Context) {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.cfg.RenewInterval)
		defer ticker.Stop()
		for {
			m.campaign(ctx)
			select {
			case <-ticker.C:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends campaigning and releases a held lease so another node can take
// over without waiting for expiry.
func (m *Membership) Stop(ctx context.Context) error {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held {
		return nil
	}
	m.held = false
	if err := m.store.Delete(ctx, m.key, m.revision); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	m.logger.Info("released active-node lease")
	return nil
}

// IsActiveNode reports whether this node holds a lease it renewed within
// the lease TTL.
func (m *Membership) IsActiveNode(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held && m.now().Sub(m.renewed) < m.cfg.LeaseTTL
}

// campaign renews a held lease or tries to acquire a free one.
func (m *Membership) campaign(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value := []byte(m.cfg.NodeID)
	if m.held {
		rev, err := m.store.Update(ctx, m.key, value, m.revision)
		if err == nil {
			m.revision, m.renewed = rev, m.now()
			return
		}
		m.held = false
		m.logger.Warn("lost active-node lease", logfields.Error(err))
	}

	rev, err := m.store.Create(ctx, m.key, value)
	if err != nil {
		return
	}
	m.held, m.revision, m.renewed = true, rev, m.now()
	m.logger.Info("acquired active-node lease")
}

var _ distributed.ClusterMembership = (*Membership)(nil)

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/attrhub/attrhub-go/pkg/model"
)

// Cluster modes.
const (
	ClusterLocal = "local"
	ClusterNATS  = "nats"
)

// Defaults applied by Load and Parse.
const (
	DefaultInterval      = 5 * time.Second
	DefaultWorkers       = 4
	DefaultLockTimeout   = 30 * time.Second
	DefaultLeaseTTL      = 10 * time.Second
	DefaultRenewInterval = 3 * time.Second
	DefaultLeaseBucket   = "attrhub_leases"
	DefaultConnector     = "memory"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root of a node configuration file.
type Config struct {
	Node      NodeConfig       `yaml:"node"`
	Cluster   ClusterConfig    `yaml:"cluster"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Events    EventsConfig     `yaml:"events"`
	Discovery DiscoveryConfig  `yaml:"discovery"`
	Resources []ResourceConfig `yaml:"resources"`
}

// NodeConfig identifies this node.
type NodeConfig struct {
	// ID tags snapshots and leases. Empty means a random ID per start.
	ID string `yaml:"id"`
}

// ClusterConfig selects and tunes snapshot replication.
type ClusterConfig struct {
	Mode          string   `yaml:"mode"`
	NATSURL       string   `yaml:"nats_url"`
	Interval      Duration `yaml:"interval"`
	Workers       int      `yaml:"workers"`
	LeaseBucket   string   `yaml:"lease_bucket"`
	LeaseTTL      Duration `yaml:"lease_ttl"`
	RenewInterval Duration `yaml:"renew_interval"`
}

// MetricsConfig configures the HTTP endpoint serving /metrics and the
// attribute API.
type MetricsConfig struct {
	// Listen is the HTTP listen address. Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// EventsConfig configures the activity trace.
type EventsConfig struct {
	// File receives CBOR-encoded events. Empty disables the file trace.
	File string `yaml:"file"`
	// Console also writes events to the operational log at debug level.
	Console bool `yaml:"console"`
}

// DiscoveryConfig configures mDNS advertisement of the node.
type DiscoveryConfig struct {
	// Advertise publishes the node while the HTTP endpoint is enabled.
	Advertise bool `yaml:"advertise"`
	// Interface restricts mDNS to one network interface.
	Interface string `yaml:"interface"`
}

// ResourceConfig describes one managed resource.
type ResourceConfig struct {
	Name        string                     `yaml:"name"`
	Connector   string                     `yaml:"connector"`
	LockTimeout Duration                   `yaml:"lock_timeout"`
	Distributed bool                       `yaml:"distributed"`
	Attributes  map[string]AttributeConfig `yaml:"attributes"`
}

// AttributeConfig describes one attribute of a resource.
type AttributeConfig struct {
	// Name is the resource-side name; defaults to the attribute ID.
	Name        string            `yaml:"name"`
	Type        TypeSpec          `yaml:"type"`
	Access      string            `yaml:"access"`
	Unit        string            `yaml:"unit"`
	Description string            `yaml:"description"`
	Timeout     Duration          `yaml:"timeout"`
	Distributed *bool             `yaml:"distributed"`
	Options     map[string]string `yaml:"options"`

	// Initial is the starting value for connectors that hold state.
	Initial any `yaml:"initial"`
	// Hidden attributes are not added at start; they are found by discovery.
	Hidden bool `yaml:"hidden"`
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML data, applies defaults and validates the result.
// Environment variables in data are expanded first.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cluster.Mode == "" {
		c.Cluster.Mode = ClusterLocal
	}
	if c.Cluster.Interval == 0 {
		c.Cluster.Interval = Duration(DefaultInterval)
	}
	if c.Cluster.Workers <= 0 {
		c.Cluster.Workers = DefaultWorkers
	}
	if c.Cluster.LeaseBucket == "" {
		c.Cluster.LeaseBucket = DefaultLeaseBucket
	}
	if c.Cluster.LeaseTTL == 0 {
		c.Cluster.LeaseTTL = Duration(DefaultLeaseTTL)
	}
	if c.Cluster.RenewInterval == 0 {
		c.Cluster.RenewInterval = Duration(DefaultRenewInterval)
	}
	for i := range c.Resources {
		if c.Resources[i].Connector == "" {
			c.Resources[i].Connector = DefaultConnector
		}
		if c.Resources[i].LockTimeout == 0 {
			c.Resources[i].LockTimeout = Duration(DefaultLockTimeout)
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	switch c.Cluster.Mode {
	case ClusterLocal:
	case ClusterNATS:
		if c.Cluster.NATSURL == "" {
			errs = append(errs, fmt.Errorf("%w: cluster.nats_url is required in nats mode", ErrInvalid))
		}
		if c.Cluster.RenewInterval >= c.Cluster.LeaseTTL {
			errs = append(errs, fmt.Errorf("%w: cluster.renew_interval must be shorter than lease_ttl", ErrInvalid))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown cluster.mode %q", ErrInvalid, c.Cluster.Mode))
	}

	if c.Discovery.Advertise && c.Metrics.Listen == "" {
		errs = append(errs, fmt.Errorf("%w: discovery.advertise needs metrics.listen", ErrInvalid))
	}

	seen := make(map[string]bool, len(c.Resources))
	for i, r := range c.Resources {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("%w: resources[%d]: name is required", ErrInvalid, i))
			continue
		}
		if seen[r.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate resource %q", ErrInvalid, r.Name))
		}
		seen[r.Name] = true
		if r.Connector != DefaultConnector {
			errs = append(errs, fmt.Errorf("%w: resource %q: unknown connector %q", ErrInvalid, r.Name, r.Connector))
		}
		for id, a := range r.Attributes {
			if _, err := a.Descriptor(id, r.Distributed); err != nil {
				errs = append(errs, fmt.Errorf("%w: resource %q: %w", ErrInvalid, r.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Resource returns the resource named name, or nil.
func (c *Config) Resource(name string) *ResourceConfig {
	for i := range c.Resources {
		if c.Resources[i].Name == name {
			return &c.Resources[i]
		}
	}
	return nil
}

// Descriptor builds the attribute descriptor. distributedDefault applies
// when the attribute does not set distributed itself.
func (a AttributeConfig) Descriptor(id string, distributedDefault bool) (*model.Descriptor, error) {
	typ, err := a.Type.Build()
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", id, err)
	}
	access, ok := model.ParseAccess(a.Access)
	if !ok {
		return nil, fmt.Errorf("attribute %q: invalid access %q", id, a.Access)
	}
	if a.Timeout < 0 {
		return nil, fmt.Errorf("attribute %q: negative timeout", id)
	}

	name := a.Name
	if name == "" {
		name = id
	}
	distributed := distributedDefault
	if a.Distributed != nil {
		distributed = *a.Distributed
	}

	opts := []model.DescriptorOption{
		model.WithType(typ),
		model.WithAccess(access),
		model.WithUnit(a.Unit),
		model.WithDescription(a.Description),
		model.WithTimeout(a.Timeout.Std()),
		model.WithOptions(a.Options),
	}
	if distributed {
		opts = append(opts, model.WithOption(model.OptionDistributed, "true"))
	}
	return model.NewDescriptor(name, opts...), nil
}

// Descriptors builds the descriptors of all attributes, split into those
// added at start and hidden ones left for discovery.
func (r ResourceConfig) Descriptors() (visible, hidden map[string]*model.Descriptor, err error) {
	visible = make(map[string]*model.Descriptor)
	hidden = make(map[string]*model.Descriptor)
	for id, a := range r.Attributes {
		d, err := a.Descriptor(id, r.Distributed)
		if err != nil {
			return nil, nil, err
		}
		if a.Hidden {
			hidden[id] = d
		} else {
			visible[id] = d
		}
	}
	return visible, hidden, nil
}

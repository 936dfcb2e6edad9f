package model

import (
	"maps"
	"time"

	"github.com/attrhub/attrhub-go/pkg/types"
)

// Well-known descriptor option keys.
const (
	// OptionDistributed marks an attribute whose runtime state is replicated
	// across the cluster ("true" / "false").
	OptionDistributed = "distributed"
)

// Descriptor is the immutable configuration of one attribute.
//
// Descriptors are never modified. With returns a new descriptor carrying
// the changed fields.
type Descriptor struct {
	name        string
	timeout     time.Duration
	description string
	unit        string
	typ         types.Type
	access      Access
	options     map[string]string
}

// DescriptorOption configures a descriptor under construction.
type DescriptorOption func(*Descriptor)

// WithTimeout sets the read/write timeout. Zero means no timeout.
func WithTimeout(d time.Duration) DescriptorOption {
	return func(desc *Descriptor) { desc.timeout = d }
}

// WithDescription sets the human-readable description.
func WithDescription(s string) DescriptorOption {
	return func(desc *Descriptor) { desc.description = s }
}

// WithUnit sets the unit of measurement (e.g., "W", "ms").
func WithUnit(s string) DescriptorOption {
	return func(desc *Descriptor) { desc.unit = s }
}

// WithType sets the declared type.
func WithType(t types.Type) DescriptorOption {
	return func(desc *Descriptor) { desc.typ = t }
}

// WithAccess sets the access flags.
func WithAccess(a Access) DescriptorOption {
	return func(desc *Descriptor) { desc.access = a }
}

// WithOption sets one free-form option.
func WithOption(key, value string) DescriptorOption {
	return func(desc *Descriptor) {
		if desc.options == nil {
			desc.options = make(map[string]string)
		}
		desc.options[key] = value
	}
}

// WithOptions merges free-form options.
func WithOptions(opts map[string]string) DescriptorOption {
	return func(desc *Descriptor) {
		if len(opts) == 0 {
			return
		}
		if desc.options == nil {
			desc.options = make(map[string]string, len(opts))
		}
		maps.Copy(desc.options, opts)
	}
}

// NewDescriptor creates a descriptor. The default type is string and the
// default access is read-write.
func NewDescriptor(name string, opts ...DescriptorOption) *Descriptor {
	d := &Descriptor{
		name:   name,
		typ:    types.String,
		access: AccessReadWrite,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// With returns a copy of d with opts applied. d is unchanged.
func (d *Descriptor) With(opts ...DescriptorOption) *Descriptor {
	c := *d
	c.options = maps.Clone(d.options)
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Name returns the resource-side attribute name.
func (d *Descriptor) Name() string { return d.name }

// Timeout returns the read/write timeout (zero if none).
func (d *Descriptor) Timeout() time.Duration { return d.timeout }

// Description returns the description.
func (d *Descriptor) Description() string { return d.description }

// Unit returns the unit of measurement.
func (d *Descriptor) Unit() string { return d.unit }

// Type returns the declared type.
func (d *Descriptor) Type() types.Type { return d.typ }

// Access returns the access flags.
func (d *Descriptor) Access() Access { return d.access }

// Option returns one free-form option.
func (d *Descriptor) Option(key string) (string, bool) {
	v, ok := d.options[key]
	return v, ok
}

// Options returns a copy of the free-form options.
func (d *Descriptor) Options() map[string]string {
	return maps.Clone(d.options)
}

// Distributed reports whether the OptionDistributed option is "true".
func (d *Descriptor) Distributed() bool {
	v, _ := d.Option(OptionDistributed)
	return v == "true"
}

// Equal reports full-field equality.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	return d.name == o.name &&
		d.timeout == o.timeout &&
		d.description == o.description &&
		d.unit == o.unit &&
		d.access == o.access &&
		types.Same(d.typ, o.typ) &&
		optionsEqual(d.options, o.options)
}

func optionsEqual(a, b map[string]string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return maps.Equal(a, b)
}

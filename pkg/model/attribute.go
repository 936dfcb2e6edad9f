package model

import (
	"github.com/attrhub/attrhub-go/pkg/types"
)

// Access flags for attributes.
type Access uint8

const (
	// AccessRead allows reading the attribute.
	AccessRead Access = 1 << iota

	// AccessWrite allows writing the attribute.
	AccessWrite

	// Common access combinations.

	// AccessReadOnly allows reading only.
	AccessReadOnly = AccessRead

	// AccessWriteOnly allows writing only.
	AccessWriteOnly = AccessWrite

	// AccessReadWrite allows reading and writing.
	AccessReadWrite = AccessRead | AccessWrite
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if s == "" {
		return "-"
	}
	return s
}

// ParseAccess parses "r", "w" or "rw" (case-insensitive, any order).
// An empty string means read-write.
func ParseAccess(s string) (Access, bool) {
	if s == "" {
		return AccessReadWrite, true
	}
	var a Access
	for _, c := range s {
		switch c {
		case 'r', 'R':
			a |= AccessRead
		case 'w', 'W':
			a |= AccessWrite
		default:
			return 0, false
		}
	}
	return a, true
}

// Attribute is the metadata of one connected attribute of a resource.
//
// An Attribute is created by a connector when it connects an attribute
// and is never modified afterwards. A configuration change produces a
// new Attribute after the old one has been disconnected.
type Attribute struct {
	resource   string
	id         string
	descriptor *Descriptor
	converter  types.Converter
	binding    any
}

// NewAttribute creates attribute metadata. The converter is resolved from
// the descriptor's declared type. Binding carries the connector's handle
// for the attribute and is opaque to everything but the connector.
func NewAttribute(resource, id string, d *Descriptor, binding any) *Attribute {
	return &Attribute{
		resource:   resource,
		id:         id,
		descriptor: d,
		converter:  types.ConverterFor(d.Type()),
		binding:    binding,
	}
}

// Resource returns the owning resource name.
func (a *Attribute) Resource() string { return a.resource }

// ID returns the attribute identifier, unique within the resource.
func (a *Attribute) ID() string { return a.id }

// Name returns the resource-side attribute name.
func (a *Attribute) Name() string {
	if n := a.descriptor.Name(); n != "" {
		return n
	}
	return a.id
}

// Descriptor returns the configuration the attribute was connected with.
func (a *Attribute) Descriptor() *Descriptor { return a.descriptor }

// Type returns the declared type.
func (a *Attribute) Type() types.Type { return a.descriptor.Type() }

// Converter returns the shared converter for the declared type.
func (a *Attribute) Converter() types.Converter { return a.converter }

// Access returns the access flags.
func (a *Attribute) Access() Access { return a.descriptor.Access() }

// Binding returns the connector handle.
func (a *Attribute) Binding() any { return a.binding }

// Package model defines attribute descriptors and attribute metadata.
//
// # Descriptors
//
// A Descriptor is the immutable configuration of an attribute: resource-side
// name, declared type, access flags, read/write timeout, unit, description
// and free-form options. Descriptors are compared by full-field equality;
// a changed configuration is a new Descriptor.
//
//	d := model.NewDescriptor("power",
//	    model.WithType(types.Float64),
//	    model.WithUnit("W"),
//	    model.WithTimeout(2*time.Second),
//	    model.WithAccess(model.AccessReadOnly),
//	)
//
// # Attributes
//
// An Attribute binds a descriptor to a resource under an attribute ID. It is
// produced by a connector when the attribute is connected and carries the
// shared converter for the declared type and the connector's own binding.
// Attributes are never modified; reconfiguration disconnects the old
// attribute and connects a new one.
//
// # Access Control
//
// Attributes have access flags:
//   - Read: Can be read
//   - Write: Can be written
package model

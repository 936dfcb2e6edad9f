// Package memory provides an in-process connector that keeps attribute
// values in memory.
//
// Values outlive individual connections: an attribute that is removed and
// added again, for example after a configuration reload, keeps its value
// as long as it still converts to the new declared type. Attributes
// marked distributed get a binding that takes and applies cluster
// snapshots.
package memory

package log

import (
	"time"
)

// Event is one entry of the activity trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Resource names the resource that owns the attribute.
	Resource string `cbor:"2,keyasint"`

	// Attribute is the attribute ID (empty for resource-wide events).
	Attribute string `cbor:"3,keyasint,omitempty"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Node is the cluster node that produced the event, if known.
	Node string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Lifecycle *LifecycleEvent `cbor:"10,keyasint,omitempty"`
	Access    *AccessEvent    `cbor:"11,keyasint,omitempty"`
	Sync      *SyncEvent      `cbor:"12,keyasint,omitempty"`
	Error     *ErrorEventData `cbor:"13,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryLifecycle indicates a structural change of the repository.
	CategoryLifecycle Category = 0
	// CategoryAccess indicates a value read or write.
	CategoryAccess Category = 1
	// CategorySync indicates cluster snapshot traffic.
	CategorySync Category = 2
	// CategoryError indicates a failure.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryAccess:
		return "ACCESS"
	case CategorySync:
		return "SYNC"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LifecycleEvent captures an attribute entering or leaving the repository.
type LifecycleEvent struct {
	// Stage of the lifecycle transition.
	Stage LifecycleStage `cbor:"1,keyasint"`

	// Type is the declared type signature.
	Type string `cbor:"2,keyasint,omitempty"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// LifecycleStage indicates which transition happened.
type LifecycleStage uint8

const (
	// StageAdded indicates the attribute was connected and registered.
	StageAdded LifecycleStage = 0
	// StageRemoving indicates the attribute is about to be removed.
	StageRemoving LifecycleStage = 1
	// StageRemoved indicates the attribute was removed and disconnected.
	StageRemoved LifecycleStage = 2
)

// String returns the stage name.
func (s LifecycleStage) String() string {
	switch s {
	case StageAdded:
		return "ADDED"
	case StageRemoving:
		return "REMOVING"
	case StageRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// AccessEvent captures one value access.
type AccessEvent struct {
	// Op is the kind of access.
	Op AccessOp `cbor:"1,keyasint"`

	// Duration is how long the connector call took.
	// Stored as nanoseconds.
	Duration time.Duration `cbor:"2,keyasint,omitempty"`

	// Failed indicates the access did not succeed.
	Failed bool `cbor:"3,keyasint,omitempty"`
}

// AccessOp distinguishes reads from writes.
type AccessOp uint8

const (
	// AccessRead indicates a value read.
	AccessRead AccessOp = 0
	// AccessWrite indicates a value write.
	AccessWrite AccessOp = 1
)

// String returns the access operation name.
func (o AccessOp) String() string {
	switch o {
	case AccessRead:
		return "READ"
	case AccessWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// SyncEvent captures snapshot traffic.
type SyncEvent struct {
	// Direction indicates whether the snapshot was sent or received.
	Direction Direction `cbor:"1,keyasint"`

	// Size is the encoded snapshot size in bytes.
	Size int `cbor:"2,keyasint,omitempty"`
}

// Direction indicates the direction of snapshot flow.
type Direction uint8

const (
	// DirectionIn indicates a snapshot applied from the cluster.
	DirectionIn Direction = 0
	// DirectionOut indicates a snapshot published to the cluster.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures a failure.
type ErrorEventData struct {
	// Op describes what operation was being performed.
	Op string `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`
}

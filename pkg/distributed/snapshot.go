package distributed

import (
	"errors"
	"fmt"
	"time"

	"github.com/attrhub/attrhub-go/pkg/wire"
)

// ErrInvalidSnapshot is returned when a payload is not a snapshot.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot carries the mutable runtime state of one attribute.
type Snapshot struct {
	Resource  string          `cbor:"1,keyasint"`
	Attribute string          `cbor:"2,keyasint"`
	Node      string          `cbor:"3,keyasint,omitempty"`
	Taken     time.Time       `cbor:"4,keyasint"`
	State     wire.RawMessage `cbor:"5,keyasint"`
}

// Distributable is implemented by attribute bindings whose state is
// replicated. TakeSnapshot returns false when there is nothing to share.
// ApplySnapshot must tolerate snapshots it produced itself.
type Distributable interface {
	TakeSnapshot() (state any, ok bool)
	ApplySnapshot(s *Snapshot) error
}

// NewSnapshot encodes state into a snapshot of resource/attribute.
func NewSnapshot(resource, attribute, node string, state any) (*Snapshot, error) {
	raw, err := wire.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot state: %w", err)
	}
	return &Snapshot{
		Resource:  resource,
		Attribute: attribute,
		Node:      node,
		Taken:     time.Now().UTC(),
		State:     raw,
	}, nil
}

// Decode decodes the carried state into v.
func (s *Snapshot) Decode(v any) error {
	if len(s.State) == 0 {
		return fmt.Errorf("%w: no state", ErrInvalidSnapshot)
	}
	return wire.Unmarshal(s.State, v)
}

// EncodeSnapshot encodes s for publishing.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return wire.Marshal(s)
}

// DecodeSnapshot decodes a published payload.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := wire.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if s.Attribute == "" {
		return nil, fmt.Errorf("%w: missing attribute", ErrInvalidSnapshot)
	}
	return &s, nil
}

// PeekResource returns the resource of an encoded snapshot without
// decoding its state.
func PeekResource(data []byte) (string, error) {
	var peek struct {
		Resource string `cbor:"1,keyasint"`
	}
	if err := wire.Unmarshal(data, &peek); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return peek.Resource, nil
}

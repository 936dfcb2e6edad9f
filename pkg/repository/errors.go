package repository

import (
	"context"
	"errors"
	"fmt"
)

// Repository errors.
var (
	ErrNotFound     = errors.New("attribute not found")
	ErrInvalidValue = errors.New("invalid value for attribute")
	ErrConnector    = errors.New("connector failure")
	ErrTimeout      = errors.New("timeout")
	ErrNotReadable  = errors.New("attribute is not readable")
	ErrNotWritable  = errors.New("attribute is not writable")
	ErrLockUpgrade  = errors.New("cannot upgrade read lock to write lock")
)

// Op names the repository operation that failed.
type Op string

const (
	OpAdd        Op = "add"
	OpRead       Op = "read"
	OpWrite      Op = "write"
	OpRemove     Op = "remove"
	OpDisconnect Op = "disconnect"
	OpDiscover   Op = "discover"
	OpLock       Op = "lock"
)

// AttributeError is the error returned by repository operations.
type AttributeError struct {
	Resource  string
	Attribute string
	Op        Op
	Err       error
}

func (e *AttributeError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("%s: %s: %v", e.Resource, e.Op, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s: %v", e.Resource, e.Attribute, e.Op, e.Err)
}

func (e *AttributeError) Unwrap() error { return e.Err }

// connectorError marks err as a connector failure. Deadline expiry is
// additionally reported as ErrTimeout.
func connectorError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", ErrConnector, ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrConnector, err)
}

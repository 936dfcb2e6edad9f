// Package repository manages the connected attributes of one resource.
//
// A Repository owns the attribute map of exactly one resource and
// delegates value access to a Connector. It provides add/remove/get/set
// by attribute ID, sequential and parallel bulk access, and lifecycle
// notifications consumed by accessors.
//
// # Locking
//
// Each repository has one timed reader/writer lock. Structural changes
// (Add, Remove, Retain, Clear, Expand, Reconcile) take the write lock;
// everything else takes the read lock. Acquisition gives up with
// ErrTimeout once the lock timeout or the context deadline expires.
//
// The lock is reentrant through the context: listeners receive a context
// that already holds the lock and may call back into the repository with
// it. Asking for the write lock while holding only the read lock fails
// with ErrLockUpgrade.
//
// # Errors
//
// Failures are returned as *AttributeError, which carries the resource,
// attribute and operation and unwraps to one of the sentinel errors:
//
//	v, err := repo.GetValue(ctx, "temperature")
//	if errors.Is(err, repository.ErrNotFound) {
//	    // unknown attribute
//	}
//
// Bulk operations skip attributes that fail and return the rest.
package repository

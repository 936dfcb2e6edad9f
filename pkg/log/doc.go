// Package log provides a structured activity trace for attribute repositories.
//
// This package defines the Logger interface and Event types for capturing
// attribute lifecycle changes, value access, cluster synchronization and
// failures. It is separate from operational logging (slog): the activity
// trace is a machine-readable record of what happened to which attribute.
//
// # Basic Usage
//
// Repositories accept a Logger:
//
//	// For development: log to console via slog
//	repository.WithEventLogger(log.NewSlogAdapter(slog.Default()))
//
//	// For production: append to a binary file
//	fl, _ := log.NewFileLogger("/var/log/attrhub/pump.alog")
//	repository.WithEventLogger(fl)
//
//	// Both: use MultiLogger
//	repository.WithEventLogger(log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fl,
//	))
//
// # Event Types
//
// Every event names its resource and, where applicable, its attribute:
//   - Lifecycle: attribute added, removing, removed (LifecycleEvent)
//   - Access: value read or written (AccessEvent)
//   - Sync: snapshot published or applied (SyncEvent)
//   - Error: a failure at the point it was wrapped (ErrorEventData)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events. Reader iterates a file
// with an optional Filter.
package log

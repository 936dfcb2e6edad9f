// Package logfields defines canonical slog attributes shared by all packages.
package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyResource   = "resource"
	KeyAttribute  = "attribute"
	KeyOperation  = "op"
	KeyChannel    = "channel"
	KeyNode       = "node"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Resource(name string) slog.Attr   { return slog.String(KeyResource, name) }
func Attribute(id string) slog.Attr    { return slog.String(KeyAttribute, id) }
func Operation(op string) slog.Attr    { return slog.String(KeyOperation, op) }
func Channel(name string) slog.Attr    { return slog.String(KeyChannel, name) }
func Node(id string) slog.Attr         { return slog.String(KeyNode, id) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d)/float64(time.Millisecond))
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

package log

import (
	"context"
	"log/slog"

	"github.com/attrhub/attrhub-go/pkg/logfields"
)

// SlogAdapter writes activity events to an slog.Logger.
// Useful for development when you want to see the trace in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event at Debug level, or Warn for error events.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		logfields.Resource(event.Resource),
		slog.String("category", event.Category.String()),
	}
	if event.Attribute != "" {
		attrs = append(attrs, logfields.Attribute(event.Attribute))
	}
	if event.Node != "" {
		attrs = append(attrs, logfields.Node(event.Node))
	}

	level := slog.LevelDebug
	switch {
	case event.Lifecycle != nil:
		attrs = append(attrs, slog.String("stage", event.Lifecycle.Stage.String()))
		if event.Lifecycle.Type != "" {
			attrs = append(attrs, slog.String("type", event.Lifecycle.Type))
		}
		if event.Lifecycle.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Lifecycle.Reason))
		}
	case event.Access != nil:
		attrs = append(attrs,
			logfields.Operation(event.Access.Op.String()),
			logfields.Duration(event.Access.Duration),
			slog.Bool("failed", event.Access.Failed),
		)
	case event.Sync != nil:
		attrs = append(attrs,
			slog.String("direction", event.Sync.Direction.String()),
			slog.Int("size", event.Sync.Size),
		)
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			logfields.Operation(event.Error.Op),
			slog.String(logfields.KeyError, event.Error.Message),
		)
	}

	a.logger.LogAttrs(context.Background(), level, "activity", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)

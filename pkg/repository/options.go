package repository

import (
	"log/slog"
	"time"

	"github.com/attrhub/attrhub-go/pkg/log"
	"github.com/attrhub/attrhub-go/pkg/metrics"
)

// DefaultLockTimeout bounds lock acquisition when no other limit is set.
const DefaultLockTimeout = 30 * time.Second

type options struct {
	logger      *slog.Logger
	events      log.Logger
	recorder    metrics.Recorder
	lockTimeout time.Duration
}

// Option configures a Repository.
type Option func(*options)

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEventLogger sets the activity trace. Defaults to log.NoopLogger.
func WithEventLogger(l log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.events = l
		}
	}
}

// WithRecorder sets the metrics recorder. Defaults to metrics.NoopRecorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLockTimeout bounds how long an operation waits for the repository
// lock. Zero waits until the context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		events:      log.NoopLogger{},
		recorder:    metrics.NoopRecorder{},
		lockTimeout: DefaultLockTimeout,
	}
}

package metrics

import "time"

// ResultLabel enumerates access result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultTimeout ResultLabel = "timeout"
)

// SnapshotOutcome enumerates what happened to a snapshot.
type SnapshotOutcome string

const (
	SnapshotPublished SnapshotOutcome = "published"
	SnapshotApplied   SnapshotOutcome = "applied"
	SnapshotSkipped   SnapshotOutcome = "skipped"
	SnapshotFailed    SnapshotOutcome = "failed"
)

// Recorder defines observability hooks for repository access and cluster
// sync. Implementations may forward to Prometheus or similar.
type Recorder interface {
	IncAttributeRead(resource, attribute string, result ResultLabel)
	IncAttributeWrite(resource, attribute string, result ResultLabel)
	ObserveBulkDuration(resource, op string, d time.Duration)
	IncSnapshot(resource string, outcome SnapshotOutcome)
	SetAttributeCount(resource string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncAttributeRead(string, string, ResultLabel)       {}
func (NoopRecorder) IncAttributeWrite(string, string, ResultLabel)      {}
func (NoopRecorder) ObserveBulkDuration(string, string, time.Duration) {}
func (NoopRecorder) IncSnapshot(string, SnapshotOutcome)                {}
func (NoopRecorder) SetAttributeCount(string, int)                      {}

var _ Recorder = NoopRecorder{}

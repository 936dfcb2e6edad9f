// Package metrics provides attribute access counters and a pluggable
// Recorder for exporting repository and cluster sync metrics.
//
// AttributeMetrics are always kept, one per attribute and one per
// repository. A Recorder is optional; NoopRecorder is used when metrics
// export is not configured, PrometheusRecorder otherwise.
package metrics

package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attrhub"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reads        *prom.CounterVec
	writes       *prom.CounterVec
	bulkDuration *prom.HistogramVec
	snapshots    *prom.CounterVec
	attributes   *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "attribute_reads_total",
			Help:      "Attribute value reads by result",
		}, []string{"resource", "attribute", "result"}),
		writes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "attribute_writes_total",
			Help:      "Attribute value writes by result",
		}, []string{"resource", "attribute", "result"}),
		bulkDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "bulk_duration_seconds",
			Help:      "Duration of bulk get/set operations",
			Buckets:   prom.DefBuckets,
		}, []string{"resource", "op"}),
		snapshots: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Cluster snapshots by outcome",
		}, []string{"resource", "outcome"}),
		attributes: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "attributes",
			Help:      "Connected attributes per resource",
		}, []string{"resource"}),
	}
	reg.MustRegister(pr.reads, pr.writes, pr.bulkDuration, pr.snapshots, pr.attributes)
	return pr
}

func (p *PrometheusRecorder) IncAttributeRead(resource, attribute string, result ResultLabel) {
	if p == nil || p.reads == nil {
		return
	}
	p.reads.WithLabelValues(resource, attribute, string(result)).Inc()
}

func (p *PrometheusRecorder) IncAttributeWrite(resource, attribute string, result ResultLabel) {
	if p == nil || p.writes == nil {
		return
	}
	p.writes.WithLabelValues(resource, attribute, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBulkDuration(resource, op string, d time.Duration) {
	if p == nil || p.bulkDuration == nil {
		return
	}
	p.bulkDuration.WithLabelValues(resource, op).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSnapshot(resource string, outcome SnapshotOutcome) {
	if p == nil || p.snapshots == nil {
		return
	}
	p.snapshots.WithLabelValues(resource, string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetAttributeCount(resource string, n int) {
	if p == nil || p.attributes == nil {
		return
	}
	p.attributes.WithLabelValues(resource).Set(float64(n))
}

var _ Recorder = (*PrometheusRecorder)(nil)

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeMetricsConcurrent(t *testing.T) {
	var m AttributeMetrics
	assert.True(t, m.LastRead().IsZero())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.MarkRead()
				m.MarkWrite()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1000), m.Reads())
	assert.Equal(t, uint64(1000), m.Writes())
	assert.WithinDuration(t, time.Now(), m.LastRead(), time.Second)
	assert.WithinDuration(t, time.Now(), m.LastWrite(), time.Second)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncAttributeRead("plc", "temp", ResultSuccess)
	pr.IncAttributeRead("plc", "temp", ResultSuccess)
	pr.IncAttributeWrite("plc", "temp", ResultFailed)
	pr.ObserveBulkDuration("plc", "get_values", 20*time.Millisecond)
	pr.IncSnapshot("plc", SnapshotPublished)
	pr.SetAttributeCount("plc", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.reads.WithLabelValues("plc", "temp", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.writes.WithLabelValues("plc", "temp", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.snapshots.WithLabelValues("plc", "published")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pr.attributes.WithLabelValues("plc")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncAttributeRead("r", "a", ResultSuccess)
		pr.IncSnapshot("r", SnapshotApplied)
		pr.SetAttributeCount("r", 1)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncSnapshot("plc", SnapshotApplied)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "attrhub_snapshots_total"))
}

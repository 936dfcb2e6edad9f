package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrhub/attrhub-go/pkg/config"
	"github.com/attrhub/attrhub-go/pkg/log"
)

func TestParseCategory(t *testing.T) {
	c, err := parseCategory("sync")
	require.NoError(t, err)
	assert.Equal(t, log.CategorySync, c)

	c, err = parseCategory("LIFECYCLE")
	require.NoError(t, err)
	assert.Equal(t, log.CategoryLifecycle, c)

	_, err = parseCategory("frames")
	assert.Error(t, err)
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		event log.Event
		want  string
	}{
		{
			name: "Access",
			event: log.Event{
				Timestamp: ts, Resource: "pump", Attribute: "speed", Category: log.CategoryAccess,
				Access: &log.AccessEvent{Op: log.AccessWrite, Duration: 3 * time.Millisecond, Failed: true},
			},
			want: "2024-03-01T12:00:00.000000Z ACCESS    pump/speed WRITE 3ms FAILED\n",
		},
		{
			name: "Sync",
			event: log.Event{
				Timestamp: ts, Resource: "pump", Attribute: "speed", Category: log.CategorySync, Node: "n1",
				Sync: &log.SyncEvent{Direction: log.DirectionOut, Size: 42},
			},
			want: "2024-03-01T12:00:00.000000Z SYNC      pump/speed OUT 42B node=n1\n",
		},
		{
			name: "Lifecycle",
			event: log.Event{
				Timestamp: ts, Resource: "pump", Attribute: "speed", Category: log.CategoryLifecycle,
				Lifecycle: &log.LifecycleEvent{Stage: log.StageRemoving, Reason: "replaced"},
			},
			want: "2024-03-01T12:00:00.000000Z LIFECYCLE pump/speed REMOVING reason=\"replaced\"\n",
		},
		{
			name: "ResourceError",
			event: log.Event{
				Timestamp: ts, Resource: "pump", Category: log.CategoryError,
				Error: &log.ErrorEventData{Op: "discover", Message: "offline"},
			},
			want: "2024-03-01T12:00:00.000000Z ERROR     pump discover: offline\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatEvent(&buf, tt.event)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrintSummary(t *testing.T) {
	cfg, err := config.Parse([]byte(`
resources:
  - name: boiler
    distributed: true
    attributes:
      temp: {type: float64, access: r}
      probe: {type: string, hidden: true, distributed: false}
`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, cfg))
	out := buf.String()
	assert.Contains(t, out, "node:    (random)")
	assert.Contains(t, out, "cluster: local")
	assert.Contains(t, out, "resource boiler (memory, lock timeout 30s)")
	assert.Regexp(t, `probe\s+RW\s+string hidden\n`, out)
	assert.Regexp(t, `temp\s+R\s+float64 distributed\n`, out)
}

func TestOpenEvents(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	l, closeFn, err := openEvents(config.EventsConfig{}, logger)
	require.NoError(t, err)
	assert.IsType(t, log.NoopLogger{}, l)
	closeFn()

	path := filepath.Join(t.TempDir(), "trace.alog")
	l, closeFn, err = openEvents(config.EventsConfig{File: path, Console: true}, logger)
	require.NoError(t, err)
	assert.IsType(t, &log.MultiLogger{}, l)
	l.Log(log.Event{Timestamp: time.Now(), Resource: "r", Category: log.CategoryAccess})
	closeFn()

	r, err := log.NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "r", ev.Resource)
}

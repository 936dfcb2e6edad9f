package log

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC),
		Resource:  "plc",
		Attribute: "temp",
		Category:  CategoryAccess,
		Node:      "node-a",
		Access:    &AccessEvent{Op: AccessWrite, Duration: 3 * time.Millisecond, Failed: true},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, event.Timestamp)
	}
	if decoded.Resource != "plc" || decoded.Attribute != "temp" || decoded.Node != "node-a" {
		t.Errorf("identifiers mismatch: %+v", decoded)
	}
	if decoded.Access == nil {
		t.Fatal("Access is nil")
	}
	if *decoded.Access != *event.Access {
		t.Errorf("Access: got %+v, want %+v", *decoded.Access, *event.Access)
	}
	if decoded.Lifecycle != nil || decoded.Sync != nil || decoded.Error != nil {
		t.Error("unset payloads should stay nil")
	}
}

func TestCategoryStrings(t *testing.T) {
	tests := map[Category]string{
		CategoryLifecycle: "LIFECYCLE",
		CategoryAccess:    "ACCESS",
		CategorySync:      "SYNC",
		CategoryError:     "ERROR",
		Category(42):      "UNKNOWN",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("Category(%d).String() = %q, want %q", c, got, want)
		}
	}
	if StageRemoving.String() != "REMOVING" || DirectionOut.String() != "OUT" || AccessRead.String() != "READ" {
		t.Error("unexpected enum names")
	}
}

func writeEvents(t *testing.T, path string, events ...Event) {
	t.Helper()
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		l.Log(e)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	defer r.Close()
	var out []Event
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, e)
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.alog")
	base := time.Now().UTC()

	writeEvents(t, path,
		Event{Timestamp: base, Resource: "a", Attribute: "x", Category: CategoryLifecycle,
			Lifecycle: &LifecycleEvent{Stage: StageAdded, Type: "int32"}},
		Event{Timestamp: base.Add(time.Second), Resource: "a", Attribute: "y", Category: CategoryAccess,
			Access: &AccessEvent{Op: AccessRead}},
	)
	// Reopening appends.
	writeEvents(t, path,
		Event{Timestamp: base.Add(2 * time.Second), Resource: "b", Category: CategorySync,
			Sync: &SyncEvent{Direction: DirectionOut, Size: 12}},
	)

	t.Run("All", func(t *testing.T) {
		r, err := NewReader(path)
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		if got := readAll(t, r); len(got) != 3 {
			t.Errorf("read %d events, want 3", len(got))
		}
	})

	t.Run("ByResource", func(t *testing.T) {
		r, err := NewFilteredReader(path, Filter{Resource: "a"})
		if err != nil {
			t.Fatalf("NewFilteredReader failed: %v", err)
		}
		if got := readAll(t, r); len(got) != 2 {
			t.Errorf("read %d events, want 2", len(got))
		}
	})

	t.Run("ByCategoryAndAttribute", func(t *testing.T) {
		cat := CategoryAccess
		r, err := NewFilteredReader(path, Filter{Category: &cat, Attribute: "y"})
		if err != nil {
			t.Fatalf("NewFilteredReader failed: %v", err)
		}
		got := readAll(t, r)
		if len(got) != 1 || got[0].Access == nil {
			t.Fatalf("unexpected events %+v", got)
		}
	})

	t.Run("ByTimeWindow", func(t *testing.T) {
		start := base.Add(time.Second)
		end := base.Add(2 * time.Second)
		r, err := NewFilteredReader(path, Filter{TimeStart: &start, TimeEnd: &end})
		if err != nil {
			t.Fatalf("NewFilteredReader failed: %v", err)
		}
		got := readAll(t, r)
		if len(got) != 1 || got[0].Attribute != "y" {
			t.Fatalf("unexpected events %+v", got)
		}
	})
}

func TestFileLoggerConcurrentAndClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.alog")
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				l.Log(Event{Timestamp: time.Now(), Resource: "r", Category: CategoryAccess})
			}
		}()
	}
	wg.Wait()
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	l.Log(Event{Resource: "after-close"})

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if got := readAll(t, r); len(got) != 80 {
		t.Errorf("read %d events, want 80", len(got))
	}
}

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestMultiLogger(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b, NoopLogger{})
	m.Log(Event{Resource: "r"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out failed: a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := NewSlogAdapter(logger)

	a.Log(Event{Resource: "plc", Attribute: "temp", Category: CategoryLifecycle,
		Lifecycle: &LifecycleEvent{Stage: StageRemoved, Reason: "reconfigured"}})
	a.Log(Event{Resource: "plc", Category: CategoryError,
		Error: &ErrorEventData{Op: "write", Message: "boom"}})

	out := buf.String()
	for _, want := range []string{"resource=plc", "attribute=temp", "stage=REMOVED", "reason=reconfigured", "level=WARN", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

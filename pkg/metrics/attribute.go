package metrics

import (
	"sync/atomic"
	"time"
)

// AttributeMetrics counts value accesses. The zero value is ready to use
// and all methods are safe for concurrent use.
type AttributeMetrics struct {
	reads     atomic.Uint64
	writes    atomic.Uint64
	lastRead  atomic.Int64
	lastWrite atomic.Int64
}

// MarkRead records one read attempt.
func (m *AttributeMetrics) MarkRead() {
	m.reads.Add(1)
	m.lastRead.Store(time.Now().UnixNano())
}

// MarkWrite records one write attempt.
func (m *AttributeMetrics) MarkWrite() {
	m.writes.Add(1)
	m.lastWrite.Store(time.Now().UnixNano())
}

// Reads returns the number of read attempts.
func (m *AttributeMetrics) Reads() uint64 { return m.reads.Load() }

// Writes returns the number of write attempts.
func (m *AttributeMetrics) Writes() uint64 { return m.writes.Load() }

// LastRead returns the time of the last read, or the zero time.
func (m *AttributeMetrics) LastRead() time.Time { return unixNano(m.lastRead.Load()) }

// LastWrite returns the time of the last write, or the zero time.
func (m *AttributeMetrics) LastWrite() time.Time { return unixNano(m.lastWrite.Load()) }

func unixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrhub/attrhub-go/pkg/executor"
	"github.com/attrhub/attrhub-go/pkg/model"
)

func newBulkRepo(t *testing.T, mc *memConnector, ids ...string) *Repository {
	t.Helper()
	r := New("res", mc)
	for _, id := range ids {
		_, err := r.Add(context.Background(), id, intDesc())
		require.NoError(t, err)
	}
	return r
}

func TestGetValuesSkipsFailures(t *testing.T) {
	mc := newMemConnector()
	mc.values = map[string]any{"a1": int64(1), "a2": int64(2), "a3": int64(3)}
	mc.fail["a2"] = true
	r := newBulkRepo(t, mc, "a1", "a2", "a3")

	got, err := r.GetValues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a1": int64(1), "a3": int64(3)}, got)
}

func TestSetValuesSkipsFailures(t *testing.T) {
	mc := newMemConnector()
	mc.fail["a2"] = true
	r := newBulkRepo(t, mc, "a1", "a2", "a3")

	written, err := r.SetValues(context.Background(), map[string]any{
		"a1":      7,
		"a2":      8,
		"a3":      "bad",
		"unknown": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a1": int64(7)}, written)
}

func TestGetValuesParallel(t *testing.T) {
	mc := newMemConnector()
	mc.values = map[string]any{"a": int64(1), "b": int64(2), "c": int64(3)}
	mc.fail["b"] = true
	r := newBulkRepo(t, mc, "a", "b", "c")

	got, err := r.GetValuesParallel(context.Background(), executor.Goroutine{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1), "c": int64(3)}, got)
}

func TestParallelTimeoutReturnsPartial(t *testing.T) {
	ctx := context.Background()
	mc := newMemConnector()
	r := newBulkRepo(t, mc, "fast", "slow")

	// The slow attribute's connector call outlives the bulk timeout.
	slow := make(chan struct{})
	defer close(slow)
	blocking := &blockingConnector{memConnector: mc, block: map[string]chan struct{}{"slow": slow}}
	r.connector = blocking

	start := time.Now()
	got, err := r.GetValuesParallel(ctx, executor.Goroutine{}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, got, "fast")
	assert.NotContains(t, got, "slow")
}

func TestSetValuesParallel(t *testing.T) {
	mc := newMemConnector()
	r := newBulkRepo(t, mc, "a", "b")

	written, err := r.SetValuesParallel(context.Background(), executor.NewPool(1),
		map[string]any{"a": 1, "b": "x"}, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1)}, written)
	assert.Equal(t, int64(1), mc.values["a"])
}

func TestParallelNoAttributes(t *testing.T) {
	r := New("res", newMemConnector())
	got, err := r.GetValuesParallel(context.Background(), executor.Inline{}, time.Second)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadsRunConcurrently(t *testing.T) {
	const n = 8
	const delay = 100 * time.Millisecond

	mc := newMemConnector()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	r := newBulkRepo(t, mc, ids...)
	mc.delay = delay

	start := time.Now()
	got, err := r.GetValuesParallel(context.Background(), executor.Goroutine{}, 0)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, got, n)
	// Serial execution would take n*delay.
	assert.Less(t, elapsed, time.Duration(n/2)*delay)
}

// blockingConnector blocks reads of selected attributes until released.
type blockingConnector struct {
	*memConnector
	block map[string]chan struct{}
}

func (b *blockingConnector) Read(ctx context.Context, a *model.Attribute) (any, error) {
	if ch, ok := b.block[a.ID()]; ok {
		<-ch
	}
	return b.memConnector.Read(ctx, a)
}

package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBusFanOut(t *testing.T) {
	ctx := context.Background()
	b := NewLocalBus()

	var a, c [][]byte
	subA, err := b.Subscribe("ch", nil, func(p []byte) { a = append(a, p) })
	require.NoError(t, err)
	_, err = b.Subscribe("ch", func(p []byte) bool { return string(p) != "skip" }, func(p []byte) { c = append(c, p) })
	require.NoError(t, err)
	_, err = b.Subscribe("other", nil, func([]byte) { t.Error("wrong channel delivered") })
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "ch", []byte("one")))
	require.NoError(t, b.Publish(ctx, "ch", []byte("skip")))
	assert.Len(t, a, 2)
	assert.Len(t, c, 1)

	require.NoError(t, subA.Unsubscribe())
	require.NoError(t, subA.Unsubscribe())
	require.NoError(t, b.Publish(ctx, "ch", []byte("two")))
	assert.Len(t, a, 2)
	assert.Len(t, c, 2)
}

func TestLocalBusClose(t *testing.T) {
	b := NewLocalBus()
	b.Close()
	assert.ErrorIs(t, b.Publish(context.Background(), "ch", nil), ErrClosed)
	_, err := b.Subscribe("ch", nil, func([]byte) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLocalBusCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewLocalBus().Publish(ctx, "ch", nil), context.Canceled)
}

func TestStaticMembership(t *testing.T) {
	m := NewStaticMembership(false)
	assert.False(t, m.IsActiveNode(context.Background()))
	m.SetActive(true)
	assert.True(t, m.IsActiveNode(context.Background()))
}

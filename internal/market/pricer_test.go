package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulated_StaysWithinSwing(t *testing.T) {
	base := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	const current = int64(10_000_000)

	for i := 0; i < 200; i++ {
		now := base.Add(time.Duration(i) * time.Second)
		p := NewSimulated(0, func() time.Time { return now })

		got, err := p.Price(context.Background(), int64(i), current)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, int64(9_000_000))
		assert.LessOrEqual(t, got, int64(11_000_000))
	}
}

func TestSimulated_Deterministic(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	p := NewSimulated(0.1, func() time.Time { return now })

	a, err := p.Price(context.Background(), 7, 5_000_000)
	require.NoError(t, err)
	b, err := p.Price(context.Background(), 7, 5_000_000)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSimulated_ZeroValue(t *testing.T) {
	got, err := NewSimulated(0, nil).Price(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestSimulated_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulated(0, nil).Price(ctx, 1, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

package aggregator

import (
	"context"
	"testing"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaySource_Run(t *testing.T) {
	candles := make([]model.Candle, 5)
	for i := range candles {
		start := boundary.Add(time.Duration(i) * 5 * time.Minute)
		candles[i] = candleAt("ltc-usd-file", start, start.Add(5*time.Minute))
	}
	r := NewReplaySource(symbol, candles, 0, logger.NewNop())
	rec := &recordingListener{}
	require.NoError(t, r.Subscribe(rec))
	assert.ErrorIs(t, r.Subscribe(nil), model.ErrValidation)

	n, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	got := rec.Candles()
	require.Len(t, got, 5)
	for i, c := range got {
		assert.Equal(t, symbol, c.Symbol)
		assert.Equal(t, candles[i].Time, c.Time)
	}
	assert.Equal(t, "ltc-usd-file", candles[0].Symbol, "input slice is not modified")
}

func TestReplaySource_Cancel(t *testing.T) {
	candles := make([]model.Candle, 100)
	for i := range candles {
		start := boundary.Add(time.Duration(i) * time.Minute)
		candles[i] = candleAt(symbol, start, start.Add(time.Minute))
	}
	r := NewReplaySource(symbol, candles, 10*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	n, err := r.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, n, 100)
	assert.Greater(t, n, 0)
}

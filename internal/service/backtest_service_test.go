package service

import (
	"context"
	"path/filepath"
	"testing"

	"golang-crossover/internal/dto"
	"golang-crossover/internal/model"
	"golang-crossover/pkg/cache"
	"golang-crossover/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBacktestService(t *testing.T) (BacktestService, cache.Cache) {
	t.Helper()
	c := cache.NewCache(0, 0)
	return NewBacktestService(testConfig(t), logger.NewNop(), newCandleRepo(), c), c
}

func TestBacktestService_RunBacktest(t *testing.T) {
	svc, c := newTestBacktestService(t)
	req := dto.BacktestRequest{File: fixturePath, Kind: "sma", AggPeriod: "5m", ShortWindow: 30, LongWindow: 90}

	result, err := svc.RunBacktest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, symbol, result.Symbol)
	assert.Equal(t, "sma", result.Kind)
	assert.Equal(t, 1000, result.Candles)
	assert.Equal(t, 20, result.Report.NumTrades)
	require.Len(t, result.Trades, 20)
	assert.Equal(t, "BUY", result.Trades[0].Side)
	assert.Equal(t, "SELL", result.Trades[19].Side)
	assert.Equal(t, "100", result.Report.StartPrice.String())
	assert.Equal(t, "91.67", result.Report.EndPrice.String())
	assert.Equal(t, "10000", result.Report.StartBalance.String())
	assert.Equal(t, 1, c.ItemCount())

	again, err := svc.RunBacktest(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, result, again)
}

func TestBacktestService_Defaults(t *testing.T) {
	svc, _ := newTestBacktestService(t)

	result, err := svc.RunBacktest(context.Background(), dto.BacktestRequest{File: fixturePath})
	require.NoError(t, err)
	assert.Equal(t, 30, result.ShortWindow)
	assert.Equal(t, 90, result.LongWindow)
	assert.Equal(t, "5m", result.AggPeriod)
	assert.Equal(t, 20, result.Report.NumTrades)
}

func TestBacktestService_ReplayMatchesSinglePass(t *testing.T) {
	svc, _ := newTestBacktestService(t)
	req := dto.BacktestRequest{File: fixturePath, Kind: "ema", AggPeriod: "15m", ShortWindow: 12, LongWindow: 26}

	bulk, err := svc.RunBacktest(context.Background(), req)
	require.NoError(t, err)
	replay, err := svc.ReplayBacktest(context.Background(), req, 0)
	require.NoError(t, err)

	assert.Equal(t, bulk.Report, replay.Report)
	assert.Equal(t, len(bulk.Trades), len(replay.Trades))
	assert.Equal(t, 334, replay.Candles)
}

func TestBacktestService_Fees(t *testing.T) {
	svc, _ := newTestBacktestService(t)
	req := dto.BacktestRequest{File: fixturePath, ShortWindow: 30, LongWindow: 90}

	free, err := svc.RunBacktest(context.Background(), req)
	require.NoError(t, err)
	req.FeeRate = "0.005"
	charged, err := svc.RunBacktest(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, charged.Report.EndBalance.LessThan(free.Report.EndBalance))
	assert.True(t, charged.Trades[0].Fee.IsPositive())
}

func TestBacktestService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.BacktestRequest
		wantErr error
	}{
		{
			name:    "one minute period",
			req:     dto.BacktestRequest{File: fixturePath, AggPeriod: "1m", ShortWindow: 30, LongWindow: 90},
			wantErr: model.ErrUnsupportedConfiguration,
		},
		{
			name:    "unknown kind",
			req:     dto.BacktestRequest{File: fixturePath, Kind: "rsi", ShortWindow: 30, LongWindow: 90},
			wantErr: model.ErrUnsupportedConfiguration,
		},
		{
			name:    "windows out of order",
			req:     dto.BacktestRequest{File: fixturePath, ShortWindow: 90, LongWindow: 30},
			wantErr: model.ErrValidation,
		},
		{
			name:    "symbol not in file",
			req:     dto.BacktestRequest{File: fixturePath, Symbol: "BTC-USD", ShortWindow: 30, LongWindow: 90},
			wantErr: model.ErrValidation,
		},
		{
			name:    "bad start cash",
			req:     dto.BacktestRequest{File: fixturePath, StartCash: "lots", ShortWindow: 30, LongWindow: 90},
			wantErr: model.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestBacktestService(t)
			_, err := svc.RunBacktest(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	svc, _ := newTestBacktestService(t)
	_, err := svc.RunBacktest(context.Background(), dto.BacktestRequest{File: filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, err)
}

package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang-crossover/internal/backtest"
	"golang-crossover/internal/model"
	"golang-crossover/internal/strategy"
	"golang-crossover/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLiveTrader(t *testing.T, repo *mockMarketData, notifier Notifier) *liveTrader {
	t.Helper()
	return NewLiveTrader(testConfig(t), logger.NewNop(), repo, notifier).(*liveTrader)
}

func singlePassCash(t *testing.T, candles []model.Candle) decimal.Decimal {
	t.Helper()
	h, err := backtest.NewHarness(backtest.Config{
		Strategy:  strategy.Config{Kind: strategy.KindSMA, Symbol: symbol, ShortWindow: 30, LongWindow: 90},
		Period:    model.AggPeriodFiveMinutes,
		StartCash: decimal.NewFromInt(10000),
	}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, h.BacktestSinglePass(context.Background(), candles))
	return h.Account().CashBalance()
}

func TestLiveSession_MatchesBacktest(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	lt := newTestLiveTrader(t, &mockMarketData{}, notifier)

	s, err := lt.newSession(ctx)
	require.NoError(t, err)

	candles := loadFixture(t)
	for _, c := range candles {
		require.NoError(t, s.OnCandle(ctx, c))
	}

	status, err := s.status()
	require.NoError(t, err)
	assert.Equal(t, 1000, status.Candles)
	assert.Equal(t, 20, status.Signals)
	assert.Equal(t, 20, status.NumTrades)
	assert.True(t, status.Shares.IsZero())
	assert.True(t, status.Cash.Equal(singlePassCash(t, candles)))
	assert.True(t, status.AccountValue.Equal(status.Cash))
	assert.Equal(t, "91.6748", status.LastPrice.String())
	require.NotNil(t, status.LastSignal)
	assert.Equal(t, "SELL", status.LastSignal.Kind)
	assert.False(t, status.Running)

	texts := notifier.Texts()
	require.Len(t, texts, 20)
	assert.Contains(t, texts[0], "[LTC-USD] BUY signal")
	assert.Contains(t, texts[1], "[LTC-USD] SELL signal")

	trades := s.trades()
	require.Len(t, trades, 20)
	assert.Equal(t, time.Date(2021, 1, 1, 8, 55, 0, 0, time.UTC), trades[0].Time)
}

func TestLiveSession_WarmUp(t *testing.T) {
	ctx := context.Background()
	candles := loadFixture(t)

	repo := &mockMarketData{}
	repo.On("HistoricRates", mock.Anything, symbol, mock.Anything, mock.Anything, model.AggPeriodFiveMinutes).
		Return(candles[:100], nil).Once()
	lt := newTestLiveTrader(t, repo, nil)
	lt.cfg.Live.WarmupPeriods = 100
	lt.now = func() time.Time { return time.Date(2021, 1, 1, 8, 22, 30, 0, time.UTC) }

	s, err := lt.newSession(ctx)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertCalled(t, "HistoricRates", mock.Anything, symbol,
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2021, 1, 1, 8, 20, 0, 0, time.UTC), model.AggPeriodFiveMinutes)

	assert.Equal(t, 100, s.model.Len())
	status, err := s.status()
	require.NoError(t, err)
	assert.Equal(t, 0, status.Candles)
	assert.Equal(t, 0, status.NumTrades)
	assert.True(t, status.LastPrice.Equal(candles[99].Close))

	for _, c := range candles[100:] {
		require.NoError(t, s.OnCandle(ctx, c))
	}
	status, err = s.status()
	require.NoError(t, err)
	assert.Equal(t, 900, status.Candles)
	assert.Equal(t, 20, status.NumTrades)
}

func TestLiveSession_WarmUpFailureIsNotFatal(t *testing.T) {
	repo := &mockMarketData{}
	repo.On("HistoricRates", mock.Anything, symbol, mock.Anything, mock.Anything, model.AggPeriodFiveMinutes).
		Return(nil, errors.New("unavailable"))
	lt := newTestLiveTrader(t, repo, nil)
	lt.cfg.Live.WarmupPeriods = 10

	s, err := lt.newSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.model.Len())
}

func TestLiveTrader_StartStop(t *testing.T) {
	repo := &mockMarketData{}
	repo.On("GenerateCandle", mock.Anything, symbol, mock.Anything, mock.Anything).
		Return(model.Candle{}, model.ErrNoData).Maybe()
	lt := newTestLiveTrader(t, repo, nil)

	_, err := lt.Status()
	assert.ErrorIs(t, err, model.ErrNoData)
	_, err = lt.Trades()
	assert.ErrorIs(t, err, model.ErrNoData)

	require.NoError(t, lt.Start(context.Background()))
	assert.True(t, lt.Running())
	assert.ErrorIs(t, lt.Start(context.Background()), model.ErrValidation)

	status, err := lt.Status()
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, "5m", status.AggPeriod)
	assert.NotEmpty(t, status.SessionID)

	lt.Stop()
	lt.Stop()
	assert.False(t, lt.Running())

	status, err = lt.Status()
	require.NoError(t, err)
	assert.False(t, status.Running)
	trades, err := lt.Trades()
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestLiveTrader_TickerSource(t *testing.T) {
	var polled atomic.Int32
	repo := &mockMarketData{}
	repo.On("Ticker", mock.Anything, symbol).
		Run(func(mock.Arguments) { polled.Add(1) }).
		Return(model.Tick{Time: time.Now().UTC(), Symbol: symbol, Price: decimal.NewFromInt(64)}, nil)
	lt := newTestLiveTrader(t, repo, nil)
	lt.cfg.Live.Source = "ticker"
	lt.cfg.Live.PollInterval = 10 * time.Millisecond

	require.NoError(t, lt.Start(context.Background()))
	assert.Eventually(t, func() bool { return polled.Load() > 0 }, time.Second, 10*time.Millisecond)
	lt.Stop()
	assert.False(t, lt.Running())
}

func TestLiveTrader_InvalidCron(t *testing.T) {
	lt := newTestLiveTrader(t, &mockMarketData{}, nil)
	lt.cfg.Live.StatusCron = "every now and then"

	assert.ErrorIs(t, lt.Start(context.Background()), model.ErrValidation)
	assert.False(t, lt.Running())
}

func TestLiveSession_ReportStatus(t *testing.T) {
	notifier := &recordingNotifier{}
	lt := newTestLiveTrader(t, &mockMarketData{}, notifier)
	s, err := lt.newSession(context.Background())
	require.NoError(t, err)

	s.reportStatus(context.Background())
	texts := notifier.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "📊 [LTC-USD] sma 5m status")
	assert.Contains(t, texts[0], "Cash: 10000")
}

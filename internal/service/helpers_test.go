package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang-crossover/config"
	"golang-crossover/internal/model"
	"golang-crossover/internal/repository"
	"golang-crossover/pkg/cache"
	"golang-crossover/pkg/logger"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	fixturePath = "../../testdata/candles_1000.csv"
	symbol      = "LTC-USD"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Live.Symbol = symbol
	cfg.Backtest.SweepConcurrency = 2
	return cfg
}

func newCandleRepo() repository.CandleFileRepository {
	return repository.NewCandleFileRepository(cache.NewCache(time.Minute, time.Minute), time.Minute, logger.NewNop())
}

func loadFixture(t *testing.T) []model.Candle {
	t.Helper()
	candles, err := newCandleRepo().Read(context.Background(), fixturePath)
	require.NoError(t, err)
	return candles
}

type mockMarketData struct {
	mock.Mock
}

func (m *mockMarketData) GenerateCandle(ctx context.Context, symbol string, start, end time.Time) (model.Candle, error) {
	args := m.Called(ctx, symbol, start, end)
	return args.Get(0).(model.Candle), args.Error(1)
}

func (m *mockMarketData) HistoricRates(ctx context.Context, symbol string, start, end time.Time, period model.AggPeriod) ([]model.Candle, error) {
	args := m.Called(ctx, symbol, start, end, period)
	candles, _ := args.Get(0).([]model.Candle)
	return candles, args.Error(1)
}

func (m *mockMarketData) Ticker(ctx context.Context, symbol string) (model.Tick, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(model.Tick), args.Error(1)
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

func (n *recordingNotifier) SendAsync(ctx context.Context, text string) {
	_ = n.Send(ctx, text)
}

func (n *recordingNotifier) Texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

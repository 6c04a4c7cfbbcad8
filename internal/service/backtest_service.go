package service

import (
	"context"
	"fmt"
	"time"

	"golang-crossover/config"
	"golang-crossover/internal/backtest"
	"golang-crossover/internal/dto"
	"golang-crossover/internal/ledger"
	"golang-crossover/internal/model"
	"golang-crossover/internal/repository"
	"golang-crossover/internal/strategy"
	"golang-crossover/pkg/cache"
	"golang-crossover/pkg/logger"

	"github.com/shopspring/decimal"
)

type BacktestService interface {
	// RunBacktest runs a single-pass backtest. Results are cached per request.
	RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error)
	// ReplayBacktest streams the file through the incremental model path instead.
	ReplayBacktest(ctx context.Context, req dto.BacktestRequest, delay time.Duration) (*dto.BacktestResult, error)
}

type backtestService struct {
	cfg        *config.Config
	log        *logger.Logger
	candleRepo repository.CandleFileRepository
	cache      cache.Cache
}

func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	candleRepo repository.CandleFileRepository,
	inmemoryCache cache.Cache,
) BacktestService {
	return &backtestService{
		cfg:        cfg,
		log:        log,
		candleRepo: candleRepo,
		cache:      inmemoryCache,
	}
}

func (s *backtestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error) {
	candles, err := s.candleRepo.Read(ctx, req.File)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read candles for backtest", logger.ErrorField(err), logger.StringField("file", req.File))
		return nil, err
	}
	req = applyBacktestDefaults(s.cfg, req, candles)

	key := req.CacheKey()
	if cached, ok := cache.GetFromCache[*dto.BacktestResult](s.cache, key); ok {
		s.log.DebugContext(ctx, "Backtest result served from cache", logger.StringField("key", key))
		return cached, nil
	}

	h, err := s.newHarness(req)
	if err != nil {
		return nil, err
	}
	if err := h.BacktestSinglePass(ctx, candles); err != nil {
		return nil, err
	}
	result, err := newBacktestResult(req, h)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, result, s.cfg.Cache.DefaultExpiration)
	return result, nil
}

func (s *backtestService) ReplayBacktest(ctx context.Context, req dto.BacktestRequest, delay time.Duration) (*dto.BacktestResult, error) {
	candles, err := s.candleRepo.Read(ctx, req.File)
	if err != nil {
		return nil, err
	}
	req = applyBacktestDefaults(s.cfg, req, candles)

	h, err := s.newHarness(req)
	if err != nil {
		return nil, err
	}
	if err := h.BacktestReplay(ctx, candles, delay); err != nil {
		return nil, err
	}
	return newBacktestResult(req, h)
}

func (s *backtestService) newHarness(req dto.BacktestRequest) (*backtest.Harness, error) {
	cfg, err := harnessConfig(s.cfg, req)
	if err != nil {
		return nil, err
	}
	return backtest.NewHarness(cfg, s.log)
}

// applyBacktestDefaults fills unset request fields from configuration. An empty symbol
// is taken from the candle file itself.
func applyBacktestDefaults(cfg *config.Config, req dto.BacktestRequest, candles []model.Candle) dto.BacktestRequest {
	if req.Symbol == "" && len(candles) > 0 {
		req.Symbol = candles[0].Symbol
	}
	if req.Kind == "" {
		req.Kind = cfg.Strategy.Kind
	}
	if req.AggPeriod == "" {
		req.AggPeriod = cfg.Backtest.AggPeriod
	}
	if req.ShortWindow == 0 && req.LongWindow == 0 {
		req.ShortWindow, req.LongWindow = cfg.Strategy.ShortWindow, cfg.Strategy.LongWindow
	}
	if req.StartCash == "" {
		req.StartCash = cfg.Backtest.StartCash
	}
	if req.FeeRate == "" {
		req.FeeRate = cfg.Backtest.FeeRate
	}
	return req
}

func harnessConfig(cfg *config.Config, req dto.BacktestRequest) (backtest.Config, error) {
	kind, err := strategy.ParseKind(req.Kind)
	if err != nil {
		return backtest.Config{}, err
	}
	period, err := model.ParseAggPeriod(req.AggPeriod)
	if err != nil {
		return backtest.Config{}, err
	}
	startCash, err := decimal.NewFromString(req.StartCash)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("%w: invalid start cash %q", model.ErrValidation, req.StartCash)
	}

	var feeModel ledger.FeeModel
	if req.FeeRate != "" {
		rate, err := decimal.NewFromString(req.FeeRate)
		if err != nil {
			return backtest.Config{}, fmt.Errorf("%w: invalid fee rate %q", model.ErrValidation, req.FeeRate)
		}
		if !rate.IsZero() {
			feeModel = ledger.PercentageFee{Rate: rate}
		}
	}

	return backtest.Config{
		Strategy: strategy.Config{
			Kind:        kind,
			Symbol:      req.Symbol,
			ShortWindow: req.ShortWindow,
			LongWindow:  req.LongWindow,
			MaxHistory:  cfg.Strategy.MaxHistory,
		},
		Period:          period,
		StartCash:       startCash,
		BuyFraction:     cfg.Backtest.BuyFractionDecimal(),
		FeeModel:        feeModel,
		LedgerPrecision: cfg.Backtest.LedgerPrecision,
		ReportPrecision: cfg.Backtest.ReportPrecision,
	}, nil
}

func newBacktestResult(req dto.BacktestRequest, h *backtest.Harness) (*dto.BacktestResult, error) {
	report, err := h.GenerateReport()
	if err != nil {
		return nil, err
	}
	return &dto.BacktestResult{
		Symbol:      req.Symbol,
		Kind:        h.Model().Kind().String(),
		AggPeriod:   req.AggPeriod,
		ShortWindow: req.ShortWindow,
		LongWindow:  req.LongWindow,
		Candles:     h.NumCandles(),
		Report:      toReportResult(report),
		Trades:      toTradeLogs(h.Account().Trades()),
	}, nil
}

func toReportResult(r backtest.Report) dto.ReportResult {
	return dto.ReportResult{
		StartPrice:   r.StartPrice,
		EndPrice:     r.EndPrice,
		PriceChange:  r.PriceChange,
		NumTrades:    r.NumTrades,
		StartBalance: r.StartBalance,
		EndBalance:   r.EndBalance,
		Gain:         r.Gain,
		Growth:       r.Growth,
	}
}

func toTradeLogs(trades []model.Trade) []dto.TradeLog {
	logs := make([]dto.TradeLog, len(trades))
	for i, t := range trades {
		logs[i] = dto.TradeLog{
			ID:     t.ID.String(),
			Time:   t.Time,
			Symbol: t.Symbol,
			Side:   t.Side.String(),
			Amount: t.Amount,
			Price:  t.Price,
			Fee:    t.Fee,
		}
	}
	return logs
}

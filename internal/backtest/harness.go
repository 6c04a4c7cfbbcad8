// Package backtest replays a crossover model's historical signals against a decimal
// account and summarises the outcome.
package backtest

import (
	"context"
	"fmt"
	"time"

	"golang-crossover/internal/aggregator"
	"golang-crossover/internal/ledger"
	"golang-crossover/internal/model"
	"golang-crossover/internal/strategy"
	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/precision"

	"github.com/shopspring/decimal"
)

// MinPeriod is the finest aggregation the harness accepts; input files are 5-minute candles.
const MinPeriod = model.AggPeriodFiveMinutes

type Config struct {
	Strategy        strategy.Config
	Period          model.AggPeriod
	StartCash       decimal.Decimal
	BuyFraction     decimal.Decimal
	FeeModel        ledger.FeeModel
	LedgerPrecision int
	ReportPrecision int
}

// Harness runs one single-pass backtest. Create a new Harness per run.
type Harness struct {
	cfg        Config
	log        *logger.Logger
	reportPrec precision.Context
	account    *ledger.Account
	executor   *SignalExecutor
	model      *strategy.Model

	ran        bool
	candles    int
	events     []model.SignalEvent
	startPrice decimal.Decimal
	endPrice   decimal.Decimal
}

func NewHarness(cfg Config, log *logger.Logger) (*Harness, error) {
	if !cfg.Period.IsValid() || cfg.Period < MinPeriod {
		return nil, fmt.Errorf("%w: minimum backtest period is %s, got %s", model.ErrUnsupportedConfiguration, MinPeriod, cfg.Period)
	}
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, err
	}
	if cfg.LedgerPrecision == 0 {
		cfg.LedgerPrecision = precision.DefaultLedgerDigits
	}
	if cfg.ReportPrecision == 0 {
		cfg.ReportPrecision = precision.DefaultReportDigits
	}
	if cfg.LedgerPrecision < precision.MinLedgerDigits {
		return nil, fmt.Errorf("%w: ledger precision must be at least %d digits", model.ErrValidation, precision.MinLedgerDigits)
	}
	if cfg.BuyFraction.IsZero() {
		cfg.BuyFraction = DefaultBuyFraction
	}
	ledgerPrec, err := precision.New(cfg.LedgerPrecision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	reportPrec, err := precision.New(cfg.ReportPrecision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	log = log.With(
		logger.StringField("symbol", cfg.Strategy.Symbol),
		logger.StringField("model", cfg.Strategy.Kind.String()),
		logger.IntField("short_window", cfg.Strategy.ShortWindow),
		logger.IntField("long_window", cfg.Strategy.LongWindow),
	)
	account, err := ledger.NewAccount(cfg.StartCash, ledger.WithPrecision(ledgerPrec), ledger.WithFeeModel(cfg.FeeModel))
	if err != nil {
		return nil, err
	}
	executor, err := NewSignalExecutor(account, cfg.BuyFraction, ledgerPrec, log)
	if err != nil {
		return nil, err
	}
	return &Harness{
		cfg:        cfg,
		log:        log,
		reportPrec: reportPrec,
		account:    account,
		executor:   executor,
	}, nil
}

func (h *Harness) Account() *ledger.Account {
	return h.account
}

// Model returns the signal model built by the last run, nil before BacktestSinglePass.
func (h *Harness) Model() *strategy.Model {
	return h.model
}

// NumCandles is the length of the resampled series the last run evaluated.
func (h *Harness) NumCandles() int {
	return h.candles
}

// Events returns the replayed signal events in time order.
func (h *Harness) Events() []model.SignalEvent {
	return append([]model.SignalEvent(nil), h.events...)
}

// BacktestSinglePass resamples candles to the configured period, loads them into a
// fresh model in bulk and replays the resulting signals against the account.
func (h *Harness) BacktestSinglePass(ctx context.Context, candles []model.Candle) error {
	series, m, err := h.prepare(candles)
	if err != nil {
		return err
	}
	if err := m.LoadHistory(series); err != nil {
		return err
	}

	events := m.HistoricalSignalEvents()
	h.log.DebugContext(ctx, "Replaying signal events",
		logger.IntField("candles", len(series)),
		logger.IntField("events", len(events)),
	)
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := h.executor.Execute(ctx, event); err != nil {
			return err
		}
	}
	h.finish(ctx, m, series, events)
	return nil
}

// BacktestReplay streams candles one by one through the incremental model path, the
// way a live aggregator would feed it, pausing delay between candles.
func (h *Harness) BacktestReplay(ctx context.Context, candles []model.Candle, delay time.Duration) error {
	series, m, err := h.prepare(candles)
	if err != nil {
		return err
	}

	var (
		events  []model.SignalEvent
		execErr error
	)
	err = m.Subscribe(strategy.SignalListenerFunc(func(ctx context.Context, event model.SignalEvent) {
		events = append(events, event)
		if execErr != nil {
			return
		}
		if _, err := h.executor.Execute(ctx, event); err != nil {
			execErr = err
		}
	}))
	if err != nil {
		return err
	}

	source := aggregator.NewReplaySource(h.cfg.Strategy.Symbol, series, delay, h.log)
	if err := source.Subscribe(m); err != nil {
		return err
	}
	if _, err := source.Run(ctx); err != nil {
		return err
	}
	if execErr != nil {
		return execErr
	}
	h.finish(ctx, m, series, events)
	return nil
}

func (h *Harness) prepare(candles []model.Candle) ([]model.Candle, *strategy.Model, error) {
	if h.ran {
		return nil, nil, fmt.Errorf("%w: harness already ran; create a new one", model.ErrValidation)
	}
	if len(candles) == 0 {
		return nil, nil, fmt.Errorf("%w: no candles to backtest", model.ErrNoData)
	}

	series := candles
	if h.cfg.Period > MinPeriod {
		var err error
		if series, err = Resample(candles, h.cfg.Period); err != nil {
			return nil, nil, err
		}
	}

	modelCfg := h.cfg.Strategy
	if modelCfg.MaxHistory < len(series) {
		modelCfg.MaxHistory = len(series)
	}
	m, err := strategy.NewModel(modelCfg, h.log)
	if err != nil {
		return nil, nil, err
	}
	return series, m, nil
}

func (h *Harness) finish(ctx context.Context, m *strategy.Model, series []model.Candle, events []model.SignalEvent) {
	h.ran = true
	h.model = m
	h.candles = len(series)
	h.events = events
	h.startPrice = series[0].Open
	h.endPrice = series[len(series)-1].Close

	h.log.InfoContext(ctx, "Backtest finished",
		logger.IntField("trades", h.account.NumTrades()),
		logger.DecimalField("cash", h.account.CashBalance()),
		logger.DecimalField("shares", h.account.Shares(h.cfg.Strategy.Symbol)),
	)
}

// GenerateReport summarises the run, with prices rounded to cents and every other
// figure rounded to the report precision.
func (h *Harness) GenerateReport() (Report, error) {
	if !h.ran {
		return Report{}, fmt.Errorf("%w: backtest has not run", model.ErrNoData)
	}
	p := h.reportPrec
	one := decimal.NewFromInt(1)

	startBal := p.Round(h.account.InitialCash())
	endBal, err := h.account.AccountValue(map[string]decimal.Decimal{h.cfg.Strategy.Symbol: h.endPrice})
	if err != nil {
		return Report{}, err
	}
	endBal = p.Round(endBal)

	r := Report{
		StartPrice:   h.startPrice.RoundBank(2),
		EndPrice:     h.endPrice.RoundBank(2),
		NumTrades:    h.account.NumTrades(),
		StartBalance: startBal,
		EndBalance:   endBal,
		Gain:         p.Sub(endBal, startBal),
		PriceChange:  decimal.Zero,
		Growth:       decimal.Zero,
	}
	if !h.startPrice.IsZero() {
		r.PriceChange = p.Sub(p.Div(h.endPrice, h.startPrice), one)
	}
	if !startBal.IsZero() {
		r.Growth = p.Sub(p.Div(endBal, startBal), one)
	}
	return r, nil
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-crossover/config"
	"golang-crossover/internal/aggregator"
	"golang-crossover/internal/backtest"
	"golang-crossover/internal/dto"
	"golang-crossover/internal/ledger"
	"golang-crossover/internal/model"
	"golang-crossover/internal/repository"
	"golang-crossover/internal/strategy"
	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/precision"
	"golang-crossover/pkg/telegram"
	"golang-crossover/pkg/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// LiveTrader runs one paper-trading session: an aggregator closes candles for the
// configured symbol, the model turns them into signals and every signal is applied
// to a decimal account through the same executor the backtest uses.
type LiveTrader interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	// Status and Trades describe the current or last session; ErrNoData before the first Start.
	Status() (dto.LiveStatus, error)
	Trades() ([]dto.TradeLog, error)
}

type liveTrader struct {
	cfg            *config.Config
	log            *logger.Logger
	marketDataRepo repository.MarketDataRepository
	notifier       Notifier
	now            func() time.Time

	mu      sync.Mutex
	session *liveSession
}

func NewLiveTrader(cfg *config.Config, log *logger.Logger, marketDataRepo repository.MarketDataRepository, notifier Notifier) LiveTrader {
	return &liveTrader{
		cfg:            cfg,
		log:            log,
		marketDataRepo: marketDataRepo,
		notifier:       notifier,
		now:            time.Now,
	}
}

// liveSession receives closed candles and the model's signals. mu serialises every
// account mutation.
type liveSession struct {
	id        uuid.UUID
	symbol    string
	kind      strategy.Kind
	period    model.AggPeriod
	startedAt time.Time
	log       *logger.Logger
	notifier  Notifier

	model      *strategy.Model
	executor   *backtest.SignalExecutor
	aggregator *aggregator.PeriodicAggregator
	scheduler  *cron.Cron
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	running    bool
	candles    int
	signals    int
	lastPrice  decimal.Decimal
	lastSignal *model.SignalEvent
}

func (t *liveTrader) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil && t.session.isRunning() {
		return fmt.Errorf("%w: live trader already running", model.ErrValidation)
	}
	s, err := t.newSession(ctx)
	if err != nil {
		return err
	}
	if err := t.startSession(ctx, s); err != nil {
		return err
	}
	t.session = s
	return nil
}

func (t *liveTrader) Stop() {
	t.mu.Lock()
	s := t.session
	t.mu.Unlock()
	if s != nil {
		s.stop()
	}
}

func (t *liveTrader) Running() bool {
	t.mu.Lock()
	s := t.session
	t.mu.Unlock()
	return s != nil && s.isRunning()
}

func (t *liveTrader) Status() (dto.LiveStatus, error) {
	t.mu.Lock()
	s := t.session
	t.mu.Unlock()
	if s == nil {
		return dto.LiveStatus{}, fmt.Errorf("%w: live trader has not been started", model.ErrNoData)
	}
	return s.status()
}

func (t *liveTrader) Trades() ([]dto.TradeLog, error) {
	t.mu.Lock()
	s := t.session
	t.mu.Unlock()
	if s == nil {
		return nil, fmt.Errorf("%w: live trader has not been started", model.ErrNoData)
	}
	return s.trades(), nil
}

// newSession builds the model, account and executor and loads warm-up history. Nothing
// runs until startSession.
func (t *liveTrader) newSession(ctx context.Context) (*liveSession, error) {
	live := t.cfg.Live
	period, err := model.ParseAggPeriod(live.AggPeriod)
	if err != nil {
		return nil, err
	}
	kind, err := strategy.ParseKind(t.cfg.Strategy.Kind)
	if err != nil {
		return nil, err
	}
	prec, err := precision.New(t.cfg.Backtest.LedgerPrecision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	id := uuid.New()
	log := t.log.With(
		logger.StringField("session_id", id.String()),
		logger.StringField("symbol", live.Symbol),
	)

	m, err := strategy.NewModel(strategy.Config{
		Kind:        kind,
		Symbol:      live.Symbol,
		ShortWindow: t.cfg.Strategy.ShortWindow,
		LongWindow:  t.cfg.Strategy.LongWindow,
		MaxHistory:  t.cfg.Strategy.MaxHistory,
	}, log)
	if err != nil {
		return nil, err
	}

	opts := []ledger.AccountOption{ledger.WithPrecision(prec)}
	if rate, ok := t.cfg.Backtest.FeeRateDecimal(); ok && !rate.IsZero() {
		opts = append(opts, ledger.WithFeeModel(ledger.PercentageFee{Rate: rate}))
	}
	account, err := ledger.NewAccount(live.StartCashDecimal(), opts...)
	if err != nil {
		return nil, err
	}
	executor, err := backtest.NewSignalExecutor(account, t.cfg.Backtest.BuyFractionDecimal(), prec, log)
	if err != nil {
		return nil, err
	}

	s := &liveSession{
		id:        id,
		symbol:    live.Symbol,
		kind:      kind,
		period:    period,
		startedAt: t.now().UTC(),
		log:       log,
		notifier:  t.notifier,
		model:     m,
		executor:  executor,
	}
	if err := m.Subscribe(s); err != nil {
		return nil, err
	}
	if live.WarmupPeriods > 0 {
		t.warmUp(ctx, s, live.WarmupPeriods)
	}
	return s, nil
}

// warmUp seeds the model with recent history so signals are available from the first
// live candle. Failures only cost the warm-up.
func (t *liveTrader) warmUp(ctx context.Context, s *liveSession, periods int) {
	end := t.now().UTC().Truncate(s.period.Duration())
	start := end.Add(-time.Duration(periods) * s.period.Duration())

	candles, err := t.marketDataRepo.HistoricRates(ctx, s.symbol, start, end, s.period)
	if err == nil {
		err = s.model.LoadHistory(candles)
	}
	if err != nil {
		s.log.WarnContext(ctx, "Warm-up skipped", logger.ErrorField(err))
		return
	}
	if n := len(candles); n > 0 {
		s.lastPrice = candles[n-1].Close
	}
	s.log.InfoContext(ctx, "Model warmed up", logger.IntField("candles", len(candles)))
}

func (t *liveTrader) startSession(ctx context.Context, s *liveSession) error {
	live := t.cfg.Live
	sessionCtx, cancel := context.WithCancel(ctx)

	var source aggregator.CandleSource = t.marketDataRepo
	var poller *TickPoller
	if live.Source == "ticker" {
		tickSource := aggregator.NewTickCandleSource(s.symbol, live.TickBufferSize, s.log)
		poller = NewTickPoller(s.symbol, live.PollInterval, t.marketDataRepo, tickSource, s.log)
		source = tickSource
	}

	agg, err := aggregator.New(s.symbol, s.period, source, s.log, aggregator.WithGraceDelay(live.GraceDelay))
	if err != nil {
		cancel()
		return err
	}
	if err := agg.Subscribe(s); err != nil {
		cancel()
		return err
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(live.StatusCron, func() { s.reportStatus(sessionCtx) }); err != nil {
		cancel()
		return fmt.Errorf("%w: invalid status cron %q: %v", model.ErrValidation, live.StatusCron, err)
	}

	if err := agg.Start(sessionCtx); err != nil {
		cancel()
		return err
	}
	scheduler.Start()
	if poller != nil {
		s.wg.Add(1)
		utils.GoSafe(func() {
			defer s.wg.Done()
			poller.Run(sessionCtx)
		})
	}

	s.mu.Lock()
	s.aggregator = agg
	s.scheduler = scheduler
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Live trader started",
		logger.StringField("model", s.kind.String()),
		logger.StringField("period", s.period.String()),
		logger.StringField("source", live.Source),
		logger.DecimalField("start_cash", s.executor.Account().InitialCash()),
	)
	return nil
}

func (s *liveSession) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *liveSession) stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	agg, scheduler, cancel := s.aggregator, s.scheduler, s.cancel
	s.mu.Unlock()

	cancel()
	agg.Stop()
	<-scheduler.Stop().Done()
	s.wg.Wait()
	s.log.Info("Live trader stopped")
}

// OnCandle records the closed candle and forwards it to the model.
func (s *liveSession) OnCandle(ctx context.Context, candle model.Candle) error {
	s.mu.Lock()
	s.candles++
	s.lastPrice = candle.Close
	s.mu.Unlock()

	s.log.DebugContext(ctx, "Candle closed",
		logger.TimeField("time", candle.Time),
		logger.DecimalField("close", candle.Close),
	)
	return s.model.OnCandle(ctx, candle)
}

// OnSignal applies the signal to the account and notifies about the outcome.
func (s *liveSession) OnSignal(ctx context.Context, event model.SignalEvent) {
	s.mu.Lock()
	s.signals++
	s.lastSignal = &event
	trade, err := s.executor.Execute(ctx, event)
	s.mu.Unlock()

	if err != nil {
		s.log.ErrorContext(ctx, "Failed to execute signal",
			logger.ErrorField(err),
			logger.StringField("event", event.String()),
			logger.AlertField(),
		)
		return
	}
	if trade != nil {
		s.log.InfoContext(ctx, "Trade executed",
			logger.StringField("trade_id", trade.ID.String()),
			logger.StringField("side", trade.Side.String()),
			logger.DecimalField("amount", trade.Amount),
			logger.DecimalField("price", trade.Price),
		)
	}
	if s.notifier != nil {
		s.notifier.SendAsync(ctx, telegram.FormatSignal(event, trade))
	}
}

func (s *liveSession) status() (dto.LiveStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.executor.Account()
	value, err := account.AccountValue(map[string]decimal.Decimal{s.symbol: s.lastPrice})
	if err != nil {
		return dto.LiveStatus{}, err
	}
	status := dto.LiveStatus{
		SessionID:    s.id.String(),
		Symbol:       s.symbol,
		Kind:         s.kind.String(),
		AggPeriod:    s.period.String(),
		Running:      s.running,
		StartedAt:    s.startedAt,
		Candles:      s.candles,
		Signals:      s.signals,
		NumTrades:    account.NumTrades(),
		Cash:         account.CashBalance(),
		Shares:       account.Shares(s.symbol),
		LastPrice:    s.lastPrice,
		AccountValue: value,
	}
	if s.lastSignal != nil {
		status.LastSignal = &dto.SignalLog{
			Time:  s.lastSignal.Time,
			Kind:  s.lastSignal.Kind.String(),
			Price: s.lastSignal.Price,
		}
	}
	return status, nil
}

func (s *liveSession) trades() []dto.TradeLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toTradeLogs(s.executor.Account().Trades())
}

func (s *liveSession) reportStatus(ctx context.Context) {
	status, err := s.status()
	if err != nil {
		s.log.WarnContext(ctx, "Failed to build live status", logger.ErrorField(err))
		return
	}
	s.log.InfoContext(ctx, "Live trader status",
		logger.IntField("candles", status.Candles),
		logger.IntField("signals", status.Signals),
		logger.IntField("trades", status.NumTrades),
		logger.DecimalField("cash", status.Cash),
		logger.DecimalField("shares", status.Shares),
		logger.DecimalField("account_value", status.AccountValue),
	)
	if s.notifier != nil {
		s.notifier.SendAsync(ctx, telegram.FormatStatus(status))
	}
}

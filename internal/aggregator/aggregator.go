// Package aggregator turns an external OHLC source into fixed-period candles delivered
// on a wall-clock schedule.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/pkg/logger"
)

const DefaultGraceDelay = time.Second

// CandleListener receives candles synchronously, in subscription order.
type CandleListener interface {
	OnCandle(ctx context.Context, candle model.Candle) error
}

// CandleSource produces the OHLC for the half-open interval [start, end).
type CandleSource interface {
	GenerateCandle(ctx context.Context, symbol string, start, end time.Time) (model.Candle, error)
}

type Option func(*PeriodicAggregator)

// WithClock replaces time.Now; the timer still runs on real time.
func WithClock(now func() time.Time) Option {
	return func(a *PeriodicAggregator) { a.now = now }
}

// WithGraceDelay sets how long after a period boundary the candle is requested.
func WithGraceDelay(d time.Duration) Option {
	return func(a *PeriodicAggregator) { a.grace = d }
}

// PeriodicAggregator asks its CandleSource for one candle per period, aligned to
// multiples of the period in UTC. Late timer callbacks catch up one period at a time;
// periods are never skipped or coalesced.
type PeriodicAggregator struct {
	symbol string
	period model.AggPeriod
	source CandleSource
	log    *logger.Logger
	now    func() time.Time
	grace  time.Duration

	mu          sync.Mutex
	running     bool
	generation  uint64
	timer       *time.Timer
	ctx         context.Context
	stopOnDone  func() bool
	periodStart time.Time
	periodEnd   time.Time
	listeners   []CandleListener
	// goroutine running the current delivery, 0 when idle
	deliverer uint64

	// held for the whole of a timer callback so Stop can wait for it
	deliverMu sync.Mutex
}

func New(symbol string, period model.AggPeriod, source CandleSource, log *logger.Logger, opts ...Option) (*PeriodicAggregator, error) {
	if !period.IsValid() {
		return nil, fmt.Errorf("%w: aggregation period %s", model.ErrUnsupportedConfiguration, period)
	}
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol must be non-empty", model.ErrValidation)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: candle source must not be nil", model.ErrValidation)
	}
	a := &PeriodicAggregator{
		symbol: symbol,
		period: period,
		source: source,
		log: log.With(
			logger.StringField("symbol", symbol),
			logger.StringField("period", period.String()),
		),
		now:   time.Now,
		grace: DefaultGraceDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *PeriodicAggregator) Symbol() string {
	return a.symbol
}

func (a *PeriodicAggregator) Period() model.AggPeriod {
	return a.period
}

func (a *PeriodicAggregator) Subscribe(listener CandleListener) error {
	if listener == nil {
		return fmt.Errorf("%w: candle listener must not be nil", model.ErrValidation)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, listener)
	return nil
}

// PeriodStart returns the start of the pending period, zero when stopped.
func (a *PeriodicAggregator) PeriodStart() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.periodStart
}

// PeriodEnd returns the end of the pending period, zero when stopped.
func (a *PeriodicAggregator) PeriodEnd() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.periodEnd
}

func (a *PeriodicAggregator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Start aligns the current period and arms the timer. Cancelling ctx stops the aggregator.
func (a *PeriodicAggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("%w: aggregator for %s already started", model.ErrValidation, a.symbol)
	}
	now := a.now().UTC()
	a.running = true
	a.generation++
	a.ctx = ctx
	a.periodStart = now.Truncate(a.period.Duration())
	a.periodEnd = a.periodStart.Add(a.period.Duration())
	a.arm(a.generation)
	a.stopOnDone = context.AfterFunc(ctx, a.Stop)

	a.log.InfoContext(ctx, "Aggregator started",
		logger.TimeField("period_start", a.periodStart),
		logger.TimeField("period_end", a.periodEnd),
	)
	return nil
}

// Stop cancels the pending timer and waits for an in-flight delivery to finish.
// No candle is delivered after Stop returns. It is safe to call from any goroutine,
// including a CandleListener; in that case the remaining listeners are skipped.
func (a *PeriodicAggregator) Stop() {
	a.mu.Lock()
	fromCallback := a.deliverer != 0 && a.deliverer == goroutineID()
	if a.running {
		a.running = false
		a.generation++
		if a.timer != nil {
			a.timer.Stop()
			a.timer = nil
		}
		if a.stopOnDone != nil {
			a.stopOnDone()
			a.stopOnDone = nil
		}
		a.periodStart = time.Time{}
		a.periodEnd = time.Time{}
		a.log.Info("Aggregator stopped")
	}
	a.mu.Unlock()

	if fromCallback {
		return
	}
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()
}

// arm must be called with mu held.
func (a *PeriodicAggregator) arm(gen uint64) {
	delay := a.periodEnd.Sub(a.now()) + a.grace
	if delay < 0 {
		delay = 0
	}
	a.timer = time.AfterFunc(delay, func() { a.fire(gen) })
}

func (a *PeriodicAggregator) fire(gen uint64) {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	a.mu.Lock()
	if !a.running || a.generation != gen {
		a.mu.Unlock()
		return
	}
	ctx := a.ctx
	start, end := a.periodStart, a.periodEnd
	listeners := append([]CandleListener(nil), a.listeners...)
	a.deliverer = goroutineID()
	a.mu.Unlock()

	a.deliver(ctx, gen, start, end, listeners)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.deliverer = 0
	if !a.running || a.generation != gen {
		return
	}
	a.periodStart = end
	a.periodEnd = end.Add(a.period.Duration())
	a.arm(gen)
}

func (a *PeriodicAggregator) current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running && a.generation == gen
}

func (a *PeriodicAggregator) deliver(ctx context.Context, gen uint64, start, end time.Time, listeners []CandleListener) {
	defer func() {
		if r := recover(); r != nil {
			a.log.ErrorContext(ctx, "Recovered panic while delivering candle",
				logger.Field("panic", r),
				logger.TimeField("period_start", start),
			)
		}
	}()

	candle, err := a.source.GenerateCandle(ctx, a.symbol, start, end)
	if err != nil {
		a.log.ErrorContext(ctx, "Failed to generate candle, skipping period",
			logger.TimeField("period_start", start),
			logger.TimeField("period_end", end),
			logger.ErrorField(err),
		)
		return
	}
	a.log.DebugContext(ctx, "Delivering candle", logger.StringField("candle", candle.String()))
	for _, l := range listeners {
		if !a.current(gen) {
			return
		}
		if err := l.OnCandle(ctx, candle); err != nil {
			a.log.DebugContext(ctx, "Candle listener rejected candle", logger.ErrorField(err))
		}
	}
}

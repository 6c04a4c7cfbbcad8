// Package strategy implements moving-average crossover signal models.
//
// A Model keeps a bounded candle history for one symbol. Indicator values, the
// binary short>long state and the crossover position are computed once per
// candle when it is appended, so evaluating a whole history at once (LoadHistory
// then SignalFrame) and feeding it candle by candle (OnCandle) yield the same
// events.
package strategy

import (
	"context"
	"fmt"
	"sync"

	"golang-crossover/internal/model"
	"golang-crossover/pkg/logger"
)

const DefaultMaxHistory = 1000

// SignalListener receives crossover events synchronously from OnCandle.
type SignalListener interface {
	OnSignal(ctx context.Context, event model.SignalEvent)
}

// SignalListenerFunc adapts a function to SignalListener.
type SignalListenerFunc func(ctx context.Context, event model.SignalEvent)

func (f SignalListenerFunc) OnSignal(ctx context.Context, event model.SignalEvent) {
	f(ctx, event)
}

type Config struct {
	Kind        Kind
	Symbol      string
	ShortWindow int
	LongWindow  int
	// MaxHistory is clamped to at least LongWindow+1. Zero means DefaultMaxHistory.
	MaxHistory int
}

func (c Config) Validate() error {
	if !c.Kind.IsValid() {
		return fmt.Errorf("%w: unsupported model kind %s", model.ErrUnsupportedConfiguration, c.Kind)
	}
	if c.Symbol == "" {
		return fmt.Errorf("%w: symbol must be non-empty", model.ErrValidation)
	}
	if c.ShortWindow < 1 || c.LongWindow <= c.ShortWindow {
		return fmt.Errorf("%w: windows must satisfy 1 <= short < long; short=%d long=%d",
			model.ErrValidation, c.ShortWindow, c.LongWindow)
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("%w: max history must be non-negative; max_history=%d", model.ErrValidation, c.MaxHistory)
	}
	return nil
}

// Model is a crossover signal model over one symbol. It is safe for concurrent use;
// listeners are invoked without the model lock held.
type Model struct {
	kind        Kind
	symbol      string
	shortWindow int
	longWindow  int
	maxHistory  int
	log         *logger.Logger

	mu        sync.RWMutex
	rows      *ring[indicatorRow]
	seq       int
	version   uint64
	listeners []SignalListener

	frame        []FrameRow
	frameVersion uint64
	frameBuilds  int
}

func NewModel(cfg Config, log *logger.Logger) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxHistory := cfg.MaxHistory
	if maxHistory == 0 {
		maxHistory = DefaultMaxHistory
	}
	if maxHistory < cfg.LongWindow+1 {
		maxHistory = cfg.LongWindow + 1
	}
	return &Model{
		kind:        cfg.Kind,
		symbol:      cfg.Symbol,
		shortWindow: cfg.ShortWindow,
		longWindow:  cfg.LongWindow,
		maxHistory:  maxHistory,
		log: log.With(
			logger.StringField("model", cfg.Kind.String()),
			logger.StringField("symbol", cfg.Symbol),
		),
		rows: newRing[indicatorRow](maxHistory),
	}, nil
}

func NewSMA(symbol string, shortWindow, longWindow int, log *logger.Logger) (*Model, error) {
	return NewModel(Config{Kind: KindSMA, Symbol: symbol, ShortWindow: shortWindow, LongWindow: longWindow}, log)
}

func NewEMA(symbol string, shortSpan, longSpan int, log *logger.Logger) (*Model, error) {
	return NewModel(Config{Kind: KindEMA, Symbol: symbol, ShortWindow: shortSpan, LongWindow: longSpan}, log)
}

func (m *Model) Kind() Kind { return m.kind }
func (m *Model) Symbol() string { return m.symbol }
func (m *Model) ShortWindow() int { return m.shortWindow }
func (m *Model) LongWindow() int { return m.longWindow }
func (m *Model) MaxHistory() int { return m.maxHistory }

// Len returns the number of retained candles.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows.Len()
}

// Candles returns the retained history, oldest first.
func (m *Model) Candles() []model.Candle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Candle, m.rows.Len())
	for i := range out {
		out[i] = m.rows.At(i).candle
	}
	return out
}

func (m *Model) Subscribe(listener SignalListener) error {
	if listener == nil {
		return fmt.Errorf("%w: signal listener must not be nil", model.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
	return nil
}

// LoadHistory replaces the history wholesale. Candles must belong to the model's
// symbol and be in strictly increasing time order; on error the model is unchanged.
func (m *Model) LoadHistory(candles []model.Candle) error {
	for i, c := range candles {
		if c.Symbol != m.symbol {
			return fmt.Errorf("%w: candle %d has symbol %s, model expects %s", model.ErrValidation, i, c.Symbol, m.symbol)
		}
	}
	if err := model.CheckOrdered(candles); err != nil {
		return err
	}

	rows := newRing[indicatorRow](m.maxHistory)
	for i, c := range candles {
		rows.Push(m.step(rows, i, c))
	}

	m.mu.Lock()
	m.rows = rows
	m.seq = len(candles)
	m.version++
	m.mu.Unlock()

	m.log.Debug("History loaded",
		logger.IntField("candles", len(candles)),
		logger.IntField("retained", rows.Len()),
	)
	return nil
}

// OnCandle appends one candle and emits at most one SignalEvent for the crossover
// at that candle. Candles for another symbol or not newer than the last retained
// candle are dropped with a warning; the returned error says why.
func (m *Model) OnCandle(ctx context.Context, candle model.Candle) error {
	if candle.Symbol != m.symbol {
		m.log.WarnContext(ctx, "Dropping candle for mismatched symbol",
			logger.StringField("candle_symbol", candle.Symbol),
			logger.TimeField("candle_time", candle.Time),
		)
		return fmt.Errorf("%w: model %s received candle for %s", model.ErrMismatchedSymbol, m.symbol, candle.Symbol)
	}

	m.mu.Lock()
	if n := m.rows.Len(); n > 0 {
		last := m.rows.At(n - 1).candle.Time
		if !candle.Time.After(last) {
			m.mu.Unlock()
			m.log.WarnContext(ctx, "Dropping out-of-order candle",
				logger.TimeField("candle_time", candle.Time),
				logger.TimeField("last_time", last),
			)
			return fmt.Errorf("%w: candle at %s is not after %s", model.ErrOrdering, candle.Time, last)
		}
	}

	row := m.step(m.rows, m.seq, candle)
	m.rows.Push(row)
	m.seq++
	m.version++

	var (
		event     model.SignalEvent
		emit      bool
		listeners []SignalListener
	)
	if m.seq >= m.longWindow && row.position != 0 {
		event = signalEvent(m.symbol, row)
		emit = true
		listeners = append(listeners, m.listeners...)
	}
	m.mu.Unlock()

	if !emit {
		return nil
	}
	m.log.InfoContext(ctx, "Crossover detected",
		logger.StringField("signal", event.Kind.String()),
		logger.TimeField("time", event.Time),
		logger.DecimalField("price", event.Price),
	)
	for _, l := range listeners {
		l.OnSignal(ctx, event)
	}
	return nil
}

func signalEvent(symbol string, r indicatorRow) model.SignalEvent {
	return model.SignalEvent{
		Time:   r.candle.Time,
		Symbol: symbol,
		Kind:   signalKind(r.position),
		Price:  r.candle.Close,
	}
}

func signalKind(position int) model.SignalKind {
	if position > 0 {
		return model.SignalBuy
	}
	return model.SignalSell
}

package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/pkg/logger"

	"github.com/shopspring/decimal"
)

const DefaultTickBufferSize = 10000

// TickListener receives ticks from a market-data feed.
type TickListener interface {
	OnTick(ctx context.Context, tick model.Tick) error
}

// TickCandleSource buffers ticks for one symbol and builds candles from them.
// It implements both TickListener and CandleSource.
type TickCandleSource struct {
	symbol  string
	maxSize int
	log     *logger.Logger

	mu    sync.Mutex
	ticks []model.Tick
}

func NewTickCandleSource(symbol string, maxSize int, log *logger.Logger) *TickCandleSource {
	if maxSize < 1 {
		maxSize = DefaultTickBufferSize
	}
	return &TickCandleSource{
		symbol:  symbol,
		maxSize: maxSize,
		log:     log.With(logger.StringField("symbol", symbol)),
	}
}

// OnTick buffers tick. Once the buffer is full the oldest tick is dropped.
func (s *TickCandleSource) OnTick(ctx context.Context, tick model.Tick) error {
	if tick.Symbol != s.symbol {
		return fmt.Errorf("%w: tick source %s received tick for %s", model.ErrMismatchedSymbol, s.symbol, tick.Symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.ticks); n > 0 && tick.Time.Before(s.ticks[n-1].Time) {
		s.log.WarnContext(ctx, "Dropping out-of-order tick",
			logger.TimeField("tick_time", tick.Time),
			logger.TimeField("last_time", s.ticks[n-1].Time),
		)
		return fmt.Errorf("%w: tick at %s is before %s", model.ErrOrdering, tick.Time, s.ticks[n-1].Time)
	}
	if len(s.ticks) >= s.maxSize {
		s.ticks = append(s.ticks[:0], s.ticks[len(s.ticks)-s.maxSize+1:]...)
	}
	s.ticks = append(s.ticks, tick)
	return nil
}

// Len returns the number of buffered ticks.
func (s *TickCandleSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ticks)
}

// GenerateCandle aggregates the ticks in [start, end) and discards ticks before end.
// It returns ErrNoData when no tick falls in the interval.
func (s *TickCandleSource) GenerateCandle(_ context.Context, symbol string, start, end time.Time) (model.Candle, error) {
	if symbol != s.symbol {
		return model.Candle{}, fmt.Errorf("%w: tick source %s asked for %s", model.ErrMismatchedSymbol, s.symbol, symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		candle model.Candle
		found  bool
		keep   int
	)
	for i, t := range s.ticks {
		if !t.Time.Before(end) {
			break
		}
		keep = i + 1
		if t.Time.Before(start) {
			continue
		}
		if !found {
			candle = model.Candle{
				Symbol:       symbol,
				Time:         start.UTC(),
				Open:         t.Price,
				High:         t.Price,
				Low:          t.Price,
				Close:        t.Price,
				Volume:       decimal.Zero,
				DurationSecs: int(end.Sub(start) / time.Second),
			}
			found = true
		}
		updateCandle(&candle, t)
	}
	s.ticks = append(s.ticks[:0], s.ticks[keep:]...)

	if !found {
		return model.Candle{}, fmt.Errorf("%w: %s [%s, %s)", model.ErrNoData, symbol,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return candle, nil
}

func updateCandle(c *model.Candle, t model.Tick) {
	if t.Price.GreaterThan(c.High) {
		c.High = t.Price
	}
	if t.Price.LessThan(c.Low) {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume = c.Volume.Add(t.Size)
}

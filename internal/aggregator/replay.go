package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/pkg/logger"
)

// ReplaySource streams a recorded candle series to listeners in order, optionally
// pausing between candles. It drives the incremental path the same way a live
// PeriodicAggregator does.
type ReplaySource struct {
	symbol  string
	candles []model.Candle
	delay   time.Duration
	log     *logger.Logger

	mu        sync.Mutex
	listeners []CandleListener
}

// NewReplaySource replays candles as symbol, overriding each candle's own symbol.
func NewReplaySource(symbol string, candles []model.Candle, delay time.Duration, log *logger.Logger) *ReplaySource {
	return &ReplaySource{
		symbol:  symbol,
		candles: candles,
		delay:   delay,
		log:     log.With(logger.StringField("symbol", symbol)),
	}
}

func (r *ReplaySource) Subscribe(listener CandleListener) error {
	if listener == nil {
		return fmt.Errorf("%w: candle listener must not be nil", model.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
	return nil
}

// Run delivers every candle and returns how many were delivered. It stops early when ctx is done.
func (r *ReplaySource) Run(ctx context.Context) (int, error) {
	r.mu.Lock()
	listeners := append([]CandleListener(nil), r.listeners...)
	r.mu.Unlock()

	delivered := 0
	for _, c := range r.candles {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		c.Symbol = r.symbol
		for _, l := range listeners {
			if err := l.OnCandle(ctx, c); err != nil {
				r.log.DebugContext(ctx, "Candle listener rejected candle", logger.ErrorField(err))
			}
		}
		delivered++

		if r.delay > 0 {
			select {
			case <-ctx.Done():
				return delivered, ctx.Err()
			case <-time.After(r.delay):
			}
		}
	}
	r.log.InfoContext(ctx, "Replay finished", logger.IntField("candles", delivered))
	return delivered, nil
}

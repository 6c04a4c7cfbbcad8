package service

import (
	"context"
	"errors"
	"time"

	"golang-crossover/internal/aggregator"
	"golang-crossover/internal/repository"
	"golang-crossover/pkg/logger"
)

// TickPoller polls the latest trade print for one symbol and forwards each new tick
// to a TickListener. A print is new when its time is after the last forwarded one.
type TickPoller struct {
	symbol   string
	interval time.Duration
	repo     repository.MarketDataRepository
	listener aggregator.TickListener
	log      *logger.Logger

	last time.Time
}

func NewTickPoller(symbol string, interval time.Duration, repo repository.MarketDataRepository, listener aggregator.TickListener, log *logger.Logger) *TickPoller {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickPoller{
		symbol:   symbol,
		interval: interval,
		repo:     repo,
		listener: listener,
		log:      log.With(logger.StringField("symbol", symbol)),
	}
}

// Run polls until ctx is done. Poll failures are logged and retried on the next tick.
func (p *TickPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.InfoContext(ctx, "Tick poller started", logger.DurationField("interval", p.interval))
	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			p.log.InfoContext(ctx, "Tick poller stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *TickPoller) poll(ctx context.Context) {
	tick, err := p.repo.Ticker(ctx, p.symbol)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.WarnContext(ctx, "Failed to poll ticker", logger.ErrorField(err))
		}
		return
	}
	if !tick.Time.After(p.last) {
		return
	}
	p.last = tick.Time
	if err := p.listener.OnTick(ctx, tick); err != nil {
		p.log.WarnContext(ctx, "Tick rejected", logger.ErrorField(err), logger.StringField("tick", tick.String()))
	}
}

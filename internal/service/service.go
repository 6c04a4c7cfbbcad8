package service

import (
	"context"

	"golang-crossover/config"
	"golang-crossover/internal/repository"
	"golang-crossover/pkg/cache"
	"golang-crossover/pkg/logger"
)

// Notifier delivers human-readable messages, e.g. to a Telegram chat.
type Notifier interface {
	Send(ctx context.Context, text string) error
	SendAsync(ctx context.Context, text string)
}

type Service struct {
	BacktestService   BacktestService
	SweepService      SweepService
	MarketDataService MarketDataService
	LiveTrader        LiveTrader
}

// NewService wires every service. notifier may be nil when notifications are disabled.
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	notifier Notifier,
) *Service {
	return &Service{
		BacktestService:   NewBacktestService(cfg, log, repo.CandleFileRepo, inmemoryCache),
		SweepService:      NewSweepService(cfg, log, repo.CandleFileRepo),
		MarketDataService: NewMarketDataService(log, repo.MarketDataRepo, repo.CandleFileRepo),
		LiveTrader:        NewLiveTrader(cfg, log, repo.MarketDataRepo, notifier),
	}
}

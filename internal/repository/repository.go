package repository

import (
	"golang-crossover/config"
	"golang-crossover/pkg/cache"
	"golang-crossover/pkg/logger"
)

type Repository struct {
	CandleFileRepo CandleFileRepository
	MarketDataRepo MarketDataRepository
}

func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, log *logger.Logger) *Repository {
	return &Repository{
		CandleFileRepo: NewCandleFileRepository(inmemoryCache, cfg.Cache.DefaultExpiration, log),
		MarketDataRepo: NewCoinbaseRepository(cfg, log),
	}
}

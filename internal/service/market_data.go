package service

import (
	"context"
	"fmt"
	"time"

	"golang-crossover/internal/model"
	"golang-crossover/internal/repository"
	"golang-crossover/pkg/logger"
)

type DownloadRequest struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Period model.AggPeriod
	Path   string
}

type MarketDataService interface {
	// Download fetches historic candles and writes them as a candle file; it returns
	// the number of candles written.
	Download(ctx context.Context, req DownloadRequest) (int, error)
}

type marketDataService struct {
	log            *logger.Logger
	marketDataRepo repository.MarketDataRepository
	candleRepo     repository.CandleFileRepository
}

func NewMarketDataService(log *logger.Logger, marketDataRepo repository.MarketDataRepository, candleRepo repository.CandleFileRepository) MarketDataService {
	return &marketDataService{
		log:            log,
		marketDataRepo: marketDataRepo,
		candleRepo:     candleRepo,
	}
}

func (s *marketDataService) Download(ctx context.Context, req DownloadRequest) (int, error) {
	if req.Symbol == "" || req.Path == "" {
		return 0, fmt.Errorf("%w: symbol and output path are required", model.ErrValidation)
	}
	candles, err := s.marketDataRepo.HistoricRates(ctx, req.Symbol, req.Start, req.End, req.Period)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to download historic rates", logger.ErrorField(err), logger.StringField("symbol", req.Symbol))
		return 0, err
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("%w: no candles for %s between %s and %s", model.ErrNoData, req.Symbol,
			req.Start.Format(time.RFC3339), req.End.Format(time.RFC3339))
	}
	if err := s.candleRepo.Write(ctx, req.Path, candles); err != nil {
		return 0, err
	}
	s.log.InfoContext(ctx, "Candles downloaded",
		logger.StringField("symbol", req.Symbol),
		logger.StringField("path", req.Path),
		logger.IntField("candles", len(candles)),
	)
	return len(candles), nil
}

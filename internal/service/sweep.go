package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"golang-crossover/config"
	"golang-crossover/internal/backtest"
	"golang-crossover/internal/dto"
	"golang-crossover/internal/repository"
	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// Default sweep grid bounds, in candles.
const (
	DefaultSweepMin  = 10
	DefaultSweepMax  = 240
	DefaultSweepStep = 10
)

type WindowPair struct {
	Short int
	Long  int
}

// SweepRequest is a BacktestRequest template whose windows are replaced by each grid point.
type SweepRequest struct {
	Backtest dto.BacktestRequest
	Grid     []WindowPair
}

type SweepResult struct {
	WindowPair
	Report backtest.Report
}

type SweepService interface {
	// Sweep backtests every grid point concurrently and returns results in grid order.
	Sweep(ctx context.Context, req SweepRequest) ([]SweepResult, error)
}

type sweepService struct {
	cfg        *config.Config
	log        *logger.Logger
	candleRepo repository.CandleFileRepository
}

func NewSweepService(cfg *config.Config, log *logger.Logger, candleRepo repository.CandleFileRepository) SweepService {
	return &sweepService{
		cfg:        cfg,
		log:        log,
		candleRepo: candleRepo,
	}
}

// Grid returns every (short, long) pair with short and long on the step lattice
// in [lo, hi] and short < long.
func Grid(lo, hi, step int) []WindowPair {
	var grid []WindowPair
	for _, short := range utils.IntRange(lo, hi, step) {
		for _, long := range utils.IntRange(short+step, hi, step) {
			grid = append(grid, WindowPair{Short: short, Long: long})
		}
	}
	return grid
}

func DefaultGrid() []WindowPair {
	return Grid(DefaultSweepMin, DefaultSweepMax, DefaultSweepStep)
}

func (s *sweepService) Sweep(ctx context.Context, req SweepRequest) ([]SweepResult, error) {
	grid := req.Grid
	if len(grid) == 0 {
		grid = DefaultGrid()
	}
	candles, err := s.candleRepo.Read(ctx, req.Backtest.File)
	if err != nil {
		return nil, err
	}
	template := applyBacktestDefaults(s.cfg, req.Backtest, candles)

	s.log.InfoContext(ctx, "Starting parameter sweep",
		logger.StringField("file", template.File),
		logger.StringField("symbol", template.Symbol),
		logger.IntField("runs", len(grid)),
		logger.IntField("concurrency", s.cfg.Backtest.SweepConcurrency),
	)

	results := make([]SweepResult, len(grid))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.Backtest.SweepConcurrency))
	for i, pair := range grid {
		g.Go(func() error {
			if !utils.ShouldContinue(gctx) {
				return gctx.Err()
			}
			run := template
			run.ShortWindow, run.LongWindow = pair.Short, pair.Long

			cfg, err := harnessConfig(s.cfg, run)
			if err != nil {
				return err
			}
			h, err := backtest.NewHarness(cfg, logger.NewNop())
			if err != nil {
				return fmt.Errorf("st=%d lt=%d: %w", pair.Short, pair.Long, err)
			}
			if err := h.BacktestSinglePass(gctx, candles); err != nil {
				return fmt.Errorf("st=%d lt=%d: %w", pair.Short, pair.Long, err)
			}
			report, err := h.GenerateReport()
			if err != nil {
				return err
			}
			results[i] = SweepResult{WindowPair: pair, Report: report}

			if n := done.Add(1); n%50 == 0 {
				s.log.DebugContext(ctx, "Sweep progress", logger.IntField("done", int(n)), logger.IntField("runs", len(grid)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.ErrorContext(ctx, "Parameter sweep failed", logger.ErrorField(err))
		return nil, err
	}
	return results, nil
}

// WriteSweepCSV writes one header row (st, lt, then the report fields) and one row per result.
func WriteSweepCSV(w io.Writer, results []SweepResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"st", "lt"}, backtest.ReportHeader()...)); err != nil {
		return err
	}
	for _, r := range results {
		row := append([]string{strconv.Itoa(r.Short), strconv.Itoa(r.Long)}, r.Report.Row()...)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BestByGain returns the result with the highest gain, or false when results is empty.
func BestByGain(results []SweepResult) (SweepResult, bool) {
	if len(results) == 0 {
		return SweepResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Report.Gain.GreaterThan(best.Report.Gain) {
			best = r
		}
	}
	return best, true
}

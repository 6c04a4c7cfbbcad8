package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang-crossover/internal/dto"
	"golang-crossover/internal/service"
	"golang-crossover/pkg/logger"

	"github.com/spf13/cobra"
)

var sweepFlags struct {
	req  dto.BacktestRequest
	min  int
	max  int
	step int
	out  string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Backtest a grid of short/long windows and write the reports as CSV",
	RunE:  runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.StringVarP(&sweepFlags.req.File, "file", "f", "", "candle CSV file")
	f.StringVar(&sweepFlags.req.Symbol, "symbol", "", "symbol (default: the file's symbol)")
	f.StringVar(&sweepFlags.req.Kind, "kind", "", "model kind: sma, ema or macd")
	f.StringVarP(&sweepFlags.req.AggPeriod, "period", "p", "", "aggregation period: 5m, 15m, 1h or 1d")
	f.StringVar(&sweepFlags.req.StartCash, "start-cash", "", "starting cash")
	f.StringVar(&sweepFlags.req.FeeRate, "fee-rate", "", "brokerage fee rate, e.g. 0.005")
	f.IntVar(&sweepFlags.min, "min", service.DefaultSweepMin, "smallest window")
	f.IntVar(&sweepFlags.max, "max", service.DefaultSweepMax, "largest window")
	f.IntVar(&sweepFlags.step, "step", service.DefaultSweepStep, "window step")
	f.StringVarP(&sweepFlags.out, "out", "o", "", "output CSV file (default stdout)")
	_ = sweepCmd.MarkFlagRequired("file")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	grid := service.Grid(sweepFlags.min, sweepFlags.max, sweepFlags.step)
	if len(grid) == 0 {
		return fmt.Errorf("empty sweep grid: min=%d max=%d step=%d", sweepFlags.min, sweepFlags.max, sweepFlags.step)
	}

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return err
	}
	defer appDep.Close()

	results, err := appDep.services.SweepService.Sweep(ctx, service.SweepRequest{Backtest: sweepFlags.req, Grid: grid})
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if sweepFlags.out != "" {
		f, err := os.Create(sweepFlags.out)
		if err != nil {
			return fmt.Errorf("failed to create sweep output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := service.WriteSweepCSV(w, results); err != nil {
		return err
	}

	if best, ok := service.BestByGain(results); ok {
		appDep.log.Info("Sweep finished",
			logger.IntField("runs", len(results)),
			logger.IntField("best_short", best.Short),
			logger.IntField("best_long", best.Long),
			logger.DecimalField("best_gain", best.Report.Gain),
		)
	}
	return nil
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-crossover/internal/dto"
	"golang-crossover/pkg/utils"

	"github.com/spf13/cobra"
)

var backtestFlags struct {
	req         dto.BacktestRequest
	replay      bool
	replayDelay time.Duration
	showTrades  bool
	asJSON      bool
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a crossover model over a candle file",
	Long: `Backtest a crossover model over a historical candle CSV file and print the report.

Unset model parameters fall back to the strategy and backtest sections of the config.
With --replay the file is streamed candle by candle through the incremental model
instead of being evaluated in one pass.`,
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVarP(&backtestFlags.req.File, "file", "f", "", "candle CSV file")
	f.StringVar(&backtestFlags.req.Symbol, "symbol", "", "symbol (default: the file's symbol)")
	f.StringVar(&backtestFlags.req.Kind, "kind", "", "model kind: sma, ema or macd")
	f.StringVarP(&backtestFlags.req.AggPeriod, "period", "p", "", "aggregation period: 5m, 15m, 1h or 1d")
	f.IntVar(&backtestFlags.req.ShortWindow, "short", 0, "short window in candles")
	f.IntVar(&backtestFlags.req.LongWindow, "long", 0, "long window in candles")
	f.StringVar(&backtestFlags.req.StartCash, "start-cash", "", "starting cash")
	f.StringVar(&backtestFlags.req.FeeRate, "fee-rate", "", "brokerage fee rate, e.g. 0.005")
	f.BoolVar(&backtestFlags.replay, "replay", false, "stream candles through the incremental model")
	f.DurationVar(&backtestFlags.replayDelay, "replay-delay", 0, "pause between replayed candles")
	f.BoolVar(&backtestFlags.showTrades, "trades", false, "print every trade after the report")
	f.BoolVar(&backtestFlags.asJSON, "json", false, "print the result as JSON")
	_ = backtestCmd.MarkFlagRequired("file")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return err
	}
	defer appDep.Close()

	req := backtestFlags.req
	if err := appDep.validator.StructExcept(req, "ShortWindow", "LongWindow"); err != nil {
		return fmt.Errorf("invalid backtest parameters: %w", err)
	}

	var result *dto.BacktestResult
	if backtestFlags.replay {
		result, err = appDep.services.BacktestService.ReplayBacktest(ctx, req, backtestFlags.replayDelay)
	} else {
		result, err = appDep.services.BacktestService.RunBacktest(ctx, req)
	}
	if err != nil {
		return err
	}
	return printBacktestResult(cmd.OutOrStdout(), result, backtestFlags.showTrades, backtestFlags.asJSON)
}

func printBacktestResult(w io.Writer, result *dto.BacktestResult, showTrades, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	r := result.Report
	fmt.Fprintf(w, "%s %s(%d, %d) @ %s over %d candles\n",
		result.Symbol, result.Kind, result.ShortWindow, result.LongWindow, result.AggPeriod, result.Candles)
	fmt.Fprintf(w, "start: %s\nend: %s\nprice_chg: %s\nnum_trades: %d\nstart_bal: %s\nend_bal: %s\ngain: %s\ngrowth: %s\n",
		r.StartPrice, r.EndPrice, r.PriceChange, r.NumTrades, r.StartBalance, r.EndBalance, r.Gain, r.Growth)
	fmt.Fprintf(w, "return: %s vs buy-and-hold %s\n", utils.FormatPercentage(r.Growth), utils.FormatPercentage(r.PriceChange))

	if showTrades {
		for _, t := range result.Trades {
			fmt.Fprintf(w, "%s %-4s %s @ %s fee %s\n", t.Time.Format(time.RFC3339), t.Side, t.Amount, t.Price, t.Fee)
		}
	}
	return nil
}

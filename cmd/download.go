package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang-crossover/internal/model"
	"golang-crossover/internal/service"
	"golang-crossover/pkg/utils"

	"github.com/spf13/cobra"
)

var downloadFlags struct {
	symbol string
	start  string
	end    string
	period string
	out    string
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download historic candles from Coinbase into a candle file",
	RunE:  runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.StringVarP(&downloadFlags.symbol, "symbol", "s", "", "product id, e.g. LTC-USD (default: backtest.symbol)")
	f.StringVar(&downloadFlags.start, "start", "", "first candle, YYYY-MM-DD or RFC3339")
	f.StringVar(&downloadFlags.end, "end", "", "end of range (exclusive), YYYY-MM-DD or RFC3339")
	f.StringVarP(&downloadFlags.period, "period", "p", "5m", "candle period: 1m, 5m, 15m, 1h or 1d")
	f.StringVarP(&downloadFlags.out, "out", "o", "", "output CSV file")
	_ = downloadCmd.MarkFlagRequired("start")
	_ = downloadCmd.MarkFlagRequired("end")
	_ = downloadCmd.MarkFlagRequired("out")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start, err := utils.ParseDate(downloadFlags.start)
	if err != nil {
		return err
	}
	end, err := utils.ParseDate(downloadFlags.end)
	if err != nil {
		return err
	}
	period, err := model.ParseAggPeriod(downloadFlags.period)
	if err != nil {
		return err
	}

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return err
	}
	defer appDep.Close()

	symbol := downloadFlags.symbol
	if symbol == "" {
		symbol = appDep.cfg.Backtest.Symbol
	}
	n, err := appDep.services.MarketDataService.Download(ctx, service.DownloadRequest{
		Symbol: symbol,
		Start:  start,
		End:    end,
		Period: period,
		Path:   downloadFlags.out,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d %s candles for %s to %s\n", n, period, symbol, downloadFlags.out)
	return nil
}

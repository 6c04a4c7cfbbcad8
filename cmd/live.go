package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/telegram"

	"github.com/spf13/cobra"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Paper-trade the configured model on live Coinbase data",
	Long: `Paper-trade the configured model on live Coinbase data until interrupted.

Closed candles come from the historic-rates endpoint (live.source: candles) or are
built from polled trade prints (live.source: ticker). Signals are applied to a
simulated account; status is logged on live.status_cron and, when enabled, sent
to Telegram.`,
	RunE: runLive,
}

func runLive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return err
	}
	defer appDep.Close()

	trader := appDep.services.LiveTrader
	if err := trader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start live trader: %w", err)
	}

	<-ctx.Done()
	appDep.log.Info("Shutting down gracefully...")
	trader.Stop()

	status, err := trader.Status()
	if err != nil {
		return err
	}
	appDep.log.Info("Live session finished",
		logger.StringField("session_id", status.SessionID),
		logger.IntField("trades", status.NumTrades),
		logger.DecimalField("account_value", status.AccountValue),
	)
	fmt.Fprintln(cmd.OutOrStdout(), telegram.FormatStatus(status))
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"golang-crossover/internal/delivery/http"
	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/utils"

	"github.com/spf13/cobra"
)

var serveWithLive bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (backtests, live trader status)",
	RunE:  Serve,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithLive, "live", false, "also run the live trader in this process")
}

func Serve(cmd *cobra.Command, args []string) error {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return fmt.Errorf("failed to create app dependency: %w", err)
	}
	defer appDep.Close()

	if serveWithLive {
		if err := appDep.services.LiveTrader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start live trader: %w", err)
		}
		defer appDep.services.LiveTrader.Stop()
	}

	httpHandler := http.NewHttpAPIHandler(ctx, appDep.echo, appDep.validator, appDep.services, appDep.log)
	apiServer := NewHTTPServer(ctx, appDep, httpHandler)

	serverErr := make(chan error, 1)
	utils.GoSafe(func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, httpNet.ErrServerClosed) {
			serverErr <- err
		}
	})

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		appDep.log.Info("Shutting down gracefully...")
	case err := <-serverErr:
		appDep.log.Error("HTTP server failed", logger.ErrorField(err))
		return err
	}

	return apiServer.Stop()
}

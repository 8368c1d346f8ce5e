package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nexpass/nexsync/internal/providers/gocardless"
)

func newSyncCommand(configPath *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync a user's bank accounts into the encrypted store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			stopMetrics := startMetrics(app)
			defer stopMetrics()

			client := gocardless.NewSync(gocardless.NewClient(
				app.cfg.GoCardless.SecretID,
				app.cfg.GoCardless.SecretKey,
			))

			report, err := app.engine.SyncUser(ctx, userID, client)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			for _, acc := range report.Accounts {
				if acc.Err != nil {
					continue
				}
				fmt.Printf("%s: %d inserted, %d updated, %d failed, %d balances\n",
					acc.AccountID, acc.Transactions.Inserted, acc.Transactions.Updated,
					acc.Transactions.Failed, acc.BalancesUpserted)
			}
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("sync: %d account(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id to sync")
	cmd.MarkFlagRequired("user")

	return cmd
}

// startMetrics serves the Prometheus endpoint when configured. The returned
// stop function is safe to call either way.
func startMetrics(app *app) func() {
	addr := app.cfg.Metrics.ListenAddr
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		app.log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.log.Error().Err(err).Msg("Metrics listener failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

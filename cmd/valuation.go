package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/errs"
)

var valuationCmd = &cobra.Command{
	Use:   "valuation",
	Short: "Mock valuation worker commands",
}

var valuationRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Complete valuations whose wait has elapsed",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		cfg := svc.App.Config.Valuation

		once, _ := cmd.Flags().GetBool("once")
		pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
		batch, _ := cmd.Flags().GetInt("batch")
		if pollInterval <= 0 {
			pollInterval = cfg.PollInterval
		}
		if batch <= 0 {
			batch = cfg.BatchSize
		}

		if once {
			completed, err := svc.Offers.RunDueValuations(ctx, batch)
			if err != nil {
				logging.Error(ctx, "run due valuations failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "run due valuations")
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "valuations completed=%d\n", completed); err != nil {
				return errs.Wrap(err, "write valuation output")
			}
			return nil
		}

		loopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		runValuationLoop(loopCtx, svc.Offers, pollInterval, batch)
		return nil
	}),
}

var valuationStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List quotes whose valuation has been running too long",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		stale, err := svc.Offers.DetectStaleValuations(ctx)
		if err != nil {
			logging.Error(ctx, "detect stale valuations failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "detect stale valuations")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "quote_id\tstarted_at\tage"); err != nil {
			return errs.Wrap(err, "write stale header")
		}
		for _, item := range stale {
			if _, err := fmt.Fprintf(
				w,
				"%s\t%s\t%s\n",
				item.QuoteID,
				item.StartedAt.Format(time.RFC3339),
				item.Age.Round(time.Second),
			); err != nil {
				return errs.Wrap(err, "write stale row")
			}
		}
		if err := w.Flush(); err != nil {
			return errs.Wrap(err, "flush stale output")
		}
		return nil
	}),
}

type dueValuationRunner interface {
	RunDueValuations(ctx context.Context, limit int) (int, error)
}

// runValuationLoop polls for due valuations until ctx is done. Failed ticks are logged and retried.
func runValuationLoop(ctx context.Context, runner dueValuationRunner, pollInterval time.Duration, batch int) {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "valuation.loop"))
	logging.Info(ctx, "valuation loop started", slog.Duration("poll_interval", pollInterval), slog.Int("batch", batch))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		completed, err := runner.RunDueValuations(ctx, batch)
		switch {
		case err != nil && ctx.Err() == nil:
			logging.Warn(ctx, "valuation tick failed", slog.Any("err", errs.Loggable(err)))
		case completed > 0:
			logging.Info(ctx, "valuation tick completed", slog.Int("completed", completed))
		}

		select {
		case <-ctx.Done():
			logging.Info(ctx, "valuation loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(valuationCmd)
	valuationCmd.AddCommand(valuationRunCmd)
	valuationCmd.AddCommand(valuationStaleCmd)

	valuationRunCmd.Flags().Bool("once", false, "Run one tick and exit")
	valuationRunCmd.Flags().Duration("poll-interval", 0, "Polling interval (default: valuation.poll_interval)")
	valuationRunCmd.Flags().Int("batch", 0, "Max valuations per tick (default: valuation.batch_size)")
}

package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/errs"
	"cashoffer/internal/usecase/dashconsole"
)

var consoleDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the seller dashboard console",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		session, err := resolveSession(ctx, cmd, svc.Identity)
		if err != nil {
			return err
		}
		if session == nil {
			return errors.New("--token or --email/--password is required")
		}

		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 5 * time.Second
		}
		worker, _ := cmd.Flags().GetBool("worker")

		// Log lines would tear the alternate screen.
		ctx = logging.WithLogger(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)))
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		updates, unsubscribe := svc.Events.Subscribe(session.UserID)
		defer unsubscribe()

		if worker {
			cfg := svc.App.Config.Valuation
			go runValuationLoop(ctx, svc.Offers, cfg.PollInterval, cfg.BatchSize)
		}

		model := dashconsole.NewDashboardModel(ctx, svc.Offers, dashconsole.Options{
			Session:         session,
			RefreshInterval: refreshInterval,
			Updates:         updates,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run dashboard console")
		}
		return nil
	}),
}

func init() {
	consoleCmd.AddCommand(consoleDashboardCmd)
	consoleDashboardCmd.Flags().String("token", "", "Bearer token of the seller")
	consoleDashboardCmd.Flags().String("email", "", "Seller email (used with --password)")
	consoleDashboardCmd.Flags().String("password", "", "Seller password")
	consoleDashboardCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
	consoleDashboardCmd.Flags().Bool("worker", true, "Complete due valuations while the console runs")
}

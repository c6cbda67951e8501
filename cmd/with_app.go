package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"cashoffer/internal/bootstrap"
	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/events"
	"cashoffer/internal/ports"
	"cashoffer/internal/usecase/offer"
)

// appServices is what every command gets from the fx graph.
type appServices struct {
	App      *bootstrap.App
	Offers   *offer.Service
	Identity ports.Identity
	Events   *events.Broker
}

func withApp(run func(cmd *cobra.Command, svc *appServices) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		svc := &appServices{}
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&svc.App, &svc.Offers, &svc.Identity, &svc.Events),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		// Switch to the configured handler now that config is loaded.
		if svc.App.Logger != nil {
			cmd.SetContext(logging.WithLogger(cmd.Context(), svc.App.Logger))
		}

		if err := run(cmd, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

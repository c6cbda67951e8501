package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the valuation worker",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		cfg := svc.App.Config
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = cfg.HTTP.Addr
		}
		noWorker, _ := cmd.Flags().GetBool("no-worker")

		server := &http.Server{
			Addr: addr,
			Handler: newAPIHandler(svc.Offers, svc.Identity, svc.Events, apiConfig{
				AuthRatePerSecond:    cfg.HTTP.AuthRatePerSecond,
				AuthBurst:            cfg.HTTP.AuthBurst,
				RequireVerifiedEmail: cfg.Identity.RequireVerifiedEmail,
			}),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}

		workerDone := make(chan struct{})
		if noWorker {
			close(workerDone)
		} else {
			go func() {
				defer close(workerDone)
				runValuationLoop(ctx, svc.Offers, cfg.Valuation.PollInterval, cfg.Valuation.BatchSize)
			}()
		}

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server started", slog.String("addr", addr), slog.Bool("worker", !noWorker))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		var runErr error
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				logging.Error(ctx, "http server failed", slog.Any("err", errs.Loggable(err)))
				runErr = errs.Wrap(err, "serve http")
			}
			stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn(ctx, "http server shutdown failed", slog.Any("err", errs.Loggable(err)))
		}
		<-workerDone
		logging.Info(ctx, "http server stopped")
		return runErr
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr from config)")
	serveCmd.Flags().Bool("no-worker", false, "Do not run due valuations in this process")
}

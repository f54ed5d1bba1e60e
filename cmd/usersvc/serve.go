package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/user-service/internal/api"
	"github.com/99minutos/user-service/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Seed the store and start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), shutdownTimeout)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "grace period for in-flight requests")

	return cmd
}

func runServe(ctx context.Context, shutdownTimeout time.Duration) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	procCtx, stopProcessor := context.WithCancel(context.Background())
	defer func() {
		stopProcessor()
		<-a.processor.Done()
	}()
	a.processor.Start(procCtx)

	if err := a.processor.Seed(ctx); err != nil {
		return err
	}

	e := api.NewRouter(api.Dependencies{
		Users:    a.processor,
		Verifier: a.tokens,
		Issuer:   a.cfg.Token.Issuer,
		Health:   a.health,
		Log:      logger.With("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.Port).Msg("http server listening")
		errCh <- e.Start(":" + a.cfg.Port)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

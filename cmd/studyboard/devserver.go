package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/studyboard/internal/config"
	"github.com/conorfennell/studyboard/internal/fakeapi"
)

func (a *app) devserverCommand() *cobra.Command {
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Serve an in-memory backend for local use",
		Long: `devserver serves the board, progress and study-session endpoints from
memory. Point the CLI at it with --api-url and log in with one of the
--dev-token values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", d.DevServer.Addr, "Listen address")
	cmd.Flags().StringSlice("dev-token", d.DevServer.Tokens, "Accepted bearer tokens")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	backend := fakeapi.NewServer(fakeapi.DefaultBoard(), a.cfg.DevServer.Tokens, fakeapi.WithLogger(a.logger))
	srv := &http.Server{
		Addr:              a.cfg.DevServer.Addr,
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("dev backend listening", "addr", srv.Addr, "board", backend.Board().ID)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("dev backend: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shut down dev backend: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info("dev backend stopped", "updates", backend.Updates())
	return nil
}

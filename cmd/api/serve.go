package main

import (
	"context"
	"time"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/salesbrain/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := app.NewServer(a)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Infow("salesbrain is running", "port", a.Config.Port, "embed_provider", a.Config.EmbedProvider)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

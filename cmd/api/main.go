package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/salesbrain/internal/app"
	"github.com/markdave123-py/salesbrain/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "salesbrain",
	Short: "Product knowledge assistant for sales teams",
	Long: `salesbrain ingests product documentation into a vector store and answers
sales questions by searching each product's knowledge base.

Running without a subcommand starts the HTTP API.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setupLogging installs the global logger. stdout is reserved for protocol
// traffic when toStderr is set.
func setupLogging(cfg *config.Config, toStderr bool) error {
	opt := option.DefaultLogOption()
	opt.Level = cfg.LogLevel
	opt.Format = cfg.LogFormat
	if toStderr {
		opt.OutputPaths = []string{"stderr"}
	}
	opt.InitialFields = map[string]interface{}{"service.name": "salesbrain"}

	l, err := logger.New(opt)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetGlobal(l)
	return nil
}

// bootstrap loads configuration, sets up logging and connects the application.
func bootstrap(ctx context.Context, toStderr bool) (*app.App, error) {
	cfg := config.LoadConfig()
	if err := setupLogging(cfg, toStderr); err != nil {
		return nil, err
	}
	return app.NewApp(ctx, cfg)
}

// Command locadexctl is the admin CLI: bulk import, reindex and offline duplicate checks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/app"
	"github.com/kailas-cloud/locadex/internal/config"
	logpkg "github.com/kailas-cloud/locadex/internal/logger"
	"github.com/kailas-cloud/locadex/internal/metrics"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "locadexctl",
		Short:        "Administer a locadex deployment",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Config file path (default: config/<ENV>.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newImportCmd(opts),
		newReindexCmd(opts),
		newDupcheckCmd(opts),
		newVersionCmd(),
	)
	return root
}

// withApp loads config, builds the services and runs fn with them.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app.App, *zap.Logger) error) error {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	a, err := app.Build(ctx, &cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer a.Close()

	return fn(a, logger)
}

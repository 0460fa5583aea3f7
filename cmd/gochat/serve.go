package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/gochat-presence/internal/config"
	"github.com/Tyrowin/gochat-presence/internal/errutil"
	"github.com/Tyrowin/gochat-presence/internal/logging"
	"github.com/Tyrowin/gochat-presence/internal/server"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay",
		Long: `Run the chat relay. Settings are read from defaults, the --config
YAML file, GOCHAT_* environment variables and flags, in increasing order
of precedence. SIGINT and SIGTERM trigger a graceful shutdown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return oops.Wrapf(err, "invalid configuration")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.SetDefault(logging.Options{
		Service: "gochat",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.LogLevel(),
	})

	logger.Info("starting chat relay",
		"addr", cfg.Addr,
		"allowed_origins", cfg.AllowedOrigins,
		"log_format", cfg.Log.Format,
	)

	if err := server.New(cfg, logger).Run(ctx); err != nil {
		errutil.LogError(logger, "chat relay stopped with error", err)
		return err
	}

	logger.Info("chat relay stopped")
	return nil
}

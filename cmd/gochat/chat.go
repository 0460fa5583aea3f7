package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/gochat-presence/internal/client"
	"github.com/Tyrowin/gochat-presence/internal/logging"
	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

const defaultChatURL = "ws://localhost:8887/ws"

// chatConfig holds configuration for the chat command.
type chatConfig struct {
	url    string
	name   string
	origin string
}

// Validate checks that the configuration is valid.
func (cfg *chatConfig) Validate() error {
	if cfg.url == "" {
		return oops.Errorf("url is required")
	}
	return protocol.ValidateName(cfg.name) //nolint:wrapcheck // already coded
}

// NewChatCmd creates the chat subcommand.
func NewChatCmd() *cobra.Command {
	cfg := &chatConfig{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join a chat relay from the terminal",
		Long: `Join a chat relay under --name. Typed lines are sent as chat messages;
"/status <Online|Away|Busy|Offline>" changes presence and "/quit" leaves.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return oops.Wrapf(err, "invalid configuration")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runChat(ctx, cfg, cmd)
		},
	}

	cmd.Flags().StringVar(&cfg.url, "url", defaultChatURL, "relay WebSocket URL")
	cmd.Flags().StringVar(&cfg.name, "name", "", "display name")
	cmd.Flags().StringVar(&cfg.origin, "origin", "", "Origin header to send (for relays that require one)")

	return cmd
}

func runChat(ctx context.Context, cfg *chatConfig, cmd *cobra.Command) error {
	logger := logging.Setup(logging.Options{
		Service: "gochat-chat",
		Version: version,
		Format:  logging.FormatText,
		Level:   slog.LevelWarn,
	}, cmd.ErrOrStderr())

	opts := []client.Option{client.WithLogger(logger)}
	if cfg.origin != "" {
		opts = append(opts, client.WithHeader(http.Header{"Origin": {cfg.origin}}))
	}

	c, err := client.Dial(ctx, cfg.url, opts...)
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}

	return c.Run(ctx, cfg.name, cmd.InOrStdin(), cmd.OutOrStdout()) //nolint:wrapcheck // already coded
}

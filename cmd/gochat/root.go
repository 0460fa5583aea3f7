package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the GoChat CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gochat",
		Short: "GoChat - a presence-aware chat relay",
		Long: `GoChat relays chat messages, joins, leaves and presence status
between clients connected over WebSocket.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewChatCmd())

	return cmd
}

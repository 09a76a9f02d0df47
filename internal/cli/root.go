// Package cli provides employeectl, an operator tool for CSV imports.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// RootCmd builds the employeectl command tree
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "employeectl",
		Short:         "Inspect, validate and queue employee CSV imports",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("config", "configs/api-service/config.yaml", "path to the service configuration file")
	cmd.PersistentFlags().Bool("verbose", false, "log debug output to stderr")

	cmd.AddCommand(
		countRowsCmd(),
		validateCmd(),
		enqueueCSVCmd(connectRabbitMQ),
	)

	return cmd
}

func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

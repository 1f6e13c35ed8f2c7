package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stagegate",
		Short: "Stagegate - field classification for Kaiten boards",
		Long: `Stagegate reads scoring fields from Kaiten cards, classifies them
against a rule table and writes the resulting tier labels back to the card.

It can process a single card, sweep a whole board, or run as a webhook
server that reacts to card updates.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newSweepCommand())
	cmd.AddCommand(newServeCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

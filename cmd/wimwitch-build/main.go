// Package main is used for the image build tool.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type cmdGlobal struct {
	flagHelp    bool
	flagVersion bool
	flagDebug   bool
}

func main() {
	// Global flags.
	globalCmd := cmdGlobal{}

	app := &cobra.Command{
		Use:   "wimwitch-build",
		Short: "Offline Windows image customization tool",
		Long: formatSection("Description",
			"Offline Windows image customization tool\n\nThis tool mounts a WIM image, injects updates, drivers and other payloads,\nand exports the customized result."),
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if globalCmd.flagDebug {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if globalCmd.flagVersion {
				_, _ = fmt.Println("wimwitch-build version " + version) //nolint:forbidigo

				return nil
			}

			return cmd.Help()
		},
	}

	app.PersistentFlags().BoolVarP(&globalCmd.flagHelp, "help", "h", false, "Print help command")
	app.PersistentFlags().BoolVarP(&globalCmd.flagVersion, "version", "v", false, "Print binary version")
	app.PersistentFlags().BoolVarP(&globalCmd.flagDebug, "debug", "d", false, "Enable debug logging")

	// Help handling.
	app.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	// run sub-command.
	runCmd := cmdRun{global: &globalCmd}
	app.AddCommand(runCmd.command())

	// updates sub-command.
	updatesCmd := cmdUpdates{global: &globalCmd}
	app.AddCommand(updatesCmd.command())

	// resolve sub-command.
	resolveCmd := cmdResolve{global: &globalCmd}
	app.AddCommand(resolveCmd.command())

	// prune sub-command.
	pruneCmd := cmdPrune{global: &globalCmd}
	app.AddCommand(pruneCmd.command())

	// Run the main command and handle errors.
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}

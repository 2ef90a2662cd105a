package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func newRootCommand() *cobra.Command {
	var configFlag string

	cmdCtx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "cardscan",
		Short:         "Collectible card scan resolution",
		Long:          "cardscan resolves card scans against the visual index and the card catalog,\ncaches what it finds, and exports completed scans for collection tracking.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cmdCtx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(cmdCtx))
	rootCmd.AddCommand(newScansCommand(cmdCtx))
	rootCmd.AddCommand(newProcessCommand(cmdCtx))
	rootCmd.AddCommand(newResolveCommand(cmdCtx))
	rootCmd.AddCommand(newIndexCommand(cmdCtx))
	rootCmd.AddCommand(newExportCommand(cmdCtx))
	rootCmd.AddCommand(newTestNotifyCommand(cmdCtx))
	rootCmd.AddCommand(newConfigCommand(cmdCtx))

	return rootCmd
}

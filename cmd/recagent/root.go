package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "recagent",
		Short:         "Screen and audio recording agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newRecordCommand(ctx))
	rootCmd.AddCommand(newScreenshotCommand(ctx))
	rootCmd.AddCommand(newDevicesCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

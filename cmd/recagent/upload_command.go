package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recagent/internal/config"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a finished recording to the control service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("inspect %q: %w", path, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			client, err := ctx.remoteClient()
			if err != nil {
				return err
			}
			if err := client.Upload(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s\n", path, client.BaseURL())
			return nil
		},
	}
}

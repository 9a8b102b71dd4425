package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newScreenshotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "screenshot",
		Short: "Capture a single frame of the screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.captureSession()
			if err != nil {
				return err
			}
			defer session.Close()

			path, err := session.supervisor.Screenshot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}
}

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.captureSession()
			if err != nil {
				return err
			}
			defer session.Close()

			devices, err := session.supervisor.ListAudioDevices(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No audio devices found")
				return nil
			}
			rows := make([][]string, 0, len(devices))
			for i, device := range devices {
				rows = append(rows, []string{strconv.Itoa(i + 1), device, yesNo(device == session.cfg.Recorder.DefaultAudioDevice)})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Device", "Default"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recagent/internal/capture"
	"recagent/internal/logging"
)

type recordFlags struct {
	duration     time.Duration
	quality      string
	videoQuality string
	audioQuality string
	device       string
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Record locally without the control service",
	}
	for _, mode := range []capture.Mode{capture.ModeScreen, capture.ModeAudio, capture.ModeCombined} {
		recordCmd.AddCommand(newRecordModeCommand(ctx, mode))
	}
	return recordCmd
}

func newRecordModeCommand(ctx *commandContext, mode capture.Mode) *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   string(mode),
		Short: fmt.Sprintf("Record %s", describeMode(mode)),
		Long: `Without --duration the recording runs until interrupted (Ctrl+C), then
the encoder is asked to finish the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.duration < 0 {
				return errors.New("--duration must not be negative")
			}
			return runRecord(cmd, ctx, mode, flags)
		},
	}
	cmd.Flags().DurationVarP(&flags.duration, "duration", "d", 0, "Recording length (0 records until interrupted)")
	cmd.Flags().StringVarP(&flags.quality, "quality", "q", "medium", "Quality for both knobs: low, medium or high")
	cmd.Flags().StringVar(&flags.videoQuality, "video-quality", "", "Video quality (overrides --quality)")
	cmd.Flags().StringVar(&flags.audioQuality, "audio-quality", "", "Audio quality (overrides --quality)")
	if mode.NeedsDevice() {
		cmd.Flags().StringVar(&flags.device, "device", "", "Audio device (defaults to recorder.default_audio_device, then the first device found)")
	}
	return cmd
}

func describeMode(mode capture.Mode) string {
	switch mode {
	case capture.ModeAudio:
		return "audio from one input device"
	case capture.ModeCombined:
		return "the screen with audio"
	default:
		return "the screen"
	}
}

func runRecord(cmd *cobra.Command, ctx *commandContext, mode capture.Mode, flags recordFlags) error {
	session, err := ctx.captureSession()
	if err != nil {
		return err
	}
	defer session.Close()

	runCtx := cmd.Context()
	req := capture.Request{
		Mode:         mode,
		Duration:     flags.duration,
		VideoQuality: capture.Quality(firstNonEmpty(flags.videoQuality, flags.quality)),
		AudioQuality: capture.Quality(firstNonEmpty(flags.audioQuality, flags.quality)),
	}
	if mode.NeedsDevice() {
		device, err := resolveDevice(runCtx, session, flags.device)
		if err != nil {
			return err
		}
		req.Device = device
	}

	out := cmd.OutOrStdout()
	if req.Indefinite() {
		path, err := session.supervisor.Start(runCtx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Recording to %s (press Ctrl+C to stop)\n", path)
		exited := session.supervisor.Exited()
		select {
		case <-runCtx.Done():
		case exitErr := <-exited:
			return encoderExited(path, exitErr)
		}

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), session.cfg.StopGrace()+session.cfg.KillWait()+time.Minute)
		defer cancel()
		final, err := session.supervisor.Stop(stopCtx)
		if err != nil {
			return err
		}
		if final == "" {
			return encoderExited(path, <-exited)
		}
		fmt.Fprintf(out, "Saved %s\n", final)
		return nil
	}

	fmt.Fprintf(out, "Recording %s for %s\n", describeMode(mode), flags.duration)
	path, err := session.supervisor.Start(runCtx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s\n", path)
	return nil
}

// encoderExited reports an indefinite recording whose encoder ended before it
// was stopped. The partial file is left in place.
func encoderExited(path string, exitErr error) error {
	if exitErr != nil {
		return fmt.Errorf("encoder exited before the recording was stopped: %w (partial output at %s)", exitErr, path)
	}
	return fmt.Errorf("encoder exited before the recording was stopped (partial output at %s)", path)
}

// resolveDevice picks the flag, then the configured default, then the first
// enumerated device.
func resolveDevice(ctx context.Context, session *captureSession, flagValue string) (string, error) {
	if device := firstNonEmpty(flagValue, session.cfg.Recorder.DefaultAudioDevice); device != "" {
		return device, nil
	}
	devices, err := session.supervisor.ListAudioDevices(ctx)
	if err != nil {
		return "", fmt.Errorf("enumerate audio devices: %w", err)
	}
	if len(devices) == 0 {
		return "", errors.New("no audio devices found; pass --device or set recorder.default_audio_device")
	}
	session.logger.Info("using first audio device",
		logging.String(logging.FieldEventType, "device_selected"),
		logging.String("device", devices[0]),
	)
	return devices[0], nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

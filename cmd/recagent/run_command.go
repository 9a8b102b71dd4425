package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"recagent/internal/daemon"
	"recagent/internal/dispatch"
	"recagent/internal/logging"
	"recagent/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the control service and record on command",
		Long: `Run the agent in the foreground. Commands are fetched from the control
service every poll interval and status is reported after each one. An
unknown command or recording type stops the agent with a non-zero exit.
Interrupting the agent stops any active recording before exiting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), ctx)
		},
	}
}

func runAgent(cmdCtx context.Context, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logPath := logging.RunLogPath(cfg.Paths.LogDir, time.Now())
	logger, err := logging.NewFromConfig(cfg, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, logPath)

	for _, result := range preflight.Failed(preflight.RunAll(cmdCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "commands may fail until this is fixed"),
			logging.String(logging.FieldErrorHint, "run recagent check for details"),
		)
	}

	store, err := ctx.openCatalog()
	if err != nil {
		logger.Error("open session catalog", logging.Error(err))
		return err
	}
	defer store.Close()

	client, err := ctx.remoteClient()
	if err != nil {
		return fmt.Errorf("remote client: %w", err)
	}

	supervisor := newSupervisor(cfg, logger, store)
	loopOpts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithInterval(cfg.PollInterval()),
		dispatch.WithDevice(cfg.Recorder.DefaultAudioDevice),
		dispatch.WithOutputDir(cfg.Paths.OutputDir),
	}
	if cfg.Remote.UploadCompleted {
		loopOpts = append(loopOpts, dispatch.WithUploader(client))
	}
	loop := dispatch.New(supervisor, client, loopOpts...)

	d, err := daemon.New(cfg.LockPath(), supervisor, loop,
		daemon.WithLogger(logger),
		daemon.WithCatalog(store),
		daemon.WithShutdownTimeout(cfg.StopGrace()+cfg.KillWait()+time.Minute),
	)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	logger.Info("polling control service",
		logging.String(logging.FieldEventType, "agent_configured"),
		logging.String("base_url", client.BaseURL()),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.String("log_file", logPath),
		logging.Int("pid", os.Getpid()),
	)
	return d.Run(cmdCtx)
}

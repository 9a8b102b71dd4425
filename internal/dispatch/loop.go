package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recagent/internal/capture"
	"recagent/internal/logging"
	"recagent/internal/remote"
	"recagent/internal/services"
)

// Recorder is the subset of the supervisor the loop drives.
type Recorder interface {
	Start(ctx context.Context, req capture.Request) (string, error)
	Stop(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) (string, error)
	ListAudioDevices(ctx context.Context) ([]string, error)
}

// Feed is the control-service side of the loop.
type Feed interface {
	FetchCommand(ctx context.Context) (remote.Command, error)
	ReportStatus(ctx context.Context, status remote.Status) error
}

// Uploader sends finished files back to the control service.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

const defaultInterval = time.Second

// Loop polls the feed and dispatches commands to the recorder.
type Loop struct {
	recorder  Recorder
	feed      Feed
	uploader  Uploader
	logger    *slog.Logger
	interval  time.Duration
	device    string
	outputDir string
	now       func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the sleep between cycles.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithDevice fixes the audio device used for audio and combined recordings.
// Without it the first enumerated device is used.
func WithDevice(device string) Option {
	return func(l *Loop) { l.device = strings.TrimSpace(device) }
}

// WithUploader uploads every finished file after its command completes.
func WithUploader(u Uploader) Option {
	return func(l *Loop) { l.uploader = u }
}

// WithOutputDir sets the directory reported as currentFile in status reports.
func WithOutputDir(dir string) Option {
	return func(l *Loop) { l.outputDir = dir }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source for status reports.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a Loop.
func New(rec Recorder, feed Feed, opts ...Option) *Loop {
	l := &Loop{
		recorder: rec,
		feed:     feed,
		logger:   logging.NewNop(),
		interval: defaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.NewComponentLogger(l.logger, "dispatch")
	return l
}

// Run polls until ctx is cancelled (returning nil) or the feed sends an
// unknown command or recording type (returning that error).
func (l *Loop) Run(ctx context.Context) error {
	device := l.resolveDevice(ctx)
	l.logger.Info("dispatch loop started",
		logging.String(logging.FieldEventType, "dispatch_started"),
		logging.String("device", device),
		logging.Duration("interval", l.interval),
	)

	for {
		if ctx.Err() != nil {
			l.logger.Info("dispatch loop stopped", logging.String(logging.FieldEventType, "dispatch_stopped"))
			return nil
		}
		if err := l.cycle(ctx, device); err != nil {
			logging.ErrorWithContext(l.logger, "dispatch loop terminated", "dispatch_terminated",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the control service for unsupported commands"),
			)
			return err
		}
		select {
		case <-ctx.Done():
		case <-time.After(l.interval):
		}
	}
}

func (l *Loop) resolveDevice(ctx context.Context) string {
	if l.device != "" {
		return l.device
	}
	devices, err := l.recorder.ListAudioDevices(ctx)
	if err != nil {
		logging.WarnWithContext(l.logger, "audio device enumeration failed", "device_enumeration_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "audio and combined commands will fail"),
			logging.String(logging.FieldErrorHint, "set recorder.default_audio_device or check the encoder"),
		)
		return ""
	}
	if len(devices) == 0 {
		logging.WarnWithContext(l.logger, "no audio devices found", "no_audio_devices",
			logging.String(logging.FieldImpact, "audio and combined commands will fail"),
			logging.String(logging.FieldErrorHint, "set recorder.default_audio_device"),
		)
		return ""
	}
	return devices[0]
}

// cycle runs one poll. Only loop-terminating errors are returned.
func (l *Loop) cycle(ctx context.Context, device string) error {
	cmd, err := l.feed.FetchCommand(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		var decodeErr *remote.DecodeError
		if errors.As(err, &decodeErr) {
			logging.WarnWithContext(l.logger, "malformed command ignored", "command_decode_failed",
				logging.Error(err),
				logging.String("payload", decodeErr.Payload),
				logging.String(logging.FieldImpact, "command skipped"),
			)
			return nil
		}
		logging.WarnWithContext(l.logger, "command feed unavailable", "command_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "retrying next cycle"),
			logging.String(logging.FieldErrorHint, "check remote.base_url and the control service"),
		)
		l.report(ctx, remote.ErrorStatus(err.Error()))
		return nil
	}
	if cmd.Empty() {
		return nil
	}

	ctx = services.WithCommandID(ctx, services.NewID())
	ctx = services.WithAction(ctx, strings.ToLower(cmd.Action))
	logger := logging.WithContext(ctx, l.logger)
	logger.Info("command received",
		logging.String(logging.FieldEventType, "command_received"),
		logging.String("type", cmd.Type),
		logging.Int("duration", cmd.Duration),
		logging.String("quality", cmd.Quality),
	)

	l.report(ctx, remote.StatusProcessing)
	delivered, err := l.dispatch(ctx, cmd, device)
	if err != nil {
		l.report(ctx, remote.ErrorStatus(err.Error()))
		var unknownCommand *UnknownCommandError
		var unknownType *UnknownTypeError
		if errors.As(err, &unknownCommand) || errors.As(err, &unknownType) {
			return err
		}
		if ctx.Err() != nil {
			logger.Info("command interrupted by shutdown", logging.Error(err))
			return nil
		}
		hint := "see encoder diagnostics in the error"
		if !services.Retryable(err) {
			hint = "the same command will fail again until the request or configuration changes"
		}
		logging.ErrorWithContext(logger, "command failed", "command_failed",
			logging.Error(err),
			logging.Bool("retryable", services.Retryable(err)),
			logging.String(logging.FieldErrorHint, hint),
		)
		return nil
	}

	l.report(ctx, remote.StatusIdle)
	logger.Info("command completed",
		logging.String(logging.FieldEventType, "command_completed"),
		logging.String("output_path", delivered),
	)
	if delivered != "" && l.uploader != nil {
		l.upload(ctx, logger, delivered)
	}
	return nil
}

// dispatch performs the command. delivered is the finished file, empty when
// nothing was finished (indefinite start, stop with no session).
func (l *Loop) dispatch(ctx context.Context, cmd remote.Command, device string) (delivered string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch %s: panic: %v", cmd.Action, r)
		}
	}()

	switch strings.ToLower(cmd.Action) {
	case "start":
		mode, ok := capture.ParseMode(cmd.Type)
		if !ok {
			return "", &UnknownTypeError{Type: cmd.Type}
		}
		req := capture.Request{
			Mode:         mode,
			Duration:     time.Duration(cmd.Duration) * time.Second,
			VideoQuality: capture.Quality(cmd.Quality),
			AudioQuality: capture.Quality(cmd.Quality),
		}
		if mode.NeedsDevice() {
			req.Device = device
		}
		path, err := l.recorder.Start(ctx, req)
		if err != nil || req.Indefinite() {
			return "", err
		}
		return path, nil
	case "stop":
		return l.recorder.Stop(ctx)
	case "screenshot":
		return l.recorder.Screenshot(ctx)
	default:
		return "", &UnknownCommandError{Action: cmd.Action}
	}
}

// report posts a status without letting failures affect the loop.
func (l *Loop) report(ctx context.Context, label string) {
	if ctx.Err() != nil {
		return
	}
	if err := l.feed.ReportStatus(ctx, remote.NewStatus(label, l.outputDir, l.now())); err != nil {
		logging.WithContext(ctx, l.logger).Debug("status report failed",
			logging.String("status", label),
			logging.Error(err),
		)
	}
}

func (l *Loop) upload(ctx context.Context, logger *slog.Logger, path string) {
	if err := l.uploader.Upload(ctx, path); err != nil {
		logging.WarnWithContext(logger, "upload failed", "upload_failed",
			logging.String("output_path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file kept locally only"),
			logging.String(logging.FieldErrorHint, "upload manually with recagent upload"),
		)
		return
	}
	logger.Info("file uploaded",
		logging.String(logging.FieldEventType, "upload_completed"),
		logging.String("output_path", path),
	)
}

package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"recagent/internal/capture"
	"recagent/internal/logging"
	"recagent/internal/services"
)

const (
	defaultStopGrace = 5 * time.Second
	defaultKillWait  = 5 * time.Second
)

// Supervisor owns the encoder subprocess for at most one recording session.
type Supervisor struct {
	binary    string
	backend   capture.Backend
	outputDir string

	exec             Executor
	journal          Journal
	logger           *slog.Logger
	now              func() time.Time
	stopGrace        time.Duration
	killWait         time.Duration
	keepIntermediate bool

	mu      sync.Mutex
	state   State
	current *session
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithExecutor injects a custom process launcher (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(s *Supervisor) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithJournal records session history.
func WithJournal(journal Journal) Option {
	return func(s *Supervisor) { s.journal = journal }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for output names.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStopGrace bounds how long Stop waits for the encoder to quit before killing it.
func WithStopGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.stopGrace = d
		}
	}
}

// WithKillWait bounds how long Stop waits for exit after a kill.
func WithKillWait(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.killWait = d
		}
	}
}

// WithKeepIntermediate controls whether remuxed .mkv intermediates are kept.
func WithKeepIntermediate(keep bool) Option {
	return func(s *Supervisor) { s.keepIntermediate = keep }
}

// New constructs a Supervisor that writes into outputDir using the given encoder binary.
func New(binary string, backend capture.Backend, outputDir string, opts ...Option) *Supervisor {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	s := &Supervisor{
		binary:           binary,
		backend:          backend,
		outputDir:        outputDir,
		exec:             commandExecutor{},
		logger:           logging.NewNop(),
		now:              time.Now,
		stopGrace:        defaultStopGrace,
		killWait:         defaultKillWait,
		keepIntermediate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "recorder")
	return s
}

// Status returns a snapshot of the current session, if any.
func (s *Supervisor) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{State: s.state}
	if s.current != nil {
		snap.SessionID = s.current.id
		snap.Mode = s.current.req.Mode
		snap.OutputPath = s.current.output
		snap.StartedAt = s.current.startedAt
	}
	return snap
}

// Exited returns a channel that receives the encoder's exit error once the
// current session's process ends, whether on its own or through Stop. With no
// session the channel is already closed.
func (s *Supervisor) Exited() <-chan error {
	ch := make(chan error, 1)
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()
	if sess == nil {
		close(ch)
		return ch
	}
	go func() {
		<-sess.done
		s.mu.Lock()
		err := sess.exitErr
		s.mu.Unlock()
		ch <- err
		close(ch)
	}()
	return ch
}

// Start launches a recording. Fixed-duration requests block until the encoder
// exits and return the finished file. Indefinite requests return the
// provisional output path immediately; the caller must later call Stop.
func (s *Supervisor) Start(ctx context.Context, req capture.Request) (string, error) {
	req = s.normalizeQuality(ctx, req)

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return "", ErrAlreadyRecording
	}

	startedAt := s.now()
	output := filepath.Join(s.outputDir, capture.RecordingName(req.Mode, req.Duration, startedAt))
	args, err := capture.Args(s.backend, req, output)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	if err := s.ensureOutputDir(); err != nil {
		s.mu.Unlock()
		return "", err
	}

	proc, err := s.exec.Start(s.binary, args)
	if err != nil {
		s.mu.Unlock()
		return "", &LaunchError{Binary: s.binary, Args: args, Err: err}
	}

	sess := &session{
		id:        services.NewID(),
		req:       req,
		proc:      proc,
		output:    output,
		startedAt: startedAt,
		done:      make(chan struct{}),
	}
	s.state = StateRunning
	s.current = sess
	s.mu.Unlock()

	ctx = services.WithSessionID(ctx, sess.id)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("recording started",
		logging.String(logging.FieldEventType, "recording_started"),
		logging.String("mode", string(req.Mode)),
		logging.String("output_path", output),
		logging.Duration("duration", req.Duration),
		logging.String("device", req.Device),
	)
	logger.Debug("encoder arguments", logging.String("args", strings.Join(args, " ")))

	s.journalBegin(ctx, sess)
	go s.watch(sess)

	if req.Indefinite() {
		return output, nil
	}

	select {
	case <-sess.done:
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.stopGrace+s.killWait)
		defer cancel()
		if _, stopErr := s.Stop(stopCtx); stopErr != nil {
			return "", errors.Join(ctx.Err(), stopErr)
		}
		return "", ctx.Err()
	}

	s.mu.Lock()
	exitErr, stopped := sess.exitErr, sess.stopRequested
	s.mu.Unlock()

	if exitErr != nil && !stopped {
		code, _ := exitCodeOf(exitErr)
		return "", &CaptureFailedError{
			Operation:  string(req.Mode) + " recording",
			ExitCode:   code,
			Diagnostic: proc.Diagnostics(),
			Err:        exitErr,
		}
	}
	logger.Info("recording finished",
		logging.String(logging.FieldEventType, "recording_finished"),
		logging.String("output_path", output),
	)
	return output, nil
}

// watch waits for the session's process to exit. When the process ends while
// the session is still running (fixed duration elapsed, or the encoder died)
// the supervisor returns to idle here.
func (s *Supervisor) watch(sess *session) {
	err := sess.proc.Wait()

	s.mu.Lock()
	sess.exitErr = err
	unattended := s.current == sess && s.state == StateRunning
	if unattended {
		s.current = nil
		s.state = StateIdle
	}
	s.mu.Unlock()
	// done closes after the journal write so a fixed-duration Start returns
	// with its history row already final.
	defer close(sess.done)

	if !unattended {
		return
	}

	ctx := services.WithSessionID(context.Background(), sess.id)
	logger := logging.WithContext(ctx, s.logger)
	result := SessionResult{Outcome: OutcomeCompleted, FinalPath: sess.output, EndedAt: s.now()}
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		logging.ErrorWithContext(logger, "encoder exited unexpectedly", "encoder_exited",
			logging.Error(err),
			logging.String("output_path", sess.output),
			logging.String("stderr", lastLines(sess.proc.Diagnostics(), 5)),
			logging.String(logging.FieldErrorHint, "check the capture device and encoder output"),
		)
	} else if sess.req.Indefinite() {
		logging.WarnWithContext(logger, "encoder exited before stop was requested", "encoder_exited",
			logging.String("output_path", sess.output),
			logging.String(logging.FieldImpact, "recording ended early"),
		)
	}
	s.journalFinish(ctx, sess.id, result)
}

// Stop ends the running session. With no running session it logs a warning
// and returns ("", nil) without touching the encoder. Session state is cleared
// on every path, including failures.
func (s *Supervisor) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateRunning || s.current == nil {
		state := s.state
		s.mu.Unlock()
		logging.WarnWithContext(s.logger, "stop requested but no recording is active", "stop_noop",
			logging.String("state", state.String()),
			logging.String(logging.FieldImpact, "nothing to stop"),
			logging.String(logging.FieldErrorHint, "start a recording before stopping"),
		)
		return "", nil
	}
	sess := s.current
	sess.stopRequested = true
	s.state = StateStopping
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.current == sess {
			s.current = nil
			s.state = StateIdle
		}
		s.mu.Unlock()
	}()

	ctx = services.WithSessionID(ctx, sess.id)
	logger := logging.WithContext(ctx, s.logger)

	forced, err := s.terminate(ctx, logger, sess)
	if err != nil {
		s.journalFinish(ctx, sess.id, SessionResult{Outcome: OutcomeFailed, FinalPath: sess.output, EndedAt: s.now(), Forced: forced, Err: err})
		return "", err
	}

	final := sess.output
	if capture.NeedsRemux(sess.output) {
		final, err = s.remux(ctx, logger, sess.output)
		if err != nil {
			s.journalFinish(ctx, sess.id, SessionResult{Outcome: OutcomeFailed, FinalPath: sess.output, EndedAt: s.now(), Forced: forced, Err: err})
			return "", err
		}
	}

	logger.Info("recording stopped",
		logging.String(logging.FieldEventType, "recording_stopped"),
		logging.String("output_path", final),
		logging.Bool("forced", forced),
		logging.Duration("elapsed", s.now().Sub(sess.startedAt).Round(time.Second)),
	)
	s.journalFinish(ctx, sess.id, SessionResult{Outcome: OutcomeStopped, FinalPath: final, EndedAt: s.now(), Forced: forced})
	return final, nil
}

// terminate asks the encoder to quit and races its exit against the grace
// period, killing it when the grace period or ctx wins.
func (s *Supervisor) terminate(ctx context.Context, logger *slog.Logger, sess *session) (bool, error) {
	forced := false
	if err := sess.proc.Quit(); err != nil {
		logging.WarnWithContext(logger, "graceful quit could not be delivered; killing encoder", "stop_quit_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "output may be truncated"),
		)
		forced = true
	} else {
		grace := time.NewTimer(s.stopGrace)
		defer grace.Stop()
		select {
		case <-sess.done:
			return false, nil
		case <-grace.C:
			logging.WarnWithContext(logger, "encoder did not exit within grace period; killing", "stop_grace_expired",
				logging.Duration("grace", s.stopGrace),
				logging.String(logging.FieldImpact, "output may be truncated"),
			)
		case <-ctx.Done():
			logger.Warn("stop cancelled; killing encoder", logging.Error(ctx.Err()))
		}
		forced = true
	}

	if err := sess.proc.Kill(); err != nil {
		logger.Warn("kill encoder failed", logging.Error(err))
	}
	wait := time.NewTimer(s.killWait)
	defer wait.Stop()
	select {
	case <-sess.done:
		return forced, nil
	case <-wait.C:
		return forced, services.Wrap(services.ErrTimeout, "recorder", "stop",
			fmt.Sprintf("encoder still running %s after kill", s.killWait), nil)
	}
}

func (s *Supervisor) remux(ctx context.Context, logger *slog.Logger, input string) (string, error) {
	output := capture.DeliveryPath(input)
	logger.Info("remuxing recording",
		logging.String(logging.FieldEventType, "remux_started"),
		logging.String("input", input),
		logging.String("output_path", output),
	)
	res, err := s.run(ctx, capture.RemuxArgs(input, output))
	if err != nil {
		return "", err
	}
	if res.exitCode != 0 {
		return "", &CaptureFailedError{Operation: "remux", ExitCode: res.exitCode, Diagnostic: res.diagnostics}
	}
	if !s.keepIntermediate {
		if err := os.Remove(input); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove intermediate failed", logging.String("path", input), logging.Error(err))
		}
	}
	return output, nil
}

// Screenshot grabs one frame. It does not depend on session state.
func (s *Supervisor) Screenshot(ctx context.Context) (string, error) {
	if err := s.ensureOutputDir(); err != nil {
		return "", err
	}
	takenAt := s.now()
	output := filepath.Join(s.outputDir, capture.ScreenshotName(takenAt))

	res, err := s.run(ctx, capture.ScreenshotArgs(s.backend, output))
	if err != nil {
		return "", err
	}
	if res.exitCode != 0 {
		return "", &CaptureFailedError{Operation: "screenshot", ExitCode: res.exitCode, Diagnostic: res.diagnostics}
	}

	id := services.NewID()
	ctx = services.WithSessionID(ctx, id)
	s.logger.Info("screenshot captured",
		logging.String(logging.FieldEventType, "screenshot_captured"),
		logging.String("output_path", output),
	)
	if s.journal != nil {
		s.journalBeginRecord(ctx, SessionRecord{ID: id, Mode: "screenshot", OutputPath: output, StartedAt: takenAt})
		s.journalFinish(ctx, id, SessionResult{Outcome: OutcomeCompleted, FinalPath: output, EndedAt: s.now()})
	}
	return output, nil
}

// ListAudioDevices enumerates capture-capable audio inputs. The enumeration
// invocation always exits non-zero, so only a launch failure is an error.
func (s *Supervisor) ListAudioDevices(ctx context.Context) ([]string, error) {
	res, err := s.run(ctx, capture.ListDevicesArgs(s.backend))
	if err != nil {
		return nil, err
	}
	devices := capture.ParseAudioDevices(res.diagnostics)
	s.logger.Debug("audio devices enumerated", logging.Int("count", len(devices)))
	return devices, nil
}

type runResult struct {
	exitCode    int
	diagnostics string
}

// run executes a short-lived encoder invocation and waits for it. ctx
// cancellation kills the process.
func (s *Supervisor) run(ctx context.Context, args []string) (runResult, error) {
	proc, err := s.exec.Start(s.binary, args)
	if err != nil {
		return runResult{}, &LaunchError{Binary: s.binary, Args: args, Err: err}
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- proc.Wait() }()

	select {
	case err = <-waitErr:
	case <-ctx.Done():
		_ = proc.Kill()
		select {
		case <-waitErr:
		case <-time.After(s.killWait):
		}
		return runResult{}, fmt.Errorf("%s %s: %w", s.binary, args[0], ctx.Err())
	}

	res := runResult{diagnostics: proc.Diagnostics()}
	if err != nil {
		code, ok := exitCodeOf(err)
		if !ok {
			return runResult{}, services.Wrap(services.ErrExternalTool, "recorder", "wait", s.binary, err)
		}
		res.exitCode = code
	}
	return res, nil
}

func (s *Supervisor) ensureOutputDir() error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "recorder", "prepare output", s.outputDir, err)
	}
	return nil
}

// normalizeQuality replaces unknown quality values with medium, warning once
// per request for the knob that actually applies to the mode.
func (s *Supervisor) normalizeQuality(ctx context.Context, req capture.Request) capture.Request {
	check := func(label string, q capture.Quality) capture.Quality {
		parsed, ok := capture.ParseQuality(string(q))
		if !ok {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "unknown quality; using medium", "quality_fallback",
				logging.String("quality", string(q)),
				logging.String("knob", label),
				logging.String(logging.FieldImpact, "recording uses medium quality"),
				logging.String(logging.FieldErrorHint, "use low, medium or high"),
			)
		}
		return parsed
	}
	switch req.Mode {
	case capture.ModeAudio:
		req.AudioQuality = check("audio", req.AudioQuality)
	case capture.ModeCombined:
		req.VideoQuality = check("video", req.VideoQuality)
		if req.AudioQuality == "" {
			req.AudioQuality = capture.QualityMedium
		}
	default:
		req.VideoQuality = check("video", req.VideoQuality)
	}
	return req
}

func (s *Supervisor) journalBegin(ctx context.Context, sess *session) {
	quality := sess.req.VideoQuality
	if sess.req.Mode == capture.ModeAudio {
		quality = sess.req.AudioQuality
	}
	s.journalBeginRecord(ctx, SessionRecord{
		ID:         sess.id,
		Mode:       string(sess.req.Mode),
		Device:     sess.req.Device,
		Quality:    string(quality),
		OutputPath: sess.output,
		Duration:   sess.req.Duration,
		StartedAt:  sess.startedAt,
	})
}

func (s *Supervisor) journalBeginRecord(ctx context.Context, rec SessionRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Begin(ctx, rec); err != nil {
		s.logger.Warn("journal begin failed", logging.String("session", rec.ID), logging.Error(err))
	}
}

func (s *Supervisor) journalFinish(ctx context.Context, id string, result SessionResult) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Finish(context.WithoutCancel(ctx), id, result); err != nil {
		s.logger.Warn("journal finish failed", logging.String("session", id), logging.Error(err))
	}
}

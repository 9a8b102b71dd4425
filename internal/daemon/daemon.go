package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"recagent/internal/logging"
	"recagent/internal/recorder"
	"recagent/internal/services"
)

// ErrAlreadyRunning is returned when another agent holds the lock.
var ErrAlreadyRunning = fmt.Errorf("%w: another recagent instance is already running", services.ErrValidation)

// Loop is the dispatch loop the daemon drives.
type Loop interface {
	Run(ctx context.Context) error
}

// Recorder is the supervisor view needed at shutdown.
type Recorder interface {
	Status() recorder.Snapshot
	Stop(ctx context.Context) (string, error)
}

// Catalog closes history rows left open by an earlier process.
type Catalog interface {
	MarkAbandoned(ctx context.Context, at time.Time) (int64, error)
}

const defaultShutdownTimeout = 2 * time.Minute

// Daemon runs the dispatch loop under a single-instance lock.
type Daemon struct {
	recorder        Recorder
	loop            Loop
	catalog         Catalog
	logger          *slog.Logger
	lockPath        string
	lock            *flock.Flock
	shutdownTimeout time.Duration
	now             func() time.Time

	running atomic.Bool
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithCatalog enables orphaned-session cleanup at startup.
func WithCatalog(c Catalog) Option {
	return func(d *Daemon) { d.catalog = c }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithShutdownTimeout bounds the final stop, including any remux.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(d *Daemon) {
		if timeout > 0 {
			d.shutdownTimeout = timeout
		}
	}
}

// New constructs a daemon locking lockPath.
func New(lockPath string, rec Recorder, loop Loop, opts ...Option) (*Daemon, error) {
	if rec == nil || loop == nil {
		return nil, errors.New("daemon requires a recorder and a dispatch loop")
	}
	if lockPath == "" {
		return nil, errors.New("daemon requires a lock path")
	}
	d := &Daemon{
		recorder:        rec,
		loop:            loop,
		logger:          logging.NewNop(),
		lockPath:        lockPath,
		lock:            flock.New(lockPath),
		shutdownTimeout: defaultShutdownTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "daemon")
	return d, nil
}

// Running reports whether Run is in progress.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Run holds the lock and drives the loop until ctx is cancelled or the loop
// terminates. An active recording is stopped before Run returns.
func (d *Daemon) Run(ctx context.Context) (err error) {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if unlockErr := d.lock.Unlock(); unlockErr != nil {
			d.logger.Warn("failed to release agent lock",
				logging.Error(unlockErr),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldImpact, "next start may report another instance"),
				logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no agent is running"),
			)
		}
	}()

	d.closeAbandoned(ctx)
	d.logger.Info("recagent started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
	)

	err = d.loop.Run(ctx)
	d.shutdown(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("recagent stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return nil
}

func (d *Daemon) closeAbandoned(ctx context.Context) {
	if d.catalog == nil {
		return
	}
	n, err := d.catalog.MarkAbandoned(ctx, d.now())
	if err != nil {
		logging.WarnWithContext(d.logger, "failed to close abandoned sessions", "catalog_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history may show stale recording sessions"),
		)
		return
	}
	if n > 0 {
		d.logger.Info("closed abandoned sessions",
			logging.String(logging.FieldEventType, "catalog_cleanup"),
			logging.Int64("count", n),
		)
	}
}

// shutdown stops an active recording with a context detached from ctx, which
// is usually already cancelled by the time the loop returns.
func (d *Daemon) shutdown(ctx context.Context) {
	snap := d.recorder.Status()
	if snap.State == recorder.StateIdle {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.shutdownTimeout)
	defer cancel()
	stopCtx = services.WithSessionID(stopCtx, snap.SessionID)
	logger := logging.WithContext(stopCtx, d.logger)

	logger.Info("stopping active recording for shutdown",
		logging.String(logging.FieldEventType, "shutdown_stop"),
		logging.String("state", snap.State.String()),
		logging.String("output_path", snap.OutputPath),
	)
	path, err := d.recorder.Stop(stopCtx)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to finalize recording at shutdown", "shutdown_stop_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "recording may be truncated"),
			logging.String(logging.FieldErrorHint, "check the intermediate file in the output directory"),
		)
		return
	}
	logger.Info("recording finalized at shutdown",
		logging.String(logging.FieldEventType, "shutdown_stop_completed"),
		logging.String("output_path", path),
	)
}

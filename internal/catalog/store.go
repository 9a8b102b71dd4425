package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"recagent/internal/recorder"
	"recagent/internal/services"
)

// Session is one row of capture history.
type Session struct {
	ID         string
	Mode       string
	Device     string
	Quality    string
	OutputPath string
	FinalPath  string
	Duration   time.Duration
	Outcome    string
	Forced     bool
	Error      string
	StartedAt  time.Time
	EndedAt    *time.Time
}

// Path returns the delivered file when known, else the capture target.
func (s Session) Path() string {
	if s.FinalPath != "" {
		return s.FinalPath
	}
	return s.OutputPath
}

// Store persists sessions in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ recorder.Journal = (*Store)(nil)

// Open creates or opens the catalog database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps WAL pragmas and writes serialized.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a session in the recording state.
func (s *Store) Begin(ctx context.Context, rec recorder.SessionRecord) error {
	if rec.ID == "" {
		return services.Wrap(services.ErrValidation, "catalog", "begin", "session id is required", nil)
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (
            id, mode, device, quality, output_path, duration_seconds, outcome, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Mode,
		nullableString(rec.Device),
		nullableString(rec.Quality),
		rec.OutputPath,
		int64(rec.Duration/time.Second),
		recorder.OutcomeRecording,
		formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Finish stores how a session ended.
func (s *Store) Finish(ctx context.Context, id string, result recorder.SessionResult) error {
	ended := result.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	var errText string
	if result.Err != nil {
		errText = result.Err.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
            SET outcome = ?, final_path = ?, forced = ?, error_message = ?, ended_at = ?
          WHERE id = ?`,
		result.Outcome,
		nullableString(result.FinalPath),
		boolToInt(result.Forced),
		nullableString(errText),
		formatTime(ended),
		id,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "finish", "session "+id+" not found", nil)
	}
	return nil
}

// Get returns one session.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get", "session "+id+" not found", nil)
	}
	return session, err
}

// List returns the most recent sessions first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	query := selectColumns + " ORDER BY started_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// MarkAbandoned closes sessions left in the recording state by a previous
// process that exited without finishing them.
func (s *Store) MarkAbandoned(ctx context.Context, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
            SET outcome = ?, error_message = ?, ended_at = ?
          WHERE outcome = ?`,
		recorder.OutcomeFailed,
		"agent exited while recording",
		formatTime(at),
		recorder.OutcomeRecording,
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned sessions: %w", err)
	}
	return res.RowsAffected()
}

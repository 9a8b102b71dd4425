package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

const selectColumns = `SELECT id, mode, device, quality, output_path, final_path,
        duration_seconds, outcome, forced, error_message, started_at, ended_at
   FROM sessions`

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		session                                     Session
		device, quality, finalPath, errMsg, endedAt sql.NullString
		durationSeconds                             int64
		forced                                      int
		startedAt                                   string
	)
	if err := scanner.Scan(
		&session.ID,
		&session.Mode,
		&device,
		&quality,
		&session.OutputPath,
		&finalPath,
		&durationSeconds,
		&session.Outcome,
		&forced,
		&errMsg,
		&startedAt,
		&endedAt,
	); err != nil {
		return nil, err
	}
	session.Device = device.String
	session.Quality = quality.String
	session.FinalPath = finalPath.String
	session.Error = errMsg.String
	session.Duration = time.Duration(durationSeconds) * time.Second
	session.Forced = forced != 0

	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at for %s: %w", session.ID, err)
	}
	session.StartedAt = started
	if endedAt.Valid {
		if ended, err := time.Parse(time.RFC3339Nano, endedAt.String); err == nil {
			session.EndedAt = &ended
		}
	}
	return &session, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

package remote

import (
	"fmt"
	"time"
)

// Command is one decoded command from the feed. Absent fields keep their
// zero values except Quality, which defaults to "medium".
type Command struct {
	Action   string `json:"action"`
	Type     string `json:"type"`
	Duration int    `json:"duration"`
	Quality  string `json:"quality"`
}

// Empty reports whether the feed had nothing for us to do.
func (c Command) Empty() bool {
	return c.Action == ""
}

// Status is the report posted back to the control service. StartTime is
// RFC3339 with whole seconds.
type Status struct {
	Status      string `json:"status"`
	CurrentFile string `json:"currentFile"`
	StartTime   string `json:"startTime"`
	Duration    string `json:"duration"`
}

// Status labels understood by the control service. Errors are reported as
// "error: <message>".
const (
	StatusIdle       = "idle"
	StatusProcessing = "processing"
)

// ErrorStatus formats an error label.
func ErrorStatus(message string) string {
	return "error: " + message
}

// NewStatus builds a report for the given label. currentFile carries the
// output directory and duration is always zero.
func NewStatus(label, currentFile string, at time.Time) Status {
	return Status{
		Status:      label,
		CurrentFile: currentFile,
		StartTime:   at.Format(time.RFC3339),
		Duration:    formatSpan(0),
	}
}

// formatSpan renders a duration as hh:mm:ss.
func formatSpan(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

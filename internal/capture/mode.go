package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"recagent/internal/services"
)

// Mode selects which inputs a recording captures.
type Mode string

const (
	ModeScreen   Mode = "screen"
	ModeAudio    Mode = "audio"
	ModeCombined Mode = "combined"
)

// ParseMode resolves a mode name case-insensitively.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeScreen:
		return ModeScreen, true
	case ModeAudio:
		return ModeAudio, true
	case ModeCombined:
		return ModeCombined, true
	default:
		return "", false
	}
}

// NeedsDevice reports whether the mode captures an audio input.
func (m Mode) NeedsDevice() bool {
	return m == ModeAudio || m == ModeCombined
}

// Quality is the coarse quality knob exposed to callers.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality maps a quality name to a Quality. Unknown or empty values fall
// back to medium and report ok=false so callers can warn.
func ParseQuality(value string) (Quality, bool) {
	switch Quality(strings.ToLower(strings.TrimSpace(value))) {
	case QualityLow:
		return QualityLow, true
	case QualityMedium:
		return QualityMedium, true
	case QualityHigh:
		return QualityHigh, true
	default:
		return QualityMedium, false
	}
}

// CRF returns the libx264 constant rate factor for the quality.
func (q Quality) CRF() int {
	switch q {
	case QualityLow:
		return 28
	case QualityHigh:
		return 18
	default:
		return 23
	}
}

// AudioBitrate returns the libmp3lame bitrate for the quality.
func (q Quality) AudioBitrate() string {
	switch q {
	case QualityLow:
		return "64k"
	case QualityHigh:
		return "192k"
	default:
		return "128k"
	}
}

// ErrInvalidRequest marks a request that cannot be turned into encoder arguments.
var ErrInvalidRequest = errors.New("invalid capture request")

// Request describes one recording.
type Request struct {
	Mode         Mode
	Duration     time.Duration // zero records until stopped
	VideoQuality Quality
	AudioQuality Quality
	Device       string
}

// Indefinite reports whether the recording runs until explicitly stopped.
func (r Request) Indefinite() bool {
	return r.Duration == 0
}

// Validate checks the request invariants.
func (r Request) Validate() error {
	if _, ok := ParseMode(string(r.Mode)); !ok {
		return invalid(fmt.Sprintf("unknown recording mode %q", r.Mode))
	}
	if r.Duration < 0 {
		return invalid("duration must not be negative")
	}
	if r.Mode.NeedsDevice() && strings.TrimSpace(r.Device) == "" {
		return invalid(fmt.Sprintf("%s recording requires an audio device", r.Mode))
	}
	return nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "capture", "validate request", message, ErrInvalidRequest)
}

package capture

import (
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "20060102_150405"

// Extension returns the container for a recording. Indefinite combined
// recordings go to Matroska so an abrupt stop still leaves a playable file.
func Extension(mode Mode, duration time.Duration) string {
	switch mode {
	case ModeAudio:
		return "mp3"
	case ModeCombined:
		if duration == 0 {
			return "mkv"
		}
		return "mp4"
	default:
		return "mp4"
	}
}

// RecordingName returns {mode}_recording_{yyyyMMdd_HHmmss}.{ext}.
func RecordingName(mode Mode, duration time.Duration, at time.Time) string {
	return string(mode) + "_recording_" + at.Format(timestampLayout) + "." + Extension(mode, duration)
}

// ScreenshotName returns screenshot_{yyyyMMdd_HHmmss}.png.
func ScreenshotName(at time.Time) string {
	return "screenshot_" + at.Format(timestampLayout) + ".png"
}

// DeliveryPath returns where a finished recording ends up. Matroska
// intermediates are remuxed into an MP4 next to them.
func DeliveryPath(path string) string {
	if NeedsRemux(path) {
		return strings.TrimSuffix(path, filepath.Ext(path)) + ".mp4"
	}
	return path
}

// NeedsRemux reports whether a recording must be converted after stopping.
func NeedsRemux(path string) bool {
	return strings.EqualFold(extensionOf(path), "mkv")
}

func extensionOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

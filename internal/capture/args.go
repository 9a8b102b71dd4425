package capture

import (
	"strconv"
	"strings"
	"time"
)

// Backend names the platform capture devices handed to ffmpeg.
type Backend struct {
	ScreenFormat     string
	ScreenInput      string
	AudioFormat      string
	AudioInputPrefix string
	Framerate        int
	Preset           string
}

func (b Backend) preset() string {
	if strings.TrimSpace(b.Preset) == "" {
		return "veryfast"
	}
	return b.Preset
}

func (b Backend) framerate() int {
	if b.Framerate <= 0 {
		return 30
	}
	return b.Framerate
}

func (b Backend) audioInput(device string) string {
	return b.AudioInputPrefix + device
}

// Args builds the encoder arguments for a validated request.
func Args(b Backend, req Request, out string) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch req.Mode {
	case ModeAudio:
		return AudioArgs(b, req.Duration, req.AudioQuality, req.Device, out), nil
	case ModeCombined:
		return CombinedArgs(b, req.Duration, req.VideoQuality, req.Device, out), nil
	default:
		return ScreenArgs(b, req.Duration, req.VideoQuality, out), nil
	}
}

// ScreenArgs captures the screen into H.264. The output is not forced with -y
// since screen files carry a per-second timestamp.
func ScreenArgs(b Backend, duration time.Duration, quality Quality, out string) []string {
	args := []string{"-f", b.ScreenFormat, "-i", b.ScreenInput}
	args = appendDuration(args, duration)
	args = append(args,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-crf", strconv.Itoa(quality.CRF()),
		"-preset", b.preset(),
		out,
	)
	return args
}

// AudioArgs captures one audio input into MP3.
func AudioArgs(b Backend, duration time.Duration, quality Quality, device, out string) []string {
	args := []string{"-f", b.AudioFormat, "-i", b.audioInput(device)}
	args = appendDuration(args, duration)
	args = append(args,
		"-acodec", "libmp3lame",
		"-b:a", quality.AudioBitrate(),
		"-y", out,
	)
	return args
}

// CombinedArgs captures screen and one audio input. Audio is always AAC at
// 128k; the audio quality knob does not apply to combined recordings.
func CombinedArgs(b Backend, duration time.Duration, videoQuality Quality, device, out string) []string {
	args := []string{
		"-f", b.ScreenFormat,
		"-framerate", strconv.Itoa(b.framerate()),
		"-i", b.ScreenInput,
		"-f", b.AudioFormat,
		"-i", b.audioInput(device),
	}
	args = appendDuration(args, duration)
	args = append(args,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-crf", strconv.Itoa(videoQuality.CRF()),
		"-preset", b.preset(),
		"-c:a", "aac",
		"-b:a", "128k",
	)
	if strings.EqualFold(extensionOf(out), "mp4") {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, "-y", out)
}

// ScreenshotArgs grabs a single frame.
func ScreenshotArgs(b Backend, out string) []string {
	return []string{
		"-f", b.ScreenFormat,
		"-i", b.ScreenInput,
		"-vframes", "1",
		"-q:v", "2",
		"-y", out,
	}
}

// ListDevicesArgs asks the audio backend to print its devices on stderr.
func ListDevicesArgs(b Backend) []string {
	return []string{"-list_devices", "true", "-f", b.AudioFormat, "-i", "dummy"}
}

// RemuxArgs rewraps a container without re-encoding.
func RemuxArgs(in, out string) []string {
	return []string{"-i", in, "-c", "copy", "-y", out}
}

func appendDuration(args []string, duration time.Duration) []string {
	if duration <= 0 {
		return args
	}
	return append(args, "-t", strconv.FormatFloat(duration.Seconds(), 'f', -1, 64))
}

package config

import (
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

const (
	defaultBaseURL          = "http://localhost:5000"
	defaultCommandPath      = "/api/recording/command"
	defaultStatusPath       = "/api/recording/status"
	defaultUploadPath       = "/api/recording/upload"
	defaultRequestTimeout   = 10
	defaultEncoderBinary    = "ffmpeg"
	defaultFramerate        = 30
	defaultPreset           = "veryfast"
	defaultStopGraceSeconds = 5
	defaultKillWaitSeconds  = 5
	defaultPollInterval     = 1
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	stateDir := filepath.Join(xdg.StateHome, "recagent")
	return Config{
		Paths: Paths{
			OutputDir: filepath.Join(xdg.DataHome, "recagent", "recordings"),
			StateDir:  stateDir,
			LogDir:    filepath.Join(stateDir, "logs"),
		},
		Remote: Remote{
			BaseURL:        defaultBaseURL,
			CommandPath:    defaultCommandPath,
			StatusPath:     defaultStatusPath,
			UploadPath:     defaultUploadPath,
			RequestTimeout: defaultRequestTimeout,
		},
		Encoder: defaultEncoder(runtime.GOOS),
		Recorder: Recorder{
			StopGraceSeconds: defaultStopGraceSeconds,
			KillWaitSeconds:  defaultKillWaitSeconds,
			KeepIntermediate: true,
		},
		Dispatch: Dispatch{
			PollInterval: defaultPollInterval,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// defaultEncoder picks the capture devices ffmpeg exposes on each platform.
func defaultEncoder(goos string) Encoder {
	enc := Encoder{
		Binary:    defaultEncoderBinary,
		Framerate: defaultFramerate,
		Preset:    defaultPreset,
	}
	switch goos {
	case "windows":
		enc.ScreenFormat = "gdigrab"
		enc.ScreenInput = "desktop"
		enc.AudioFormat = "dshow"
		enc.AudioInputPrefix = "audio="
	case "darwin":
		enc.ScreenFormat = "avfoundation"
		enc.ScreenInput = "1:none"
		enc.AudioFormat = "avfoundation"
		enc.AudioInputPrefix = ":"
	default:
		enc.ScreenFormat = "x11grab"
		enc.ScreenInput = ":0.0"
		enc.AudioFormat = "pulse"
		enc.AudioInputPrefix = ""
	}
	return enc
}

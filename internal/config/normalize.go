package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeEncoder()
	c.normalizeRecorder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" && c.Paths.StateDir != "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() {
	if value, ok := os.LookupEnv("RECAGENT_API_URL"); ok && strings.TrimSpace(value) != "" {
		c.Remote.BaseURL = value
	}
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = defaultBaseURL
	}
	c.Remote.CommandPath = normalizeEndpoint(c.Remote.CommandPath, defaultCommandPath)
	c.Remote.StatusPath = normalizeEndpoint(c.Remote.StatusPath, defaultStatusPath)
	c.Remote.UploadPath = normalizeEndpoint(c.Remote.UploadPath, defaultUploadPath)
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRequestTimeout
	}
}

func normalizeEndpoint(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}

func (c *Config) normalizeEncoder() {
	c.Encoder.Binary = strings.TrimSpace(c.Encoder.Binary)
	if c.Encoder.Binary == "" {
		c.Encoder.Binary = defaultEncoderBinary
	}
	c.Encoder.ScreenFormat = strings.TrimSpace(c.Encoder.ScreenFormat)
	c.Encoder.ScreenInput = strings.TrimSpace(c.Encoder.ScreenInput)
	c.Encoder.AudioFormat = strings.TrimSpace(c.Encoder.AudioFormat)
	c.Encoder.Preset = strings.TrimSpace(c.Encoder.Preset)
	if c.Encoder.Preset == "" {
		c.Encoder.Preset = defaultPreset
	}
	if c.Encoder.Framerate <= 0 {
		c.Encoder.Framerate = defaultFramerate
	}
}

func (c *Config) normalizeRecorder() {
	c.Recorder.DefaultAudioDevice = strings.TrimSpace(c.Recorder.DefaultAudioDevice)
	if c.Dispatch.PollInterval <= 0 {
		c.Dispatch.PollInterval = defaultPollInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

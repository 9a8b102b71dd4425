package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateRemote() error {
	parsed, err := url.Parse(c.Remote.BaseURL)
	if err != nil {
		return fmt.Errorf("remote.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("remote.base_url must use http or https, got %q", c.Remote.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("remote.base_url must include a host, got %q", c.Remote.BaseURL)
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.ScreenFormat == "" {
		return errors.New("encoder.screen_format must be set")
	}
	if c.Encoder.ScreenInput == "" {
		return errors.New("encoder.screen_input must be set")
	}
	if c.Encoder.AudioFormat == "" {
		return errors.New("encoder.audio_format must be set")
	}
	return nil
}

func (c *Config) validateTiming() error {
	return ensurePositiveMap(map[string]int{
		"remote.request_timeout":      c.Remote.RequestTimeout,
		"recorder.stop_grace_seconds": c.Recorder.StopGraceSeconds,
		"recorder.kill_wait_seconds":  c.Recorder.KillWaitSeconds,
		"dispatch.poll_interval":      c.Dispatch.PollInterval,
		"encoder.framerate":           c.Encoder.Framerate,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Remote contains the command/status feed endpoints.
type Remote struct {
	BaseURL         string `toml:"base_url"`
	CommandPath     string `toml:"command_path"`
	StatusPath      string `toml:"status_path"`
	UploadPath      string `toml:"upload_path"`
	RequestTimeout  int    `toml:"request_timeout"`
	UploadCompleted bool   `toml:"upload_completed"`
}

// Encoder describes the external capture binary and its input backend.
type Encoder struct {
	Binary           string `toml:"binary"`
	ScreenFormat     string `toml:"screen_format"`
	ScreenInput      string `toml:"screen_input"`
	AudioFormat      string `toml:"audio_format"`
	AudioInputPrefix string `toml:"audio_input_prefix"`
	Framerate        int    `toml:"framerate"`
	Preset           string `toml:"preset"`
}

// Recorder contains session supervision settings.
type Recorder struct {
	StopGraceSeconds   int    `toml:"stop_grace_seconds"`
	KillWaitSeconds    int    `toml:"kill_wait_seconds"`
	KeepIntermediate   bool   `toml:"keep_intermediate"`
	DefaultAudioDevice string `toml:"default_audio_device"`
}

// Dispatch contains polling loop timing.
type Dispatch struct {
	PollInterval int `toml:"poll_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for recagent.
//
// Configuration sections by subsystem:
//   - Paths: recording output, state (catalog, lock) and log directories
//   - Remote: command feed, status feed and upload endpoints
//   - Encoder: ffmpeg binary and capture backend
//   - Recorder: stop grace period, kill wait and remux behaviour
//   - Dispatch: poll interval
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Remote   Remote   `toml:"remote"`
	Encoder  Encoder  `toml:"encoder"`
	Recorder Recorder `toml:"recorder"`
	Dispatch Dispatch `toml:"dispatch"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdg.ConfigHome, "recagent", "config.toml"))
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recagent.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the recorder and daemon write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the SQLite session catalog location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.StateDir, "recagent.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "recagent.lock")
}

// PollInterval returns the dispatch loop sleep between cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Dispatch.PollInterval) * time.Second
}

// StopGrace returns how long a graceful stop may take before the encoder is killed.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Recorder.StopGraceSeconds) * time.Second
}

// KillWait bounds the wait for process exit after a forced kill.
func (c *Config) KillWait() time.Duration {
	return time.Duration(c.Recorder.KillWaitSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout for the remote feed.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Remote.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

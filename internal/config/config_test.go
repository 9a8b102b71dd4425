package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"recagent/internal/config"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))
	t.Setenv("RECAGENT_API_URL", "")
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	t.Chdir(home)
	return home
}

func TestLoadDefaultsWhenConfigMissing(t *testing.T) {
	home := isolateHome(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".config", "recagent", "config.toml"); resolved != want {
		t.Fatalf("resolved path = %q, want %q", resolved, want)
	}
	if want := filepath.Join(home, ".local", "share", "recagent", "recordings"); cfg.Paths.OutputDir != want {
		t.Fatalf("output dir = %q, want %q", cfg.Paths.OutputDir, want)
	}
	if want := filepath.Join(home, ".local", "state", "recagent", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("log dir = %q, want %q", cfg.Paths.LogDir, want)
	}
	if cfg.Remote.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected base url %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.CommandPath != "/api/recording/command" || cfg.Remote.StatusPath != "/api/recording/status" {
		t.Fatalf("unexpected endpoints %q %q", cfg.Remote.CommandPath, cfg.Remote.StatusPath)
	}
	if cfg.StopGrace().Seconds() != 5 {
		t.Fatalf("expected 5s stop grace, got %s", cfg.StopGrace())
	}
	if cfg.PollInterval().Seconds() != 1 {
		t.Fatalf("expected 1s poll interval, got %s", cfg.PollInterval())
	}
	if cfg.Encoder.Binary != "ffmpeg" {
		t.Fatalf("unexpected encoder binary %q", cfg.Encoder.Binary)
	}
	if !cfg.Recorder.KeepIntermediate {
		t.Fatal("expected intermediate files kept by default")
	}
	if cfg.CatalogPath() != filepath.Join(cfg.Paths.StateDir, "recagent.db") {
		t.Fatalf("unexpected catalog path %q", cfg.CatalogPath())
	}
}

func TestLoadCustomPathExpandsTilde(t *testing.T) {
	home := isolateHome(t)

	configPath := filepath.Join(home, "custom.toml")
	content := `[paths]
output_dir = "~/captures"
state_dir = "~/state"

[remote]
base_url = "https://control.example.com/"
command_path = "api/cmd"

[encoder]
screen_format = "gdigrab"
screen_input = "desktop"
audio_format = "dshow"
audio_input_prefix = "audio="

[dispatch]
poll_interval = 3

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(home, "captures") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.LogDir != filepath.Join(home, ".local", "state", "recagent", "logs") {
		t.Fatalf("log dir should keep its default, got %q", cfg.Paths.LogDir)
	}
	if cfg.Remote.BaseURL != "https://control.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.CommandPath != "/api/cmd" {
		t.Fatalf("expected leading slash added, got %q", cfg.Remote.CommandPath)
	}
	if cfg.Encoder.AudioInputPrefix != "audio=" {
		t.Fatalf("unexpected audio prefix %q", cfg.Encoder.AudioInputPrefix)
	}
	if cfg.PollInterval().Seconds() != 3 {
		t.Fatalf("unexpected poll interval %s", cfg.PollInterval())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	home := isolateHome(t)
	configPath := filepath.Join(home, "bad.toml")
	if err := os.WriteFile(configPath, []byte("[remote]\nbase_uri = \"http://x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvOverridesBaseURL(t *testing.T) {
	isolateHome(t)
	t.Setenv("RECAGENT_API_URL", "http://10.0.0.5:8080/")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Remote.BaseURL != "http://10.0.0.5:8080" {
		t.Fatalf("expected env base url, got %q", cfg.Remote.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"ftp scheme":     func(c *config.Config) { c.Remote.BaseURL = "ftp://example.com" },
		"missing host":   func(c *config.Config) { c.Remote.BaseURL = "http://" },
		"zero grace":     func(c *config.Config) { c.Recorder.StopGraceSeconds = 0 },
		"no screen":      func(c *config.Config) { c.Encoder.ScreenFormat = "" },
		"bad level":      func(c *config.Config) { c.Logging.Level = "loud" },
		"empty output":   func(c *config.Config) { c.Paths.OutputDir = "" },
		"negative fetch": func(c *config.Config) { c.Remote.RequestTimeout = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "state", "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if parsed.Remote.CommandPath != "/api/recording/command" {
		t.Fatalf("unexpected command path in sample: %q", parsed.Remote.CommandPath)
	}
	if !strings.Contains(string(data), "stop_grace_seconds") {
		t.Fatal("sample should document stop_grace_seconds")
	}
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"recagent/internal/config"
	"recagent/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("RECAGENT_API_URL", "")

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

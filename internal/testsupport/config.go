package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"recagent/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory. The
// output, state and log directories are created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "recordings")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Remote.BaseURL = "http://127.0.0.1:1"
	cfgVal.Recorder.DefaultAudioDevice = ""

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBaseURL points the remote section at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.BaseURL = url
	}
}

// WithEncoderStub writes a shell script acting as the encoder and configures
// it as the encoder binary. The body runs under /bin/sh.
func WithEncoderStub(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.Binary = WriteStub(b.t, filepath.Join(b.baseDir, "bin"), "ffmpeg", body)
	}
}

// WriteStub writes an executable shell script and returns its path.
func WriteStub(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

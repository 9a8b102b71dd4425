package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"recagent/internal/services"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
}

func TestCheckBinaries(t *testing.T) {
	skipOnWindows(t)
	present := writeStub(t, t.TempDir(), "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank status %#v", results[2])
	}
}

func TestProbeEncoderReturnsVersionLine(t *testing.T) {
	skipOnWindows(t)
	stub := writeStub(t, t.TempDir(), "ffmpeg", `echo ""; echo "ffmpeg version 7.1 Copyright (c)"; echo "built with gcc"`)

	version, err := ProbeEncoder(context.Background(), stub)
	if err != nil {
		t.Fatalf("ProbeEncoder returned error: %v", err)
	}
	if version != "ffmpeg version 7.1 Copyright (c)" {
		t.Fatalf("unexpected version %q", version)
	}
}

func TestProbeEncoderFailures(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	if _, err := ProbeEncoder(context.Background(), ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	failing := writeStub(t, dir, "broken", "exit 3")
	if _, err := ProbeEncoder(context.Background(), failing); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, err := ProbeEncoder(context.Background(), filepath.Join(dir, "absent")); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for missing binary, got %v", err)
	}
}

func TestProbeEncoderHonoursCancellation(t *testing.T) {
	skipOnWindows(t)
	slow := writeStub(t, t.TempDir(), "slow", "exec sleep 30")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ProbeEncoder(ctx, slow); err == nil {
		t.Fatal("expected error for cancelled probe")
	}
}

func TestEncoderStatus(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	good := writeStub(t, dir, "ffmpeg", `echo "ffmpeg version n7"`)
	bad := writeStub(t, dir, "ffbad", "exit 1")

	if status := EncoderStatus(context.Background(), good); !status.Available || status.Detail != "ffmpeg version n7" {
		t.Fatalf("unexpected status %#v", status)
	}
	if status := EncoderStatus(context.Background(), bad); status.Available || status.Detail == "" {
		t.Fatalf("expected failing probe to be unavailable, got %#v", status)
	}
	if status := EncoderStatus(context.Background(), filepath.Join(dir, "missing")); status.Available {
		t.Fatalf("expected missing encoder to be unavailable, got %#v", status)
	}
}

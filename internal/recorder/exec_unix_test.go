//go:build unix

package recorder_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recagent/internal/capture"
	"recagent/internal/recorder"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestRealProcessGracefulStop(t *testing.T) {
	stub := writeStub(t, `read line
[ "$line" = "q" ] && exit 0
exit 3`)
	sup := recorder.New(stub, testBackend, t.TempDir(), recorder.WithStopGrace(5*time.Second))

	if _, err := sup.Start(context.Background(), capture.Request{Mode: capture.ModeScreen}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	started := time.Now()
	path, err := sup.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if !strings.HasSuffix(path, ".mp4") {
		t.Fatalf("unexpected path %q", path)
	}
	if time.Since(started) > 3*time.Second {
		t.Fatal("graceful stop should not wait for the grace period")
	}
}

func TestRealProcessKilledAfterGrace(t *testing.T) {
	stub := writeStub(t, `trap '' INT TERM
while true; do sleep 1; done`)
	sup := recorder.New(stub, testBackend, t.TempDir(),
		recorder.WithStopGrace(100*time.Millisecond),
		recorder.WithKillWait(3*time.Second),
	)

	if _, err := sup.Start(context.Background(), capture.Request{Mode: capture.ModeScreen}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	started := time.Now()
	if _, err := sup.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 4*time.Second {
		t.Fatalf("forced stop took %s", elapsed)
	}
	if sup.Status().State != recorder.StateIdle {
		t.Fatal("expected idle after forced stop")
	}
}

func TestRealProcessScreenshotFailure(t *testing.T) {
	stub := writeStub(t, `echo "Error opening input: device busy" >&2
exit 1`)
	sup := recorder.New(stub, testBackend, t.TempDir())

	_, err := sup.Screenshot(context.Background())
	var failed *recorder.CaptureFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected CaptureFailedError, got %v", err)
	}
	if failed.ExitCode != 1 || !strings.Contains(failed.Diagnostic, "device busy") {
		t.Fatalf("unexpected failure %+v", failed)
	}
}

func TestRealProcessMissingBinary(t *testing.T) {
	sup := recorder.New(filepath.Join(t.TempDir(), "missing-ffmpeg"), testBackend, t.TempDir())
	if _, err := sup.Start(context.Background(), capture.Request{Mode: capture.ModeScreen}); !errors.As(err, new(*recorder.LaunchError)) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
}

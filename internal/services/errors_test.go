package services_test

import (
	"errors"
	"strings"
	"testing"

	"recagent/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "recorder", "remux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"recorder", "remux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(nil) {
		t.Fatal("nil error should not be retryable")
	}
	validation := services.Wrap(services.ErrValidation, "capture", "build", "device required", nil)
	if services.Retryable(validation) {
		t.Fatal("validation errors should not be retryable")
	}
	transient := services.Wrap(services.ErrTransient, "remote", "fetch", "connection refused", errors.New("io"))
	if !services.Retryable(transient) {
		t.Fatal("transient errors should be retryable")
	}
}

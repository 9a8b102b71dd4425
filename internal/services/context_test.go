package services_test

import (
	"context"
	"testing"

	"recagent/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "sess-1")
	ctx = services.WithCommandID(ctx, "cmd-9")
	ctx = services.WithAction(ctx, "start")

	if id, ok := services.SessionIDFromContext(ctx); !ok || id != "sess-1" {
		t.Fatalf("unexpected session id: %v %v", id, ok)
	}
	if id, ok := services.CommandIDFromContext(ctx); !ok || id != "cmd-9" {
		t.Fatalf("unexpected command id: %v %v", id, ok)
	}
	if action, ok := services.ActionFromContext(ctx); !ok || action != "start" {
		t.Fatalf("unexpected action: %v %v", action, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithAction(ctx, "")
	ctx = services.WithSessionID(ctx, "")
	if _, ok := services.ActionFromContext(ctx); ok {
		t.Fatal("expected no action value")
	}
	if _, ok := services.SessionIDFromContext(ctx); ok {
		t.Fatal("expected no session value")
	}
}

func TestNewIDIsUnique(t *testing.T) {
	a, b := services.NewID(), services.NewID()
	if a == "" || a == b {
		t.Fatalf("expected distinct ids, got %q and %q", a, b)
	}
}

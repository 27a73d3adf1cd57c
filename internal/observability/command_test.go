package observability

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestShouldTraceCommand(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "help", want: false},
		{name: "exit", want: false},
		{name: "stats", want: false},
		{name: "add", want: true},
		{name: "undo", want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := shouldTraceCommand(tc.name)
			if got != tc.want {
				t.Fatalf("command %q: expected %t, got %t", tc.name, tc.want, got)
			}
		})
	}
}

func TestRunCommandWritesCompletionLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	ctx := ContextWithSessionID(context.Background(), "sess-123")
	var seen string
	err := RunCommand(ctx, logger, "add", func(ctx context.Context) error {
		seen = SessionIDFromContext(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "sess-123" {
		t.Fatalf("expected session id to reach the command, got %q", seen)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Message != "command completed" {
		t.Fatalf("expected message %q, got %q", "command completed", entry.Message)
	}

	fields := entry.ContextMap()
	if fields["command"] != "add" {
		t.Fatalf("expected command %q, got %#v", "add", fields["command"])
	}
	if fields["session_id"] != "sess-123" {
		t.Fatalf("expected session_id %q, got %#v", "sess-123", fields["session_id"])
	}
}

func TestRunCommandReturnsAndLogsError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	boom := errors.New("boom")

	for _, name := range []string{"undo", "help"} {
		err := RunCommand(context.Background(), zap.New(core), name, func(context.Context) error { return boom })
		if !errors.Is(err, boom) {
			t.Fatalf("%s: expected boom, got %v", name, err)
		}
	}

	for _, entry := range logs.All() {
		if _, ok := entry.ContextMap()["error"]; !ok {
			t.Fatalf("expected error field on %q", entry.ContextMap()["command"])
		}
	}
}

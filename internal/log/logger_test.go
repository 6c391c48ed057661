package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogger_ComponentAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf})

	logger.WithComponent(ComponentBills).InfoContext(context.Background(), "Bill settled", FieldBillID, "b1")
	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("expected exactly one component attribute, got %q", out)
	}
	if !strings.Contains(out, "component=bills") || !strings.Contains(out, "bill_id=b1") {
		t.Fatalf("missing attributes in %q", out)
	}
}

func TestStructuredLogger_SingleComponent(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf}))
	ctx := context.Background()

	sl.LogBillSettled(ctx, "b1", "t1", "121.00")
	sl.LogTransactionRecorded(ctx, "t2", "Sale", "10.00", "inflow")
	sl.LogError(ctx, "Settlement failed", errors.New("db down"), ErrorTypeDatabase, ComponentReconciler, OpReconcile)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{"component=bills", "component=ledger", "component=reconciler"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), buf.String())
	}
	for i, line := range lines {
		if strings.Count(line, "component=") != 1 || !strings.Contains(line, want[i]) {
			t.Errorf("line %d: want a single %s, got %q", i, want[i], line)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Component: ComponentApp, Output: &buf})

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should never return nil")
	}
}

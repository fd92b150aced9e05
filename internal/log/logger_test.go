package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentBot, Output: &buf})

	l.Info("update received", FieldUserID, "42")
	l.WithComponent(ComponentLedger).Debug("read done")

	out := buf.String()
	if !strings.Contains(out, "component=bot") || !strings.Contains(out, "user_id=42") {
		t.Fatalf("missing fields: %s", out)
	}
	if !strings.Contains(out, "component=ledger") {
		t.Fatalf("component not switched: %s", out)
	}
	if strings.Count(out, "component=") != 2 {
		t.Fatalf("component duplicated: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("%q: want %v got %v", in, want, got)
		}
	}
}

func TestContextCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentConversation, Output: &buf}).
		WithFields(NewFields().WithCorrelationID("abc").WithUser(7, "Olena"))
	ctx := WithContext(context.Background(), l)

	FromContext(ctx).InfoContext(ctx, "hello")
	out := buf.String()
	for _, want := range []string{"correlation_id=abc", "user_id=7", "user_name=Olena", "component=conversation"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}

	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Fatalf("expected fallback logger, got %q", got)
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithOperation(OpAppend).WithError(errors.New("boom")).WithError(nil).WithExpense("Спорт", "12.5")
	s := f.ToSlice()
	if len(s) != 8 {
		t.Fatalf("unexpected slice: %v", s)
	}
	if s[0] != FieldAmount || s[1] != "12.5" {
		t.Fatalf("keys must be sorted: %v", s)
	}
}

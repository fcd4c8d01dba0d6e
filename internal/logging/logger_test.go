package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		" debug ": slog.LevelDebug,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	logger := slog.New(newConsoleHandler(&buf, levelVar))
	scoped := NewComponentLogger(logger, "dispatcher")
	scoped.Info("delivered", String(FieldJobID, "abc123"), Int("subscribers", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Errorf("expected level label in output, got %q", line)
	}
	if !strings.Contains(line, "dispatcher: delivered") {
		t.Errorf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "job_id=abc123") {
		t.Errorf("expected job_id attr, got %q", line)
	}
	if !strings.Contains(line, "subscribers=2") {
		t.Errorf("expected subscribers attr, got %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)

	logger := slog.New(newConsoleHandler(&buf, levelVar))
	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be suppressed, got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn record should be emitted, got %q", out)
	}
}

func TestErrorAttr(t *testing.T) {
	attr := Error(errors.New("boom"))
	if attr.Key != "error" || attr.Value.String() != "boom" {
		t.Errorf("unexpected attr: %v", attr)
	}
	if empty := Error(nil); empty.Key != "" {
		t.Errorf("nil error should produce empty attr, got %v", empty)
	}
}

func TestNewComponentLoggerNil(t *testing.T) {
	logger := NewComponentLogger(nil, "gateway")
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	// Must not panic.
	logger.Info("noop")
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-42")
	if got := CorrelationIDFromContext(ctx); got != "req-42" {
		t.Errorf("got %q, want req-42", got)
	}
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

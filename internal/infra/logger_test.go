package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"schema-migrator/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_AddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{OtelEnabled: true, GoogleCloudProject: "my-project", LogFormat: "json"}
	logger := NewLogger(&buf, cfg, slog.LevelInfo)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.InfoContext(ctx, "applied migration", "file", "0001_add_table.sql")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	if entry["trace"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("unexpected trace: %v", entry["trace"])
	}
	if entry["logging.googleapis.com/trace"] != "projects/my-project/traces/4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("unexpected cloud trace: %v", entry["logging.googleapis.com/trace"])
	}
	if entry["file"] != "0001_add_table.sql" {
		t.Errorf("unexpected file: %v", entry["file"])
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, &config.Config{LogFormat: "text"}, slog.LevelInfo)

	logger.Info("skipped migration", "file", "0002_add_index.sql")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "msg=\"skipped migration\"") || !strings.Contains(out, "file=0002_add_index.sql") {
		t.Errorf("unexpected text output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at INFO level")
	}
}

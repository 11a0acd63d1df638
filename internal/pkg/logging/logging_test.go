package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json", "geoengine-api")

	logger.Debug("hidden")
	logger.Info("route resolved", "mode", "WALK")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["service"] != "geoengine-api" {
		t.Errorf("expected service attr, got %v", rec["service"])
	}
	if rec["mode"] != "WALK" {
		t.Errorf("expected mode attr, got %v", rec["mode"])
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "text", "").Debug("cluster built", "size", 3)

	out := buf.String()
	if !strings.Contains(out, "msg=\"cluster built\"") || !strings.Contains(out, "size=3") {
		t.Errorf("unexpected text output: %q", out)
	}
	if strings.Contains(out, "service=") {
		t.Errorf("service attr should be omitted when empty: %q", out)
	}
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestInitWithWriterEmitsJSONWithLevel(t *testing.T) {
	var buf bytes.Buffer
	initWithWriter("warn", &buf)

	L.Info("dropped")
	L.Warn("kept", "walletID", "w1")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["walletID"] != "w1" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	initWithWriter("info", &buf)

	if got := FromContext(context.Background()); got != L {
		t.Error("expected global logger when context has none")
	}

	scoped := slog.New(slog.NewTextHandler(&buf, nil)).With("requestID", "abc")
	ctx := WithContext(context.Background(), scoped)
	if got := FromContext(ctx); got != scoped {
		t.Error("expected scoped logger from context")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

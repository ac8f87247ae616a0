package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithWriter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zapcore.InfoLevel)
	logger.Debug("hidden")
	logger.Info("upload successful", zap.String("slot", "photo"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "upload successful" || entry["level"] != "info" || entry["slot"] != "photo" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", entry)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected a no-op logger")
	}
	logger := zap.NewExample()
	if OrNop(logger) != logger {
		t.Fatalf("expected the provided logger")
	}
}

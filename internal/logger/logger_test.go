package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	if ParseLevel("warning") != zapcore.WarnLevel {
		t.Fatalf("warning should map to warn")
	}
	if ParseLevel("verbose") != zapcore.InfoLevel {
		t.Fatalf("unknown levels should default to info")
	}
}

func TestZapLoggerWritesObjectField(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLogger(New(&buf, zapcore.InfoLevel))

	log.DebugObj("hidden", "k", 1)
	log.InfoObj("probe done", "outcome", map[string]any{"target": "home", "code": 200})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected one line below debug, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "probe done" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts key in %v", entry)
	}
	outcome, ok := entry["outcome"].(map[string]any)
	if !ok || outcome["target"] != "home" {
		t.Fatalf("outcome field = %v", entry["outcome"])
	}
}

func TestPackageHelpersWithoutInit(t *testing.T) {
	S = nil
	InfoObj("ignored", "k", "v")
	if err := Close(); err != nil {
		t.Fatalf("Close without Init: %v", err)
	}
}

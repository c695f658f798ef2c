package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSetup_WritesJSONWithServiceAttr(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Info("hello", "key", "value")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %q, want %q", entry["msg"], "hello")
	}
	if entry["service"] != "clanova" {
		t.Errorf("service = %q, want %q", entry["service"], "clanova")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
}

func TestSetup_DefaultLevelSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Debug("should not appear")

	if buf.Len() != 0 {
		t.Errorf("debug log should be suppressed at default level, got: %s", buf.String())
	}
}

func TestSetup_LogLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	log := Setup(&buf)

	log.Debug("visible")

	if buf.Len() == 0 {
		t.Error("debug log should appear when LOG_LEVEL=debug")
	}
}

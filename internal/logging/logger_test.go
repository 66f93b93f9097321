package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Str("table", "bronze.customer_bronze").Msg("loaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "debug" {
		t.Errorf("Expected level 'debug', got %v", entry["level"])
	}
	if entry["table"] != "bronze.customer_bronze" {
		t.Errorf("Expected table field, got %v", entry["table"])
	}
}

func TestInitInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "loud", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected debug to be filtered at info level, got %q", buf.String())
	}
	Info().Msg("shown")
	if buf.Len() == 0 {
		t.Error("Expected info event to be written")
	}
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithRun("run-1")
	l.Info().Msg("stage done")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["run_id"] != "run-1" {
		t.Errorf("Expected run_id 'run-1', got %v", entry["run_id"])
	}
}

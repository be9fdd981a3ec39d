package logging

import (
	"bytes"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "json", Output: &buf})

	logger.WithField("request_id", "abc").Debug("Dispatch completed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "abc" {
		t.Errorf("Expected request_id field, got %v", entry["request_id"])
	}
	if entry["msg"] != "Dispatch completed" {
		t.Errorf("Expected message, got %v", entry["msg"])
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "text", Output: &buf})

	logger.Debug("hidden")
	logger.Info("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("Expected debug entry to be filtered at info level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("Expected info entry to be written")
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	logger := New(Config{Level: "loud"})
	if logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info fallback, got %s", logger.GetLevel())
	}
}

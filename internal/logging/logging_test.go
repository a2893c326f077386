// ABOUTME: Tests for logger construction.
// ABOUTME: Checks level parsing and output routing.
package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	l.Warn("shown", "feed", "steps")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "feed=steps") {
		t.Errorf("expected warn message with key, got %q", out)
	}
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "chatty")
	l.Info("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected info output, got %q", buf.String())
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault(nil) == nil {
		t.Error("OrDefault(nil) returned nil")
	}
	l := Discard()
	if OrDefault(l) != l {
		t.Error("OrDefault should return the given logger")
	}
}

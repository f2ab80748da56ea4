// ABOUTME: Tests for level logging with verbosity control
// ABOUTME: Covers level prefixes, formatting, and component tags

package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetVerbose(t *testing.T) {
	// Default should be non-verbose
	if IsVerbose() {
		t.Error("Logger should default to non-verbose")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("SetVerbose(true) did not enable verbose mode")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("SetVerbose(false) did not disable verbose mode")
	}
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	// Debug should not show when not verbose
	SetVerbose(false)
	Debug("test debug message")
	if buf.Len() > 0 {
		t.Error("Debug output when not verbose")
	}

	// Debug should show when verbose
	SetVerbose(true)
	buf.Reset()
	Debug("test debug message")
	if !strings.Contains(buf.String(), "[DEBUG]") {
		t.Error("Debug did not output [DEBUG] prefix")
	}
	if !strings.Contains(buf.String(), "test debug message") {
		t.Error("Debug did not output message")
	}
}

func TestInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Info("test info message")
	if !strings.Contains(buf.String(), "[INFO]") {
		t.Error("Info did not output [INFO] prefix")
	}
	if !strings.Contains(buf.String(), "test info message") {
		t.Error("Info did not output message")
	}
}

func TestWarnLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Warn("test warn message")
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Error("Warn did not output [WARN] prefix")
	}
	if !strings.Contains(buf.String(), "test warn message") {
		t.Error("Warn did not output message")
	}
}

func TestErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Error("test error message")
	if !strings.Contains(buf.String(), "[ERROR]") {
		t.Error("Error did not output [ERROR] prefix")
	}
	if !strings.Contains(buf.String(), "test error message") {
		t.Error("Error did not output message")
	}
}

func TestFormatting(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Info("formatted %s: %d", "test", 42)
	output := buf.String()

	if !strings.Contains(output, "formatted test: 42") {
		t.Errorf("Formatting failed, got: %q", output)
	}
}

func TestComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	For("WS", "0f8fad5b-d9cb-469f-a165-70867728950e").Info("connected from %s", "127.0.0.1")
	output := buf.String()

	if !strings.Contains(output, "[INFO] [WS:0f8fad5b] connected from 127.0.0.1") {
		t.Errorf("component prefix missing, got: %q", output)
	}
}

func TestComponentDebugRespectsVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	defer SetVerbose(false)

	c := For("DISPATCH", "")
	SetVerbose(false)
	c.Debug("hidden")
	if buf.Len() > 0 {
		t.Errorf("component debug output when not verbose: %q", buf.String())
	}

	SetVerbose(true)
	c.Debug("shown")
	if !strings.Contains(buf.String(), "[DEBUG] [DISPATCH] shown") {
		t.Errorf("component debug missing, got: %q", buf.String())
	}
}

func TestShort(t *testing.T) {
	if got := Short("abc"); got != "abc" {
		t.Errorf("Short(abc) = %q", got)
	}
	if got := Short("0123456789"); got != "01234567" {
		t.Errorf("Short(0123456789) = %q", got)
	}
}

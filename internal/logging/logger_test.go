package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_UsesJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "debug", Writer: &buf, Component: "promptwatch"})
	lg.Debug("boot", "k", "v")

	out := strings.TrimSpace(buf.String())
	if !strings.Contains(out, `"level":"DEBUG"`) {
		t.Fatalf("expected DEBUG level, got %s", out)
	}
	if !strings.Contains(out, `"component":"promptwatch"`) {
		t.Fatalf("expected component field, got %s", out)
	}
}

func TestNewLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "warn", Writer: &buf})
	lg.Info("hidden")
	lg.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Format: "TEXT", Writer: &buf, Component: "promptwatch"})
	lg.Info("prompt approved", "rule", "numbered-yes")

	out := buf.String()
	if strings.HasPrefix(out, "{") || !strings.Contains(out, "rule=numbered-yes") || !strings.Contains(out, "component=promptwatch") {
		t.Fatalf("expected text output, got %s", out)
	}
}

func TestNewRotatingWriter_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "promptwatch.log")
	w := NewRotatingWriter(FileOptions{Path: path})
	lg := NewLogger(Options{Writer: w})
	lg.Info("prompt approved", "target", "claude:0.0")
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if !strings.Contains(string(raw), `"target":"claude:0.0"`) {
		t.Fatalf("unexpected log content: %s", raw)
	}
}

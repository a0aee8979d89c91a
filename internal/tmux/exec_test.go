package tmux

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRealExec_OutputKeepsStderrOutOfResult(t *testing.T) {
	e := &RealExec{}
	out, err := e.Output("sh", "-c", "echo pane; echo noise >&2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "pane\n" {
		t.Fatalf("unexpected stdout: %q", out)
	}
}

func TestRealExec_ErrorCarriesStderr(t *testing.T) {
	e := &RealExec{}
	_, err := e.Output("sh", "-c", "echo \"can't find pane: x\" >&2; exit 1")
	if err == nil || !strings.Contains(err.Error(), "can't find pane: x") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	if err := e.Run("sh", "-c", "echo boom; exit 2"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected output in run error, got %v", err)
	}
}

func TestRealExec_Timeout(t *testing.T) {
	e := &RealExec{Timeout: 50 * time.Millisecond}
	start := time.Now()
	err := e.Run("sleep", "5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("command was not killed on timeout")
	}
}

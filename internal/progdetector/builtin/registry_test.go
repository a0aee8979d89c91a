package builtin_test

import (
	"testing"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector"
	_ "github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector/builtin"
)

func TestBundledProfilesResolvePaneCommands(t *testing.T) {
	cases := map[string]string{
		"claude":              "claude",
		"claude-code":         "claude",
		"node (claude)":       "claude",
		"codex":               "codex",
		"zsh":                 progdetector.GenericProgramID,
		"python3 (manage.py)": progdetector.GenericProgramID,
	}
	for cmd, want := range cases {
		if got := progdetector.ProgramDetectorRegistry.Resolve(cmd).ProgramID(); got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", cmd, got, want)
		}
	}
}

// Package builtin registers the bundled program profiles.
package builtin

import (
	_ "github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector/claude"
	_ "github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector/codex"
)

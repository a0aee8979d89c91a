package progdetector

import (
	"context"
	"time"
)

// PromptStep is one keystroke injection. Input is sent literally, Key as a
// named key event (e.g. "Enter"). Delay is waited before the step.
type PromptStep struct {
	Input string
	Key   string
	Delay time.Duration
}

// Detector is implemented by each program profile package.
type Detector interface {
	ProgramID() string
	IsAvailable(ctx context.Context) (bool, error)
	MatchCurrentCommand(currentCommand string) bool
	BuildResponseSteps(response string, confirm bool) ([]PromptStep, error)
}

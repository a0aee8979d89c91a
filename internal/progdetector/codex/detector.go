package codex

import (
	"context"
	"os/exec"
	"time"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector"
)

const (
	programID    = "codex"
	submitDelay  = 50 * time.Millisecond
	submitReturn = "\r"
)

type Detector struct{}

func New() Detector {
	return Detector{}
}

func (Detector) ProgramID() string {
	return programID
}

func (Detector) IsAvailable(context.Context) (bool, error) {
	if _, err := exec.LookPath(programID); err != nil {
		return false, nil
	}
	return true, nil
}

func (Detector) MatchCurrentCommand(currentCommand string) bool {
	return progdetector.MatchProgramInCommand(currentCommand, programID)
}

// codex reads a raw carriage return as submit, so confirm is sent as input
// rather than a named key.
func (Detector) BuildResponseSteps(response string, confirm bool) ([]progdetector.PromptStep, error) {
	if response == "" && !confirm {
		return nil, progdetector.ErrEmptyResponse
	}
	steps := make([]progdetector.PromptStep, 0, 2)
	if response != "" {
		steps = append(steps, progdetector.PromptStep{Input: response})
	}
	if confirm {
		step := progdetector.PromptStep{Input: submitReturn}
		if response != "" {
			step.Delay = submitDelay
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func init() {
	progdetector.ProgramDetectorRegistry.MustRegister(New())
}

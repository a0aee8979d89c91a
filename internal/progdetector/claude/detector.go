package claude

import (
	"context"
	"os/exec"
	"time"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector"
)

const (
	programID    = "claude"
	packageName  = "claude-code"
	confirmDelay = 100 * time.Millisecond
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

// MatchCurrentCommand also accepts the npm package directory name, which is
// what an interpreter-launched install reports.
func (Detector) MatchCurrentCommand(currentCommand string) bool {
	return progdetector.MatchProgramInCommand(currentCommand, programID) ||
		progdetector.MatchProgramInCommand(currentCommand, packageName)
}

func (Detector) BuildResponseSteps(response string, confirm bool) ([]progdetector.PromptStep, error) {
	return progdetector.StandardSteps(response, confirm, progdetector.KeyEnter, confirmDelay)
}

func init() {
	progdetector.ProgramDetectorRegistry.MustRegister(New())
}

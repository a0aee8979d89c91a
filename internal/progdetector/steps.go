package progdetector

import (
	"context"
	"errors"
	"time"
)

const (
	GenericProgramID = "generic"
	KeyEnter         = "Enter"
)

var ErrEmptyResponse = errors.New("response is required when confirm is disabled")

// StandardSteps types the response literally, then sends confirmKey after
// delay. An empty response with confirm set yields a single key press.
func StandardSteps(response string, confirm bool, confirmKey string, delay time.Duration) ([]PromptStep, error) {
	if response == "" && !confirm {
		return nil, ErrEmptyResponse
	}
	steps := make([]PromptStep, 0, 2)
	if response != "" {
		steps = append(steps, PromptStep{Input: response})
	}
	if confirm {
		step := PromptStep{Key: confirmKey}
		if response != "" {
			step.Delay = delay
		}
		steps = append(steps, step)
	}
	return steps, nil
}

type genericDetector struct{}

// Generic answers with the literal response followed by Enter. It matches no
// command and is used when no registered profile claims a pane.
func Generic() Detector {
	return genericDetector{}
}

func (genericDetector) ProgramID() string { return GenericProgramID }

func (genericDetector) IsAvailable(context.Context) (bool, error) { return true, nil }

func (genericDetector) MatchCurrentCommand(string) bool { return false }

func (genericDetector) BuildResponseSteps(response string, confirm bool) ([]PromptStep, error) {
	return StandardSteps(response, confirm, KeyEnter, 50*time.Millisecond)
}

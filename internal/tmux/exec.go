package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds a single tmux or ps invocation so a wedged
// tmux server cannot stall a watcher forever.
const DefaultCommandTimeout = 5 * time.Second

type Exec interface {
	Output(name string, args ...string) ([]byte, error)
	Run(name string, args ...string) error
}

type RealExec struct {
	Timeout time.Duration
}

// Output returns stdout only; stderr is folded into the error.
func (r *RealExec) Output(name string, args ...string) ([]byte, error) {
	ctx, cancel := r.context()
	defer cancel()
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	return out, r.wrap(ctx, name, args, err, stderr.Bytes())
}

func (r *RealExec) Run(name string, args ...string) error {
	ctx, cancel := r.context()
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return r.wrap(ctx, name, args, err, out)
}

func (r *RealExec) context() (context.Context, context.CancelFunc) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (r *RealExec) wrap(ctx context.Context, name string, args []string, err error, detail []byte) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		sub := ""
		if len(args) > 0 {
			sub = " " + args[0]
		}
		return fmt.Errorf("%s%s: %w", name, sub, context.DeadlineExceeded)
	}
	if msg := strings.TrimSpace(string(detail)); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

package tmux

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const paneTargetFormat = "#{session_name}:#{window_index}.#{pane_index}"

type Adapter struct {
	exec       Exec
	tmuxSocket string
}

func NewAdapter(e Exec) *Adapter {
	return &Adapter{exec: e}
}

func NewAdapterWithSocket(e Exec, socket string) *Adapter {
	return &Adapter{exec: e, tmuxSocket: strings.TrimSpace(socket)}
}

// ListSessions returns every pane target as session:window.pane.
func (a *Adapter) ListSessions() ([]string, error) {
	out, err := a.exec.Output("tmux", a.withSocket("list-panes", "-a", "-F", paneTargetFormat)...)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return []string{}, nil
	}
	return strings.Split(text, "\n"), nil
}

// PaneExists reports whether target names a live pane on the server.
func (a *Adapter) PaneExists(target string) (bool, error) {
	needle := strings.TrimSpace(target)
	if needle == "" {
		return false, nil
	}
	panes, err := a.ListSessions()
	if err != nil {
		return false, err
	}
	for _, pane := range panes {
		if strings.TrimSpace(pane) == needle {
			return true, nil
		}
	}
	return false, nil
}

// SendInput types text literally; tmux does not interpret key names.
func (a *Adapter) SendInput(target, text string) error {
	return a.exec.Run("tmux", a.withSocket("send-keys", "-l", "-t", target, text)...)
}

// SendKeys sends named key events such as "Enter" or "Down".
func (a *Adapter) SendKeys(target string, keys ...string) error {
	if len(keys) == 0 {
		return errors.New("at least one key is required")
	}
	args := append([]string{"send-keys", "-t", target}, keys...)
	return a.exec.Run("tmux", a.withSocket(args...)...)
}

// CaptureTail returns the last lines of the pane, including scrollback when
// the visible area is shorter than lines.
func (a *Adapter) CaptureTail(target string, lines int) (string, error) {
	if lines <= 0 {
		lines = 50
	}
	out, err := a.exec.Output("tmux", a.withSocket("capture-pane", "-p", "-J", "-S", fmt.Sprintf("-%d", lines), "-t", target)...)
	if err != nil {
		return "", err
	}
	text := strings.TrimRight(string(out), "\n")
	all := strings.Split(text, "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	return strings.Join(all, "\n"), nil
}

// PaneCurrentCommand returns tmux's pane_current_command, refined to the
// foreground program label when the pane runs an interpreter or wrapper.
func (a *Adapter) PaneCurrentCommand(target string) (string, error) {
	out, err := a.exec.Output("tmux", a.withSocket("display-message", "-p", "-t", target, "#{pane_current_command}\t#{pane_pid}")...)
	if err != nil {
		return "", err
	}
	parts := strings.SplitN(strings.TrimSpace(string(out)), "\t", 2)
	current := strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return current, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || pid <= 0 {
		return current, nil
	}
	label, err := a.foregroundLabel(pid)
	if err != nil || label == "" {
		return current, nil
	}
	return label, nil
}

type procEntry struct {
	pid  int
	ppid int
	name string
}

func (a *Adapter) foregroundLabel(panePID int) (string, error) {
	out, err := a.exec.Output("ps", "-axo", "pid=,ppid=,comm=,args=")
	if err != nil {
		return "", err
	}
	procs := map[int]procEntry{}
	children := map[int][]int{}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		procs[pid] = procEntry{pid: pid, ppid: ppid, name: processName(fields[2], fields[3:])}
		children[ppid] = append(children[ppid], pid)
	}
	if _, ok := procs[panePID]; !ok {
		return "", nil
	}

	// Follow the newest non-shell child at each level.
	chain := make([]string, 0, 4)
	for pid := panePID; ; {
		next := 0
		for _, child := range children[pid] {
			if child > next {
				next = child
			}
		}
		if next == 0 {
			break
		}
		if p := procs[next]; !isShellProcess(p.name) {
			chain = append(chain, p.name)
		}
		pid = next
	}
	switch len(chain) {
	case 0:
		return "", nil
	case 1:
		return chain[0], nil
	default:
		if chain[0] == chain[len(chain)-1] {
			return chain[0], nil
		}
		return fmt.Sprintf("%s (%s)", chain[0], chain[len(chain)-1]), nil
	}
}

// processName prefers the script entrypoint for interpreters, so
// "node /usr/lib/node_modules/.bin/claude" is labelled "claude".
func processName(comm string, args []string) string {
	name := filepath.Base(strings.TrimSpace(comm))
	switch name {
	case "node", "python", "python3", "bun", "deno", "ruby":
	default:
		return name
	}
	for _, arg := range args[min(1, len(args)):] {
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}
		base := filepath.Base(arg)
		if ext := filepath.Ext(base); ext != "" {
			base = strings.TrimSuffix(base, ext)
		}
		if base == "cli" || base == "index" || base == "main" {
			base = filepath.Base(filepath.Dir(arg))
		}
		if base != "" && base != "." {
			return base
		}
	}
	return name
}

func isShellProcess(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sh", "bash", "zsh", "fish", "dash", "ksh", "tcsh", "csh", "login":
		return true
	default:
		return false
	}
}

func (a *Adapter) withSocket(args ...string) []string {
	if a.tmuxSocket == "" {
		return args
	}
	return append([]string{"-L", a.tmuxSocket}, args...)
}

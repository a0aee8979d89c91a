package supervisor

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/watcher"
)

type fakeTmux struct {
	mu       sync.Mutex
	panes    []string
	commands map[string]string
	screens  map[string]string
	sent     map[string][]string
}

func newFakeTmux() *fakeTmux {
	return &fakeTmux{
		commands: map[string]string{},
		screens:  map[string]string{},
		sent:     map[string][]string{},
	}
}

func (f *fakeTmux) setPanes(panes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panes = append([]string(nil), panes...)
}

func (f *fakeTmux) ListSessions() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.panes...), nil
}

func (f *fakeTmux) PaneCurrentCommand(target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands[target], nil
}

func (f *fakeTmux) CaptureTail(target string, lines int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.screens[target], nil
}

func (f *fakeTmux) SendInput(target, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[target] = append(f.sent[target], "input:"+text)
	return nil
}

func (f *fakeTmux) SendKeys(target string, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[target] = append(f.sent[target], "keys:"+strings.Join(keys, ","))
	return nil
}

func (f *fakeTmux) sentTo(target string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[target]...)
}

type fakeProfile struct{}

func (fakeProfile) ProgramID() string                        { return "claude" }
func (fakeProfile) IsAvailable(context.Context) (bool, error) { return true, nil }
func (fakeProfile) MatchCurrentCommand(cmd string) bool       { return cmd == "claude" }
func (fakeProfile) BuildResponseSteps(response string, confirm bool) ([]progdetector.PromptStep, error) {
	return progdetector.StandardSteps(response, confirm, progdetector.KeyEnter, 0)
}

func testRegistry() *progdetector.Registry {
	reg := progdetector.NewRegistry()
	reg.MustRegister(fakeProfile{})
	return reg
}

func fastTemplate() watcher.Options {
	return watcher.Options{
		PollInterval:   time.Millisecond,
		SettleDelay:    time.Millisecond,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
		Sleep:          func(time.Duration) {},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func runSupervisor(t *testing.T, s *Supervisor) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("supervisor returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("supervisor did not stop")
		}
	}
}

func TestNewRequiresTargetsOrDiscovery(t *testing.T) {
	_, err := New(Options{
		Tmux:       newFakeTmux(),
		Classifier: prompt.MustClassifier(prompt.DefaultOptions()),
		Targets:    []string{" ", ""},
	})
	if err == nil {
		t.Fatal("expected error without targets")
	}
}

func TestStaticTargetsGetIsolatedWatchers(t *testing.T) {
	defer goleak.VerifyNone(t)

	tmux := newFakeTmux()
	tmux.screens["a:0.0"] = "Run cleanup?\n❯ 1. Yes\n  2. No"
	tmux.screens["b:0.0"] = "$ make test\nok"
	s, err := New(Options{
		Tmux:       tmux,
		Registry:   testRegistry(),
		Classifier: prompt.MustClassifier(prompt.DefaultOptions()),
		Template:   fastTemplate(),
		Targets:    []string{"a:0.0", "b:0.0", "a:0.0"},
	})
	if err != nil {
		t.Fatalf("new supervisor failed: %v", err)
	}
	stop := runSupervisor(t, s)

	waitFor(t, "injection into a:0.0", func() bool { return len(tmux.sentTo("a:0.0")) == 2 })
	if diff := cmp.Diff([]string{"a:0.0", "b:0.0"}, s.Targets()); diff != "" {
		t.Fatalf("unexpected targets (-want +got):\n%s", diff)
	}
	// Identical snapshots within the cooldown must not trigger again.
	time.Sleep(20 * time.Millisecond)
	if got := tmux.sentTo("a:0.0"); len(got) != 2 {
		t.Fatalf("expected a single injection, got %v", got)
	}
	if got := tmux.sentTo("b:0.0"); len(got) != 0 {
		t.Fatalf("unexpected keystrokes into b:0.0: %v", got)
	}
	stop()
}

func TestDiscoveryStartsAndStopsWatchers(t *testing.T) {
	defer goleak.VerifyNone(t)

	tmux := newFakeTmux()
	tmux.commands["work:0.1"] = "claude"
	tmux.setPanes("claude:0.0", "work:0.0", "work:0.1")
	s, err := New(Options{
		Tmux:       tmux,
		Registry:   testRegistry(),
		Classifier: prompt.MustClassifier(prompt.DefaultOptions()),
		Template:   fastTemplate(),
		Discovery: DiscoveryOptions{
			Enabled:        true,
			Interval:       5 * time.Millisecond,
			SessionPattern: regexp.MustCompile("^claude"),
			MatchPrograms:  true,
		},
	})
	if err != nil {
		t.Fatalf("new supervisor failed: %v", err)
	}
	stop := runSupervisor(t, s)

	waitFor(t, "discovered watchers", func() bool {
		return cmp.Equal([]string{"claude:0.0", "work:0.1"}, s.Targets())
	})
	statuses := s.Statuses()
	if statuses[1].Program != "claude" {
		t.Fatalf("expected claude profile for work:0.1, got %q", statuses[1].Program)
	}
	if statuses[0].Program != progdetector.GenericProgramID {
		t.Fatalf("expected generic profile for claude:0.0, got %q", statuses[0].Program)
	}

	tmux.setPanes("work:0.0", "work:0.1")
	waitFor(t, "vanished pane watcher to stop", func() bool {
		return cmp.Equal([]string{"work:0.1"}, s.Targets())
	})
	stop()
}

func TestUpdateClassifierReachesRunningWatchers(t *testing.T) {
	defer goleak.VerifyNone(t)

	tmux := newFakeTmux()
	tmux.screens["a:0.0"] = "Continue with deploy? [y/n]"
	strict := prompt.MustClassifier(prompt.Options{Rules: []prompt.Rule{{
		Name:           "numbered-only",
		PromptMarkers:  []string{"1. yes"},
		ContextMarkers: []string{"?"},
		Response:       "1",
		Confirm:        true,
	}}})
	template := fastTemplate()
	template.RecheckInterval = time.Millisecond
	s, err := New(Options{
		Tmux:       tmux,
		Registry:   testRegistry(),
		Classifier: strict,
		Template:   template,
		Targets:    []string{"a:0.0"},
	})
	if err != nil {
		t.Fatalf("new supervisor failed: %v", err)
	}
	stop := runSupervisor(t, s)

	waitFor(t, "watcher start", func() bool { return len(s.Statuses()) == 1 && !s.Statuses()[0].LastTickAt.IsZero() })
	if got := tmux.sentTo("a:0.0"); len(got) != 0 {
		t.Fatalf("strict rules must not inject, got %v", got)
	}

	s.UpdateClassifier(prompt.MustClassifier(prompt.DefaultOptions()))
	waitFor(t, "yes-no injection", func() bool {
		return cmp.Equal([]string{"input:y", "keys:Enter"}, tmux.sentTo("a:0.0"))
	})
	stop()
}

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/metrics"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/watcher"
)

const DefaultDiscoveryInterval = 5 * time.Second

// Tmux is the subset of the tmux adapter the supervisor drives.
type Tmux interface {
	watcher.Source
	watcher.Sink
	ListSessions() ([]string, error)
	PaneCurrentCommand(target string) (string, error)
}

type DiscoveryOptions struct {
	Enabled        bool
	Interval       time.Duration
	SessionPattern *regexp.Regexp
	MatchPrograms  bool
}

type Options struct {
	Tmux       Tmux
	Registry   *progdetector.Registry
	Classifier *prompt.Classifier
	// Template carries timing and behaviour settings copied into every
	// watcher. Identity, source, sink, classifier and profile are set per pane.
	Template  watcher.Options
	Targets   []string
	Discovery DiscoveryOptions
	Logger    *slog.Logger
	Metrics   *metrics.Provider
	OnEvent   func(watcher.Event)
}

type entry struct {
	w          *watcher.Watcher
	cancel     context.CancelFunc
	discovered bool
}

// Supervisor runs one isolated watcher per target.
type Supervisor struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	classifier *prompt.Classifier
	watchers   map[string]*entry
}

func New(opts Options) (*Supervisor, error) {
	if opts.Tmux == nil {
		return nil, errors.New("tmux adapter is required")
	}
	if opts.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if opts.Registry == nil {
		opts.Registry = progdetector.ProgramDetectorRegistry
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Discovery.Interval <= 0 {
		opts.Discovery.Interval = DefaultDiscoveryInterval
	}
	targets := make([]string, 0, len(opts.Targets))
	seen := map[string]struct{}{}
	for _, target := range opts.Targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
	}
	opts.Targets = targets
	if len(opts.Targets) == 0 && !opts.Discovery.Enabled {
		return nil, errors.New("no targets configured and discovery disabled")
	}
	return &Supervisor{
		opts:       opts,
		logger:     opts.Logger.With("component", "supervisor"),
		classifier: opts.Classifier,
		watchers:   map[string]*entry{},
	}, nil
}

// Run blocks until ctx is cancelled and every watcher has stopped.
func (s *Supervisor) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	for _, target := range s.opts.Targets {
		profile := s.resolveProfile(target)
		if err := s.start(ctx, group, target, profile, false); err != nil {
			return err
		}
	}

	if s.opts.Discovery.Enabled {
		group.Go(func() error {
			s.discoveryLoop(ctx, group)
			return nil
		})
	}

	return group.Wait()
}

func (s *Supervisor) discoveryLoop(ctx context.Context, group *errgroup.Group) {
	ticker := time.NewTicker(s.opts.Discovery.Interval)
	defer ticker.Stop()
	for {
		s.discover(ctx, group)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// discover lists panes once, starts watchers for new eligible panes and
// stops discovered watchers whose pane has gone.
func (s *Supervisor) discover(ctx context.Context, group *errgroup.Group) {
	if ctx.Err() != nil {
		return
	}
	panes, err := s.opts.Tmux.ListSessions()
	if err != nil {
		s.logger.Warn("list panes failed", "err", err)
		return
	}

	present := make(map[string]struct{}, len(panes))
	for _, pane := range panes {
		pane = strings.TrimSpace(pane)
		if pane == "" {
			continue
		}
		present[pane] = struct{}{}
		if s.running(pane) {
			continue
		}
		profile, ok := s.eligible(pane)
		if !ok {
			continue
		}
		if err := s.start(ctx, group, pane, profile, true); err != nil {
			s.logger.Warn("start watcher failed", "target", pane, "err", err)
		}
	}

	s.mu.Lock()
	var gone []*entry
	for target, e := range s.watchers {
		if _, ok := present[target]; !ok && e.discovered {
			gone = append(gone, e)
			delete(s.watchers, target)
		}
	}
	s.mu.Unlock()
	for _, e := range gone {
		s.logger.Info("pane disappeared, stopping watcher", "target", e.w.Target())
		e.cancel()
	}
}

func (s *Supervisor) eligible(pane string) (progdetector.Detector, bool) {
	cmd, err := s.opts.Tmux.PaneCurrentCommand(pane)
	if err != nil {
		s.logger.Debug("read pane command failed", "target", pane, "err", err)
	}
	if s.opts.Discovery.MatchPrograms && cmd != "" {
		if detector, ok := s.opts.Registry.DetectByCurrentCommand(cmd); ok {
			return detector, true
		}
	}
	if pattern := s.opts.Discovery.SessionPattern; pattern != nil && pattern.MatchString(sessionName(pane)) {
		return s.opts.Registry.Resolve(cmd), true
	}
	return nil, false
}

func (s *Supervisor) resolveProfile(target string) progdetector.Detector {
	cmd, err := s.opts.Tmux.PaneCurrentCommand(target)
	if err != nil {
		return progdetector.Generic()
	}
	return s.opts.Registry.Resolve(cmd)
}

func (s *Supervisor) start(ctx context.Context, group *errgroup.Group, target string, profile progdetector.Detector, discovered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.watchers[target]; exists {
		return nil
	}

	opts := s.opts.Template
	opts.ID = ""
	opts.Target = target
	opts.Source = s.opts.Tmux
	opts.Sink = s.opts.Tmux
	opts.Classifier = s.classifier
	opts.Profile = profile
	opts.Logger = s.opts.Logger
	opts.Metrics = s.opts.Metrics
	opts.OnEvent = s.opts.OnEvent
	w, err := watcher.New(opts)
	if err != nil {
		return fmt.Errorf("create watcher for %s: %w", target, err)
	}

	wctx, cancel := context.WithCancel(ctx)
	e := &entry{w: w, cancel: cancel, discovered: discovered}
	s.watchers[target] = e
	group.Go(func() error {
		defer cancel()
		err := w.Run(wctx)
		s.mu.Lock()
		if s.watchers[target] == e {
			delete(s.watchers, target)
		}
		s.mu.Unlock()
		return err
	})
	return nil
}

func (s *Supervisor) running(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watchers[target]
	return ok
}

// UpdateClassifier swaps the rule set for every current and future watcher.
func (s *Supervisor) UpdateClassifier(c *prompt.Classifier) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifier = c
	for _, e := range s.watchers {
		e.w.SetClassifier(c)
	}
	s.logger.Info("rule set reloaded", "rules", strings.Join(c.RuleNames(), ","), "watchers", len(s.watchers))
}

func (s *Supervisor) Targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.watchers))
	for target := range s.watchers {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// Statuses returns every running watcher's status ordered by target.
func (s *Supervisor) Statuses() []watcher.Status {
	s.mu.Lock()
	list := make([]*watcher.Watcher, 0, len(s.watchers))
	for _, e := range s.watchers {
		list = append(list, e.w)
	}
	s.mu.Unlock()

	out := make([]watcher.Status, 0, len(list))
	for _, w := range list {
		out = append(out, w.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

func sessionName(target string) string {
	name, _, _ := strings.Cut(target, ":")
	return name
}

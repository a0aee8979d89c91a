package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/metrics"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
)

const (
	DefaultPollInterval    = 300 * time.Millisecond
	DefaultCooldown        = 5 * time.Second
	DefaultRecheckInterval = time.Second
	DefaultSettleDelay     = 500 * time.Millisecond
	DefaultCaptureLines    = 50
	DefaultBackoffInitial  = 500 * time.Millisecond
	DefaultBackoffMax      = 10 * time.Second
	DefaultMaxRepeats      = 3
)

// Source returns the last lines of a target's rendered text.
type Source interface {
	CaptureTail(target string, lines int) (string, error)
}

// Sink delivers literal text and named key events to a target.
type Sink interface {
	SendInput(target, text string) error
	SendKeys(target string, keys ...string) error
}

type Options struct {
	ID         string
	Target     string
	Source     Source
	Sink       Sink
	Classifier *prompt.Classifier
	Profile    progdetector.Detector

	PollInterval    time.Duration
	Cooldown        time.Duration
	RecheckInterval time.Duration
	SettleDelay     time.Duration
	CaptureLines    int
	LogCapacity     int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	DryRun          bool

	// MaxRepeats caps how often one prompt is answered while it stays on
	// screen; it is re-armed once the prompt goes away.
	MaxRepeats int

	Logger  *slog.Logger
	Metrics *metrics.Provider
	OnEvent func(Event)
	Now     func() time.Time
	Sleep   func(time.Duration)
}

type TickResult struct {
	Outcome  Outcome
	Decision prompt.Decision
	Err      error
}

type Status struct {
	ID              string    `json:"id"`
	Target          string    `json:"target"`
	Program         string    `json:"program"`
	State           State     `json:"state"`
	DryRun          bool      `json:"dry_run"`
	StartedAt       time.Time `json:"started_at"`
	LastTickAt      time.Time `json:"last_tick_at"`
	LastOutcome     Outcome   `json:"last_outcome,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	Injections      int       `json:"injections"`
	LastInjectionAt time.Time `json:"last_injection_at"`
	LastSignature   string    `json:"last_signature,omitempty"`
	LastRule        string    `json:"last_rule,omitempty"`
	Remembered      int       `json:"remembered"`
}

// Watcher polls one target, classifies each snapshot and injects the rule's
// response at most once per signature within the cooldown. Tick and Run must
// be called from a single goroutine; Status and SetClassifier are safe from
// any goroutine.
type Watcher struct {
	opts       Options
	logger     *slog.Logger
	classifier atomic.Pointer[prompt.Classifier]
	log        *InjectionLog

	lastNormalized   string
	lastClassifiedAt time.Time
	lastOutcome      Outcome
	lastSignature    prompt.Signature

	// Consecutive answers to the prompt currently on screen.
	repeatSignature prompt.Signature
	repeats         int

	mu     sync.Mutex
	status Status
}

func New(opts Options) (*Watcher, error) {
	if strings.TrimSpace(opts.Target) == "" {
		return nil, errors.New("watcher target is required")
	}
	if opts.Source == nil {
		return nil, errors.New("watcher source is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("watcher sink is required")
	}
	if opts.Classifier == nil {
		return nil, errors.New("watcher classifier is required")
	}
	opts = normalizeOptions(opts)

	w := &Watcher{
		opts:   opts,
		logger: opts.Logger.With("watcher_id", opts.ID, "target", opts.Target, "program", opts.Profile.ProgramID()),
		log:    NewInjectionLog(opts.LogCapacity),
	}
	w.classifier.Store(opts.Classifier)
	w.status = Status{
		ID:      opts.ID,
		Target:  opts.Target,
		Program: opts.Profile.ProgramID(),
		State:   StateIdle,
		DryRun:  opts.DryRun,
	}
	return w, nil
}

func normalizeOptions(opts Options) Options {
	if strings.TrimSpace(opts.ID) == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Profile == nil {
		opts.Profile = progdetector.Generic()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.RecheckInterval <= 0 {
		opts.RecheckInterval = DefaultRecheckInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.CaptureLines <= 0 {
		opts.CaptureLines = DefaultCaptureLines
	}
	if opts.LogCapacity <= 0 {
		opts.LogCapacity = DefaultLogCapacity
	}
	if opts.MaxRepeats <= 0 {
		opts.MaxRepeats = DefaultMaxRepeats
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = DefaultBackoffInitial
	}
	if opts.BackoffMax < opts.BackoffInitial {
		opts.BackoffMax = max(DefaultBackoffMax, opts.BackoffInitial)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return opts
}

func (w *Watcher) ID() string {
	return w.opts.ID
}

func (w *Watcher) Target() string {
	return w.opts.Target
}

// SetClassifier swaps the rule set used from the next tick on.
func (w *Watcher) SetClassifier(c *prompt.Classifier) {
	if c != nil {
		w.classifier.Store(c)
	}
}

func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Run ticks until ctx is cancelled. Tick failures never stop the loop; they
// delay the next tick with exponential backoff instead.
func (w *Watcher) Run(ctx context.Context) error {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     w.opts.BackoffInitial,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         w.opts.BackoffMax,
	}
	bo.Reset()

	w.updateStatus(func(s *Status) {
		s.StartedAt = w.opts.Now()
		s.State = StateIdle
	})
	w.opts.Metrics.WatcherStarted()
	w.emit(Event{Kind: EventWatcherStarted})
	w.logger.Info("watcher started", "dry_run", w.opts.DryRun)
	defer func() {
		w.updateStatus(func(s *Status) { s.State = StateStopped })
		w.opts.Metrics.WatcherStopped()
		w.emit(Event{Kind: EventWatcherStopped})
		w.logger.Info("watcher stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		res := w.Tick(ctx)

		wait := w.opts.PollInterval
		switch res.Outcome {
		case OutcomeSourceUnavailable, OutcomeSinkFailed:
			wait = bo.NextBackOff()
		case OutcomeInjected:
			bo.Reset()
			wait = max(w.opts.PollInterval, w.opts.SettleDelay)
		default:
			bo.Reset()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Tick captures, classifies and, when eligible, injects once.
func (w *Watcher) Tick(ctx context.Context) TickResult {
	res := w.tick(ctx)
	if res.Outcome != OutcomeUnchanged {
		w.lastOutcome = res.Outcome
	}
	w.opts.Metrics.RecordTick(w.opts.Target, string(res.Outcome))
	w.updateStatus(func(s *Status) {
		s.State = StateIdle
		s.LastTickAt = w.opts.Now()
		s.LastOutcome = res.Outcome
		s.LastError = ""
		if res.Err != nil {
			s.LastError = res.Err.Error()
		}
	})
	return res
}

func (w *Watcher) tick(ctx context.Context) TickResult {
	w.setState(StateScanning)
	now := w.opts.Now()

	text, err := w.opts.Source.CaptureTail(w.opts.Target, w.opts.CaptureLines)
	if err != nil {
		err = fmt.Errorf("%w: capture %s: %w", ErrSourceUnavailable, w.opts.Target, err)
		w.opts.Metrics.RecordSourceError(w.opts.Target)
		if w.lastOutcome != OutcomeSourceUnavailable {
			w.logger.Warn("capture failed", "err", err)
			w.emit(Event{Kind: EventSourceUnavailable, Error: err.Error()})
		}
		return TickResult{Outcome: OutcomeSourceUnavailable, Err: err}
	}

	snap := prompt.NewSnapshot(text, now)
	normalized := snap.Normalized()
	if normalized == w.lastNormalized && !w.lastClassifiedAt.IsZero() && now.Sub(w.lastClassifiedAt) < w.opts.RecheckInterval {
		return TickResult{Outcome: OutcomeUnchanged}
	}
	w.lastNormalized = normalized
	w.lastClassifiedAt = now

	decision := w.classifier.Load().Classify(snap)
	if !decision.Detected() {
		w.repeatSignature, w.repeats = "", 0
		return w.handleNoPrompt(decision)
	}
	if decision.Signature != w.repeatSignature {
		w.repeatSignature, w.repeats = decision.Signature, 0
	}

	if w.log.Recent(decision.Signature, now, w.opts.Cooldown) {
		w.opts.Metrics.RecordSuppressed(w.opts.Target)
		if w.lastOutcome != OutcomeSuppressed || w.lastSignature != decision.Signature {
			w.logger.Debug("prompt suppressed inside cooldown", "rule", decision.Rule, "signature", decision.Signature.Short())
			w.emit(w.decisionEvent(EventPromptSuppressed, decision))
		}
		w.lastSignature = decision.Signature
		return TickResult{Outcome: OutcomeSuppressed, Decision: decision}
	}
	if w.repeats >= w.opts.MaxRepeats {
		w.opts.Metrics.RecordSuppressed(w.opts.Target)
		if w.lastOutcome != OutcomeSuppressed || w.lastSignature != decision.Signature {
			w.logger.Warn("prompt still on screen after repeated answers, leaving it alone", "rule", decision.Rule, "signature", decision.Signature.Short(), "answers", w.repeats)
			w.emit(w.decisionEvent(EventPromptSuppressed, decision))
		}
		w.lastSignature = decision.Signature
		return TickResult{Outcome: OutcomeSuppressed, Decision: decision}
	}
	w.lastSignature = decision.Signature

	if w.opts.DryRun {
		w.repeats++
		w.remember(decision.Signature, now)
		w.logger.Info("prompt detected (dry run)", "rule", decision.Rule, "signature", decision.Signature.Short(), "response", decision.Response)
		w.emit(w.decisionEvent(EventPromptDryRun, decision))
		return TickResult{Outcome: OutcomeDryRun, Decision: decision}
	}

	if err := ctx.Err(); err != nil {
		return TickResult{Outcome: OutcomeNoPrompt, Decision: decision, Err: err}
	}
	w.setState(StateInjecting)
	if err := w.inject(decision); err != nil {
		// Force reclassification on the next tick so the prompt is retried.
		w.lastNormalized = ""
		w.opts.Metrics.RecordSinkError(w.opts.Target)
		w.logger.Error("inject failed", "rule", decision.Rule, "signature", decision.Signature.Short(), "err", err)
		ev := w.decisionEvent(EventSinkFailed, decision)
		ev.Error = err.Error()
		w.emit(ev)
		return TickResult{Outcome: OutcomeSinkFailed, Decision: decision, Err: err}
	}

	w.repeats++
	w.remember(decision.Signature, now)
	w.opts.Metrics.RecordInjection(w.opts.Target, decision.Rule)
	w.updateStatus(func(s *Status) {
		s.Injections++
		s.LastInjectionAt = now
		s.LastSignature = string(decision.Signature)
		s.LastRule = decision.Rule
	})
	w.logger.Info("prompt approved", "rule", decision.Rule, "signature", decision.Signature.Short(), "response", decision.Response)
	w.emit(w.decisionEvent(EventPromptInjected, decision))
	return TickResult{Outcome: OutcomeInjected, Decision: decision}
}

func (w *Watcher) handleNoPrompt(decision prompt.Decision) TickResult {
	switch decision.Reason {
	case prompt.ReasonExcluded:
		w.opts.Metrics.RecordExcluded(w.opts.Target)
		if w.lastOutcome != OutcomeExcluded {
			w.logger.Debug("snapshot excluded", "exclusion", decision.Exclusion)
			w.emit(Event{Kind: EventPromptExcluded, Exclusion: decision.Exclusion})
		}
		return TickResult{Outcome: OutcomeExcluded, Decision: decision}
	case prompt.ReasonAmbiguous:
		w.logger.Debug("prompt marker without context", "marker_line", decision.MarkerLine)
	}
	return TickResult{Outcome: OutcomeNoPrompt, Decision: decision}
}

// inject sends the profile's steps in order. Inter-key delays are not
// interrupted by cancellation so a started response is always completed.
func (w *Watcher) inject(decision prompt.Decision) error {
	steps, err := w.opts.Profile.BuildResponseSteps(decision.Response, decision.Confirm)
	if err != nil {
		return fmt.Errorf("%w: build steps: %w", ErrSinkFailure, err)
	}
	for _, step := range steps {
		if step.Delay > 0 {
			w.opts.Sleep(step.Delay)
		}
		if step.Input != "" {
			if err := w.opts.Sink.SendInput(w.opts.Target, step.Input); err != nil {
				return fmt.Errorf("%w: send input to %s: %w", ErrSinkFailure, w.opts.Target, err)
			}
		}
		if step.Key != "" {
			if err := w.opts.Sink.SendKeys(w.opts.Target, step.Key); err != nil {
				return fmt.Errorf("%w: send %s to %s: %w", ErrSinkFailure, step.Key, w.opts.Target, err)
			}
		}
	}
	return nil
}

func (w *Watcher) decisionEvent(kind string, decision prompt.Decision) Event {
	return Event{
		Kind:      kind,
		Rule:      decision.Rule,
		Signature: string(decision.Signature),
		Response:  decision.Response,
		Region:    decision.Region,
	}
}

func (w *Watcher) emit(ev Event) {
	if w.opts.OnEvent == nil {
		return
	}
	ev.WatcherID = w.opts.ID
	ev.Target = w.opts.Target
	ev.Program = w.opts.Profile.ProgramID()
	if ev.At.IsZero() {
		ev.At = w.opts.Now()
	}
	w.opts.OnEvent(ev)
}

func (w *Watcher) remember(sig prompt.Signature, at time.Time) {
	w.log.Append(sig, at)
	n := w.log.Len()
	w.updateStatus(func(s *Status) { s.Remembered = n })
}

func (w *Watcher) setState(state State) {
	w.updateStatus(func(s *Status) { s.State = state })
}

func (w *Watcher) updateStatus(fn func(*Status)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.status)
}

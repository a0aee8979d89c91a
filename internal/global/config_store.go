package global

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/watcher"
)

const (
	configTOMLFileName = "config.toml"

	defaultAPIPort        = 4731
	defaultSessionPattern = "claude"
)

type WatcherConfig struct {
	PollIntervalMS    int  `json:"poll_interval_ms" toml:"poll_interval_ms"`
	CooldownMS        int  `json:"cooldown_ms" toml:"cooldown_ms"`
	RecheckIntervalMS int  `json:"recheck_interval_ms" toml:"recheck_interval_ms"`
	SettleDelayMS     int  `json:"settle_delay_ms" toml:"settle_delay_ms"`
	CaptureLines      int  `json:"capture_lines" toml:"capture_lines"`
	ScanTailLines     int  `json:"scan_tail_lines" toml:"scan_tail_lines"`
	LogCapacity       int  `json:"log_capacity" toml:"log_capacity"`
	BackoffInitialMS  int  `json:"backoff_initial_ms" toml:"backoff_initial_ms"`
	BackoffMaxMS      int  `json:"backoff_max_ms" toml:"backoff_max_ms"`
	MaxRepeats        int  `json:"max_repeats" toml:"max_repeats"`
	DryRun            bool `json:"dry_run" toml:"dry_run"`
}

type DiscoveryConfig struct {
	Enabled        bool   `json:"enabled" toml:"enabled"`
	IntervalMS     int    `json:"interval_ms" toml:"interval_ms"`
	SessionPattern string `json:"session_pattern" toml:"session_pattern"`
	MatchPrograms  bool   `json:"match_programs" toml:"match_programs"`
}

type APIConfig struct {
	Enabled bool `json:"enabled" toml:"enabled"`
	Port    int  `json:"port" toml:"port"`
}

type HistoryConfig struct {
	Enabled bool `json:"enabled" toml:"enabled"`
	// Keep bounds the number of persisted injection rows; 0 keeps everything.
	Keep int `json:"keep" toml:"keep"`
}

type RuleConfig struct {
	Name           string   `json:"name" toml:"name"`
	PromptMarkers  []string `json:"prompt_markers" toml:"prompt_markers"`
	ContextMarkers []string `json:"context_markers" toml:"context_markers"`
	Window         int      `json:"window" toml:"window"`
	Response       string   `json:"response" toml:"response"`
	Confirm        bool     `json:"confirm" toml:"confirm"`
}

// GlobalConfig is the on-disk config.toml. Simple keys precede tables so the
// encoded file stays valid TOML.
type GlobalConfig struct {
	Targets    []string        `json:"targets" toml:"targets"`
	Exclusions []string        `json:"exclusions" toml:"exclusions"`
	Watcher    WatcherConfig   `json:"watcher" toml:"watcher"`
	Discovery  DiscoveryConfig `json:"discovery" toml:"discovery"`
	API        APIConfig       `json:"api" toml:"api"`
	History    HistoryConfig   `json:"history" toml:"history"`
	Rules      []RuleConfig    `json:"rules" toml:"rules"`
}

// DefaultConfig is the configuration written on first run.
func DefaultConfig() GlobalConfig {
	rules := prompt.DefaultRules()
	cfgRules := make([]RuleConfig, 0, len(rules))
	for _, r := range rules {
		cfgRules = append(cfgRules, RuleConfig{
			Name:           r.Name,
			PromptMarkers:  append([]string(nil), r.PromptMarkers...),
			ContextMarkers: append([]string(nil), r.ContextMarkers...),
			Window:         r.Window,
			Response:       r.Response,
			Confirm:        r.Confirm,
		})
	}
	return GlobalConfig{
		Targets:    []string{},
		Exclusions: prompt.DefaultExclusions(),
		Watcher: WatcherConfig{
			PollIntervalMS:    300,
			CooldownMS:        5000,
			RecheckIntervalMS: 1000,
			SettleDelayMS:     500,
			CaptureLines:      50,
			ScanTailLines:     20,
			LogCapacity:       watcher.DefaultLogCapacity,
			BackoffInitialMS:  500,
			BackoffMaxMS:      10000,
			MaxRepeats:        watcher.DefaultMaxRepeats,
		},
		Discovery: DiscoveryConfig{
			IntervalMS:     5000,
			SessionPattern: defaultSessionPattern,
			MatchPrograms:  true,
		},
		API:     APIConfig{Port: defaultAPIPort},
		History: HistoryConfig{Enabled: true, Keep: 5000},
		Rules:   cfgRules,
	}
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) Dir() string {
	return s.dir
}

func (s *ConfigStore) Path() string {
	return filepath.Join(s.dir, configTOMLFileName)
}

// Load reads config.toml. Keys missing from the file keep their defaults.
func (s *ConfigStore) Load() (GlobalConfig, error) {
	b, err := os.ReadFile(s.Path())
	if err != nil {
		return GlobalConfig{}, err
	}
	defaults := DefaultConfig()
	cfg := defaults
	cfg.Targets, cfg.Exclusions, cfg.Rules = nil, nil, nil
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.Exclusions == nil {
		cfg.Exclusions = defaults.Exclusions
	}
	if cfg.Rules == nil {
		cfg.Rules = defaults.Rules
	}
	return normalizeConfig(cfg), nil
}

func (s *ConfigStore) LoadOrInit() (GlobalConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return GlobalConfig{}, err
	}

	cfg, err := s.Load()
	if err == nil {
		return cfg, nil
	} else if !os.IsNotExist(err) {
		return GlobalConfig{}, err
	}

	cfg = normalizeConfig(DefaultConfig())
	if err := writeTOMLAtomically(s.Path(), cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GlobalConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(s.Path(), normalizeConfig(cfg))
}

func normalizeConfig(cfg GlobalConfig) GlobalConfig {
	w := &cfg.Watcher
	w.PollIntervalMS = clampOrDefault(w.PollIntervalMS, 50, 10_000, 300)
	w.CooldownMS = clampOrDefault(w.CooldownMS, 100, 600_000, 5000)
	w.RecheckIntervalMS = clampOrDefault(w.RecheckIntervalMS, w.PollIntervalMS, 600_000, max(1000, w.PollIntervalMS))
	if w.SettleDelayMS < 0 || w.SettleDelayMS > 10_000 {
		w.SettleDelayMS = 500
	}
	w.CaptureLines = clampOrDefault(w.CaptureLines, 5, 1000, 50)
	if w.ScanTailLines < 0 || w.ScanTailLines > w.CaptureLines {
		w.ScanTailLines = min(20, w.CaptureLines)
	}
	w.LogCapacity = clampOrDefault(w.LogCapacity, 1, 10_000, watcher.DefaultLogCapacity)
	w.BackoffInitialMS = clampOrDefault(w.BackoffInitialMS, 50, 60_000, 500)
	w.BackoffMaxMS = clampOrDefault(w.BackoffMaxMS, w.BackoffInitialMS, 300_000, max(10_000, w.BackoffInitialMS))
	w.MaxRepeats = clampOrDefault(w.MaxRepeats, 1, 100, watcher.DefaultMaxRepeats)

	d := &cfg.Discovery
	d.IntervalMS = clampOrDefault(d.IntervalMS, 500, 600_000, 5000)
	d.SessionPattern = strings.TrimSpace(d.SessionPattern)

	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		cfg.API.Port = defaultAPIPort
	}
	if cfg.History.Keep < 0 {
		cfg.History.Keep = 0
	}

	cfg.Targets = trimNonEmpty(cfg.Targets)
	cfg.Exclusions = trimNonEmpty(cfg.Exclusions)
	for i := range cfg.Rules {
		r := &cfg.Rules[i]
		r.Name = strings.TrimSpace(r.Name)
		r.PromptMarkers = trimNonEmpty(r.PromptMarkers)
		r.ContextMarkers = trimNonEmpty(r.ContextMarkers)
		if r.Window <= 0 {
			r.Window = prompt.DefaultWindow
		}
	}
	return cfg
}

func clampOrDefault(v, lo, hi, def int) int {
	if v <= 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ClassifierOptions converts the rule section into classifier options.
func (c GlobalConfig) ClassifierOptions() prompt.Options {
	rules := make([]prompt.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rules = append(rules, prompt.Rule{
			Name:           r.Name,
			PromptMarkers:  r.PromptMarkers,
			ContextMarkers: r.ContextMarkers,
			Window:         r.Window,
			Response:       r.Response,
			Confirm:        r.Confirm,
		})
	}
	return prompt.Options{
		Rules:         rules,
		Exclusions:    c.Exclusions,
		ScanTailLines: c.Watcher.ScanTailLines,
	}
}

// Classifier compiles the configured rule set.
func (c GlobalConfig) Classifier() (*prompt.Classifier, error) {
	return prompt.NewClassifier(c.ClassifierOptions())
}

// WatcherTemplate returns the per-watcher settings; identity and I/O are
// filled in by the supervisor.
func (c GlobalConfig) WatcherTemplate() watcher.Options {
	w := c.Watcher
	return watcher.Options{
		PollInterval:    ms(w.PollIntervalMS),
		Cooldown:        ms(w.CooldownMS),
		RecheckInterval: ms(w.RecheckIntervalMS),
		SettleDelay:     ms(w.SettleDelayMS),
		CaptureLines:    w.CaptureLines,
		LogCapacity:     w.LogCapacity,
		BackoffInitial:  ms(w.BackoffInitialMS),
		BackoffMax:      ms(w.BackoffMaxMS),
		DryRun:          w.DryRun,
		MaxRepeats:      w.MaxRepeats,
	}
}

// SessionPattern compiles discovery.session_pattern; empty disables name
// matching.
func (c GlobalConfig) SessionPattern() (*regexp.Regexp, error) {
	if c.Discovery.SessionPattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.Discovery.SessionPattern)
	if err != nil {
		return nil, errors.Join(errors.New("invalid discovery.session_pattern"), err)
	}
	return re, nil
}

func (c GlobalConfig) DiscoveryInterval() time.Duration {
	return ms(c.Discovery.IntervalMS)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

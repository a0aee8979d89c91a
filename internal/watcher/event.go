package watcher

import "time"

const (
	EventPromptInjected    = "prompt.injected"
	EventPromptSuppressed  = "prompt.suppressed"
	EventPromptExcluded    = "prompt.excluded"
	EventPromptDryRun      = "prompt.dry_run"
	EventSinkFailed        = "sink.failed"
	EventSourceUnavailable = "source.unavailable"
	EventWatcherStarted    = "watcher.started"
	EventWatcherStopped    = "watcher.stopped"
)

type Event struct {
	Kind      string    `json:"kind"`
	WatcherID string    `json:"watcher_id"`
	Target    string    `json:"target"`
	Program   string    `json:"program,omitempty"`
	Rule      string    `json:"rule,omitempty"`
	Signature string    `json:"signature,omitempty"`
	Response  string    `json:"response,omitempty"`
	Region    []string  `json:"region,omitempty"`
	Exclusion string    `json:"exclusion,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

package watcher

type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateInjecting State = "injecting"
	StateStopped   State = "stopped"
)

// Outcome summarizes what one tick did.
type Outcome string

const (
	OutcomeSourceUnavailable Outcome = "source_unavailable"
	OutcomeUnchanged         Outcome = "unchanged"
	OutcomeNoPrompt          Outcome = "no_prompt"
	OutcomeExcluded          Outcome = "excluded"
	OutcomeSuppressed        Outcome = "suppressed"
	OutcomeInjected          Outcome = "injected"
	OutcomeSinkFailed        Outcome = "sink_failed"
	OutcomeDryRun            Outcome = "dry_run"
)

package prompt

type DecisionKind int

const (
	NoPrompt DecisionKind = iota
	PromptDetected
)

func (k DecisionKind) String() string {
	switch k {
	case PromptDetected:
		return "prompt_detected"
	default:
		return "no_prompt"
	}
}

// Reasons attached to a NoPrompt decision.
const (
	ReasonNoMarker  = "no-marker"
	ReasonExcluded  = "excluded"
	ReasonAmbiguous = "ambiguous"
	ReasonEmpty     = "empty"
)

// Decision is the outcome of classifying one snapshot. Only PromptDetected
// decisions carry a rule, region and signature.
type Decision struct {
	Kind        DecisionKind `json:"kind"`
	Reason      string       `json:"reason,omitempty"`
	Exclusion   string       `json:"exclusion,omitempty"`
	Rule        string       `json:"rule,omitempty"`
	Signature   Signature    `json:"signature,omitempty"`
	Region      []string     `json:"region,omitempty"`
	Response    string       `json:"response,omitempty"`
	Confirm     bool         `json:"confirm,omitempty"`
	MarkerLine  int          `json:"marker_line"`
	ContextLine int          `json:"context_line"`
}

func (d Decision) Detected() bool {
	return d.Kind == PromptDetected
}

// Ambiguous reports a marker that had no confirmation context nearby.
func (d Decision) Ambiguous() bool {
	return d.Kind == NoPrompt && d.Reason == ReasonAmbiguous
}

func noPrompt(reason string) Decision {
	return Decision{Kind: NoPrompt, Reason: reason, MarkerLine: -1, ContextLine: -1}
}

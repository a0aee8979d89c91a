package progdetector

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrDuplicateProfile = errors.New("profile already registered")
	ErrReservedProfile  = errors.New("profile id is reserved")
)

// Registry holds program profiles in registration order; the first profile
// whose matcher accepts a pane's command wins.
type Registry struct {
	mu       sync.RWMutex
	profiles []Detector
	ids      map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{ids: map[string]struct{}{}}
}

// ProgramDetectorRegistry is filled by the profile packages' init funcs.
var ProgramDetectorRegistry = NewRegistry()

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (r *Registry) Register(detector Detector) error {
	if r == nil {
		return errors.New("registry is nil")
	}
	if detector == nil {
		return errors.New("detector is nil")
	}
	id := normalizeID(detector.ProgramID())
	switch id {
	case "":
		return errors.New("program id is required")
	case GenericProgramID:
		return fmt.Errorf("%w: %q", ErrReservedProfile, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ids[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProfile, id)
	}
	r.ids[id] = struct{}{}
	r.profiles = append(r.profiles, detector)
	return nil
}

func (r *Registry) MustRegister(detector Detector) {
	if err := r.Register(detector); err != nil {
		panic(err)
	}
}

func (r *Registry) DetectByCurrentCommand(currentCommand string) (Detector, bool) {
	if r == nil || strings.TrimSpace(currentCommand) == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, detector := range r.profiles {
		if detector.MatchCurrentCommand(currentCommand) {
			return detector, true
		}
	}
	return nil, false
}

// Resolve returns the detector matching currentCommand, or Generic.
func (r *Registry) Resolve(currentCommand string) Detector {
	if detector, ok := r.DetectByCurrentCommand(currentCommand); ok {
		return detector
	}
	return Generic()
}

// List returns a copy of the registered profiles.
func (r *Registry) List() []Detector {
	if r == nil {
		return []Detector{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Detector(nil), r.profiles...)
}

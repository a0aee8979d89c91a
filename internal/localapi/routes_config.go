package localapi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/global"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
)

type checkRequest struct {
	Text string `json:"text"`
}

func (s *Server) registerConfigRoutes() {
	s.mux.HandleFunc("/api/v1/config", s.handleConfig)
	s.mux.HandleFunc("/api/v1/check", s.handleCheck)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if s.deps.ConfigStore == nil {
		respondError(w, http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE", "config store is not configured")
		return
	}
	// Reads never create config.toml; a missing file means defaults.
	cfg, err := s.deps.ConfigStore.Load()
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = global.DefaultConfig(), nil
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "CONFIG_LOAD_FAILED", err.Error())
		return
	}
	respondOK(w, cfg)
}

// handleCheck classifies posted text with the live rule set without touching
// any terminal.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var classifier *prompt.Classifier
	if s.deps.Classifier != nil {
		classifier = s.deps.Classifier()
	}
	if classifier == nil {
		respondError(w, http.StatusServiceUnavailable, "CLASSIFIER_UNAVAILABLE", "no rule set loaded")
		return
	}
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "TEXT_REQUIRED", "text is required")
		return
	}
	decision := classifier.Classify(prompt.NewSnapshot(req.Text, time.Now()))
	respondOK(w, map[string]any{
		"decision": decision.Kind.String(),
		"detail":   decision,
	})
}

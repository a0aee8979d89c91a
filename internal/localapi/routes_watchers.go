package localapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/historydb"
)

const maxInjectionLimit = 500

func (s *Server) registerWatcherRoutes() {
	s.mux.HandleFunc("/api/v1/watchers", s.handleWatchers)
	s.mux.HandleFunc("/api/v1/injections", s.handleInjections)
	s.mux.HandleFunc("/api/v1/sessions", s.handleSessions)
}

func (s *Server) handleWatchers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if s.deps.Watchers == nil {
		respondOK(w, map[string]any{"watchers": []any{}})
		return
	}
	respondOK(w, map[string]any{"watchers": s.deps.Watchers.Statuses()})
}

func (s *Server) handleInjections(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.historyQuery(w, r)
	if !ok {
		return
	}
	rows, err := s.deps.History.List(limit, r.URL.Query().Get("target"))
	if err != nil {
		s.logger.Error("list injections failed", "err", err)
		respondError(w, http.StatusInternalServerError, "HISTORY_LOAD_FAILED", err.Error())
		return
	}
	respondOK(w, map[string]any{"injections": rows})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.historyQuery(w, r)
	if !ok {
		return
	}
	sessions, err := s.deps.History.Sessions(limit)
	if err != nil {
		s.logger.Error("list watcher sessions failed", "err", err)
		respondError(w, http.StatusInternalServerError, "HISTORY_LOAD_FAILED", err.Error())
		return
	}
	respondOK(w, map[string]any{"sessions": sessions})
}

// historyQuery validates a GET against the history store and returns the
// requested row limit. It writes the error response itself.
func (s *Server) historyQuery(w http.ResponseWriter, r *http.Request) (int, bool) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return 0, false
	}
	if s.deps.History == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "injection history is disabled")
		return 0, false
	}
	limit := historydb.DefaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return 0, false
		}
		limit = min(n, maxInjectionLimit)
	}
	return limit, true
}

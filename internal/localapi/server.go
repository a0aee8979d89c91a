package localapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/global"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/historydb"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/watcher"
)

type ConfigStore interface {
	Load() (global.GlobalConfig, error)
}

type WatcherLister interface {
	Statuses() []watcher.Status
}

type InjectionHistory interface {
	List(limit int, target string) ([]historydb.Injection, error)
	Sessions(limit int) ([]historydb.Session, error)
}

type Deps struct {
	ConfigStore ConfigStore
	Watchers    WatcherLister
	History     InjectionHistory
	// Classifier returns the rule set currently in effect.
	Classifier func() *prompt.Classifier
	Metrics    http.Handler
	Logger     *slog.Logger
}

type Server struct {
	deps   Deps
	mux    *http.ServeMux
	hub    *WSHub
	logger *slog.Logger
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub(), logger: logger}
	s.registerConfigRoutes()
	s.registerWatcherRoutes()
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	if deps.Metrics != nil {
		s.mux.Handle("/metrics", deps.Metrics)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("local api listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s.hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// PublishEvent pushes a watcher event to every websocket client.
func (s *Server) PublishEvent(ev watcher.Event) {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.Publish(ev.Kind, ev)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]any{"status": "ok"})
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// Package api exposes the localhost HTTP command surface consumed by the
// settings UI: settings, keys, session control, history, and the websocket
// event feed.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"dicto/internal/config"
	"dicto/internal/history"
	"dicto/internal/ipc"
	"dicto/internal/keys"
)

// SessionControl is the controller subset the HTTP surface drives.
type SessionControl interface {
	Handle(context.Context, ipc.Request) ipc.Response
}

// Server wires the command handlers onto a mux router.
type Server struct {
	settings *config.Store
	vault    *keys.Vault
	control  SessionControl
	history  *history.Store
	hub      *Hub
	logger   *slog.Logger
}

// NewServer constructs the HTTP command surface. history may be nil when
// retention is disabled.
func NewServer(
	settings *config.Store,
	vault *keys.Vault,
	control SessionControl,
	hist *history.Store,
	hub *Hub,
	logger *slog.Logger,
) *Server {
	return &Server{
		settings: settings,
		vault:    vault,
		control:  control,
		history:  hist,
		hub:      hub,
		logger:   logger,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/v1/settings", s.handleSettingsGet).Methods("GET")
	r.HandleFunc("/v1/settings", s.handleSettingsUpdate).Methods("PATCH")
	r.HandleFunc("/v1/keys", s.handleKeysGet).Methods("GET")
	r.HandleFunc("/v1/keys", s.handleKeysSet).Methods("PUT")
	r.HandleFunc("/v1/keys", s.handleKeysClear).Methods("DELETE")
	r.HandleFunc("/v1/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/v1/session/start", s.handleSessionCommand(ipc.CommandStart)).Methods("POST")
	r.HandleFunc("/v1/session/stop", s.handleSessionCommand(ipc.CommandStop)).Methods("POST")
	r.HandleFunc("/v1/session/cancel", s.handleSessionCommand(ipc.CommandCancel)).Methods("POST")
	r.HandleFunc("/v1/sessions", s.handleSessions).Methods("GET")
	r.HandleFunc("/v1/events", s.hub.Subscribe).Methods("GET")
	return r
}

// ListenAndServe serves the router on addr until context cancellation.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

// handleSettingsUpdate merges a partial record. The response carries the
// merged in-memory record; disk persistence runs in the background.
func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var partial config.Partial
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.settings.Update(partial))
}

func (s *Server) handleKeysGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.vault.Presence())
}

type keysSetRequest struct {
	GroqAPIKey   *string `json:"groqApiKey"`
	GeminiAPIKey *string `json:"geminiApiKey"`
}

// handleKeysSet stores only the fields the caller supplied; absent or empty
// fields leave the stored secret unchanged. The response is presence only.
func (s *Server) handleKeysSet(w http.ResponseWriter, r *http.Request) {
	var req keysSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid keys payload", http.StatusBadRequest)
		return
	}

	if err := s.vault.Set(req.GroqAPIKey, req.GeminiAPIKey); err != nil {
		s.logError("store keys failed", err)
		http.Error(w, "store keys failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.vault.Presence())
}

func (s *Server) handleKeysClear(w http.ResponseWriter, r *http.Request) {
	which := r.URL.Query().Get("which")
	if err := s.vault.Clear(which); err != nil {
		s.logError("clear keys failed", err)
		http.Error(w, "clear keys failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.vault.Presence())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := s.control.Handle(r.Context(), ipc.Request{Command: ipc.CommandStatus})
	writeJSON(w, http.StatusOK, resp)
}

// handleSessionCommand forwards start/stop/cancel to the controller. Commands
// the state guard rejects return 409.
func (s *Server) handleSessionCommand(command string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := s.control.Handle(r.Context(), ipc.Request{Command: command})
		status := http.StatusOK
		if !resp.OK {
			status = http.StatusConflict
		}
		writeJSON(w, status, resp)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.Record{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logError("list sessions failed", err)
		http.Error(w, "list sessions failed", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) logError(message string, err error) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.Error(message, "error", err.Error())
}

// Package server exposes the suggestion pipeline over HTTP. The dispatch
// surface is deliberately thin: parameter extraction, a staff access gate,
// and a hard guarantee that every response is a structured JSON object with
// a success flag, even when something inside fails catastrophically.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/osticket/ai-assistant/internal/assistant"
	"github.com/osticket/ai-assistant/internal/config"
)

// Assistant is the core surface the dispatch layer calls into.
type Assistant interface {
	AnalyzeTicket(ctx context.Context, ticketID int64) assistant.Suggestion
	Template(ctx context.Context, templateID int64) (*assistant.Template, error)
}

// Server handles the inbound API operations.
type Server struct {
	assistant Assistant
	cfg       *config.Config
	logger    *slog.Logger
}

// New builds the HTTP handler: routes wrapped with request-id logging, the
// optional staff token gate, and panic recovery.
func New(a Assistant, cfg *config.Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		assistant: a,
		cfg:       cfg,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/suggest", s.handleSuggest)
	mux.HandleFunc("/api/template", s.handleTemplate)
	mux.HandleFunc("/api/status", s.handleStatus)

	return s.withRecovery(s.withRequestID(s.withAuth(mux)))
}

type templateResponse struct {
	Success  bool                `json:"success"`
	Template *assistant.Template `json:"template,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type statusResponse struct {
	Success     bool `json:"success"`
	AutoSuggest bool `json:"auto_suggest"`
}

// handleSuggest serves "suggest for ticket X". The ticket id is accepted
// from form or query parameters, matching the original dispatch surface.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ticketID, errMsg := idParam(r, "ticket_id", "Ticket ID required", "Invalid ticket ID")
	if errMsg != "" {
		writeJSON(w, assistant.Suggestion{Success: false, Error: errMsg})
		return
	}

	result := s.assistant.AnalyzeTicket(r.Context(), ticketID)
	writeJSON(w, result)
}

// handleTemplate serves "fetch template by id".
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, errMsg := idParam(r, "template_id", "Template ID required", "Invalid template ID")
	if errMsg != "" {
		writeJSON(w, templateResponse{Success: false, Error: errMsg})
		return
	}

	tmpl, err := s.assistant.Template(r.Context(), templateID)
	if err != nil {
		s.logger.Error("template lookup failed", "template_id", templateID, "error", err)
		writeJSON(w, templateResponse{Success: false, Error: fmt.Sprintf("Template lookup failed: %v", err)})
		return
	}
	if tmpl == nil {
		writeJSON(w, templateResponse{Success: false, Error: "Template not found"})
		return
	}

	writeJSON(w, templateResponse{Success: true, Template: tmpl})
}

// handleStatus tells the agent UI whether to auto-request suggestions on
// ticket view.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, statusResponse{Success: true, AutoSuggest: s.cfg.AutoSuggest})
}

// idParam extracts a positive integer parameter from form or query values.
// It returns a human-readable error message instead of an error value since
// every outcome ends up in the same structured JSON shape.
func idParam(r *http.Request, name, missingMsg, invalidMsg string) (int64, string) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, missingMsg
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidMsg
	}
	return id, ""
}

// writeJSON emits the structured result with HTTP 200. Failures are encoded
// in the payload's success flag, not in the status code, so the front-end
// handles exactly one response shape.
func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// withAuth rejects requests without the configured staff token. When no
// token is configured the gate is open (the host is expected to sit in
// front).
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken != "" {
			if r.Header.Get("Authorization") != "Bearer "+s.cfg.AuthToken {
				http.Error(w, "Access Denied", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestID tags each request with a UUID for log correlation.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		s.logger.Info("request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path)

		next.ServeHTTP(w, r)

		s.logger.Info("request finished",
			"request_id", requestID,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// withRecovery converts a panic anywhere below into the same structured
// failure shape the handlers produce. The boundary contract is that callers
// always receive a JSON object with a success flag.
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "path", r.URL.Path, "panic", rec)
				writeJSON(w, assistant.Suggestion{
					Success: false,
					Error:   fmt.Sprintf("FATAL ERROR: %v", rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

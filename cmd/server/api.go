package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/redinsight/agent/internal/agent"
	"github.com/redinsight/agent/internal/conversation"
	"github.com/redinsight/agent/internal/handlers"
	"github.com/redinsight/agent/internal/models"
	"github.com/redinsight/agent/internal/session"
)

// apiServer exposes the dispatcher over JSON endpoints: one conversational
// entry point plus direct per-capability routes.
type apiServer struct {
	dispatcher *agent.Dispatcher
	store      *conversation.Store
	holder     *session.Holder
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", requireMethod(http.MethodPost, s.handleChat))
	mux.HandleFunc("/api/search", requireMethod(http.MethodPost, s.capability(models.CapabilitySearch)))
	mux.HandleFunc("/api/ranking", requireMethod(http.MethodPost, s.capability(models.CapabilityRanking)))
	mux.HandleFunc("/api/ranking/types", requireMethod(http.MethodGet, s.handleRankingTypes))
	mux.HandleFunc("/api/regional", requireMethod(http.MethodPost, s.capability(models.CapabilityRegional)))
	mux.HandleFunc("/api/regional/cities", requireMethod(http.MethodGet, s.handleCities))
	mux.HandleFunc("/api/statistics", requireMethod(http.MethodPost, s.capability(models.CapabilityAnalytics)))
	mux.HandleFunc("/api/guide", requireMethod(http.MethodPost, s.capability(models.CapabilityGuide)))
	mux.HandleFunc("/api/guide/types", requireMethod(http.MethodGet, s.handleGuideTypes))
	mux.HandleFunc("/api/compare", requireMethod(http.MethodPost, s.capability(models.CapabilityCompare)))
	mux.HandleFunc("/api/session/clear", requireMethod(http.MethodPost, s.handleClearSession))
	mux.HandleFunc("/api/session/credentials", requireMethod(http.MethodPost, s.handleUpdateCredentials))
	mux.HandleFunc("/health", requireMethod(http.MethodGet, s.handleHealth))
	return mux
}

// requireMethod restricts a route to one HTTP method, mirroring the
// "METHOD /path" patterns of the Go 1.22 ServeMux (GET also admits HEAD)
// on the Go 1.21 mux, which has no method patterns.
func requireMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *apiServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	report := s.dispatcher.HandleMessage(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, report)
}

type capabilityRequest struct {
	SessionID string        `json:"session_id"`
	Params    models.Params `json:"params"`
}

// capability builds a handler that runs one capability directly with the
// posted parameters, skipping intent classification.
func (s *apiServer) capability(c models.Capability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req capabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if req.SessionID == "" {
			req.SessionID = "default"
		}

		report := s.dispatcher.RunCapability(r.Context(), req.SessionID, c, req.Params)
		writeJSON(w, http.StatusOK, report)
	}
}

func (s *apiServer) handleRankingTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": handlers.RankingCategories()})
}

func (s *apiServer) handleCities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"cities": handlers.SupportedCities()})
}

func (s *apiServer) handleGuideTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"guide_types": handlers.GuideTypes()})
}

func (s *apiServer) handleClearSession(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}
	s.store.Clear(req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "session_id": req.SessionID})
}

type credentialsRequest struct {
	Cookies string `json:"cookies"`
}

// handleUpdateCredentials installs fresh platform cookies. This is the
// recovery path after the session holder invalidates an expired session.
func (s *apiServer) handleUpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Cookies) == "" {
		writeError(w, http.StatusBadRequest, "cookies are required")
		return
	}

	s.holder.Reset(req.Cookies)
	slog.Info("platform credentials updated")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "updated",
		"session_valid": s.holder.Valid(),
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"status":        "ok",
		"session_valid": s.holder.Valid(),
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Package api exposes the Ellie backend over HTTP: chat, history, profile,
// and reset endpoints plus health and echo probes.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edgard/elliebot/internal/ai"
	"github.com/edgard/elliebot/internal/chat"
	"github.com/edgard/elliebot/internal/database"
)

// anonymousUser is used when /api/chat requests carry no userId.
const anonymousUser = "anon"

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	chat   *chat.Service
	store  database.Store
	ai     ai.Client
	logger *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(chatSvc *chat.Service, store database.Store, aiClient ai.Client, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handlers{
		chat:   chatSvc,
		store:  store,
		ai:     aiClient,
		logger: logger.With("component", "api"),
	}
}

type chatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type profileRequest struct {
	UserID      string  `json:"userId"`
	Name        *string `json:"name"`
	Preferences *string `json:"preferences"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type healthResponse struct {
	Message string `json:"message"`
	DB      bool   `json:"db"`
	HasKey  bool   `json:"has_key"`
}

type historyResponse struct {
	Messages []chat.HistoryEntry `json:"messages"`
}

type echoResponse struct {
	YouSaid string `json:"you_said"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Health reports service liveness, database reachability, and whether the
// upstream credential is configured.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Message: "Ellie AI backend is running 💖",
		DB:      h.store.Ping(r.Context()) == nil,
		HasKey:  h.ai.Configured(),
	})
}

// SaveProfile stores or replaces a user's name and preferences.
func (h *Handlers) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.chat.SaveProfile(r.Context(), req.UserID, req.Name, req.Preferences); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to save profile", "user_id", req.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	respondJSON(w, http.StatusOK, okResponse{OK: true})
}

// Reset deletes all stored history for a user.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.chat.Reset(r.Context(), req.UserID); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to reset history", "user_id", req.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to reset history")
		return
	}

	respondJSON(w, http.StatusOK, okResponse{OK: true})
}

// Chat forwards a user message to the upstream model and returns the reply.
// Upstream failures map to 502 so clients can tell them apart from local
// storage errors, which map to 500.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = anonymousUser
	}

	reply, err := h.chat.Converse(r.Context(), userID, req.Message)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		respondError(w, http.StatusInternalServerError, "upstream API key not configured")
	case errors.Is(err, ai.ErrUpstream):
		respondError(w, http.StatusBadGateway, err.Error())
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Chat request failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to process chat message")
	default:
		respondJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}

// History returns recent turns for a user, excluding the system entry.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := h.chat.HistoryLimit()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries := h.chat.History(r.Context(), userID, limit)
	respondJSON(w, http.StatusOK, historyResponse{Messages: entries})
}

// Echo returns the posted message, for testing POSTs without the upstream.
func (h *Handlers) Echo(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	respondJSON(w, http.StatusOK, echoResponse{YouSaid: req.Message})
}

// Root is a friendly landing response.
func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, messageResponse{Message: "Ellie backend is up."})
}

// Package api provides the HTTP handlers for the scholarship agent.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openscholar/scholarship-agent/internal/agent"
	"github.com/openscholar/scholarship-agent/internal/config"
	"github.com/openscholar/scholarship-agent/internal/conversation"
	"github.com/openscholar/scholarship-agent/internal/history"
	"github.com/openscholar/scholarship-agent/internal/logger"
	"github.com/openscholar/scholarship-agent/internal/profile"
	"github.com/openscholar/scholarship-agent/internal/session"
)

// Handler wires the agent, session store and message archive to HTTP.
type Handler struct {
	store   session.Store
	agent   *agent.Agent
	archive *history.Archive
	cfg     *config.Config
	locks   *session.KeyedMutex
}

// NewHandler creates a handler with its dependencies.
func NewHandler(store session.Store, ag *agent.Agent, archive *history.Archive, cfg *config.Config) *Handler {
	return &Handler{
		store:   store,
		agent:   ag,
		archive: archive,
		cfg:     cfg,
		locks:   session.NewKeyedMutex(),
	}
}

// Routes registers all endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/chat", h.Chat)
	r.Get("/profile/{session_id}", h.Profile)
	r.Post("/reset/{session_id}", h.Reset)
	r.Get("/sessions/stats", h.Stats)
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response          string             `json:"response"`
	SessionID         string             `json:"session_id"`
	ConversationState conversation.State `json:"conversation_state"`
	UserProfile       profile.Profile    `json:"user_profile"`
	MessageID         string             `json:"message_id"`
}

type chatError struct {
	Error             string             `json:"error"`
	ConversationState conversation.State `json:"conversation_state"`
	Retryable         bool               `json:"retryable"`
}

// Chat processes one user message. A missing or unknown session id
// allocates a new session. Turns for the same session are serialized
// through a per-key lock; other sessions proceed in parallel.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	sess, err := h.store.GetOrCreate(r.Context(), req.SessionID)
	if err != nil {
		logger.L.Error("get or create session failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	h.locks.Lock(sess.ID)
	defer h.locks.Unlock(sess.ID)

	result, err := h.agent.Process(r.Context(), sess, req.Message)

	// Recorded after the turn: follow-up prompts window over history and
	// must not see the current message there a second time.
	userMsg := sess.Append(session.SenderUser, req.Message, session.MessageTypeText)
	h.archive.Save(sess.ID, userMsg)

	if err != nil {
		errMsg := sess.Append(session.SenderAgent, err.Error(), session.MessageTypeError)
		h.archive.Save(sess.ID, errMsg)
		if saveErr := h.store.Save(r.Context(), sess); saveErr != nil {
			logger.L.Error("save session after turn error failed", "session_id", sess.ID, "error", saveErr)
		}

		if errors.Is(err, agent.ErrRetryable) {
			logger.L.Warn("retryable turn failure", "session_id", sess.ID, "state", sess.State, "error", err)
			JSON(w, http.StatusBadGateway, chatError{
				Error:             "The scholarship search is temporarily unavailable. Please try again.",
				ConversationState: sess.State,
				Retryable:         true,
			})
			return
		}
		logger.L.Error("turn failed", "session_id", sess.ID, "error", err)
		JSON(w, http.StatusInternalServerError, chatError{
			Error:             "internal server error",
			ConversationState: sess.State,
		})
		return
	}

	agentMsg := sess.Append(session.SenderAgent, result.Reply, result.Type)
	h.archive.Save(sess.ID, agentMsg)
	if err := h.store.Save(r.Context(), sess); err != nil {
		logger.L.Error("save session failed", "session_id", sess.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	JSON(w, http.StatusOK, chatResponse{
		Response:          result.Reply,
		SessionID:         sess.ID,
		ConversationState: sess.State,
		UserProfile:       sess.Profile,
		MessageID:         agentMsg.ID,
	})
}

type profileResponse struct {
	SessionID         string             `json:"session_id"`
	UserProfile       profile.Profile    `json:"user_profile"`
	ConversationState conversation.State `json:"conversation_state"`
}

// Profile returns the current profile and state of a session.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	sess, err := h.store.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		Error(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		logger.L.Error("get session failed", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	JSON(w, http.StatusOK, profileResponse{
		SessionID:         sess.ID,
		UserProfile:       sess.Profile,
		ConversationState: sess.State,
	})
}

// Reset clears a session's profile, state and history. Unknown ids are
// a no-op and still succeed.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")

	h.locks.Lock(id)
	defer h.locks.Unlock(id)

	if err := h.store.Reset(r.Context(), id); err != nil {
		logger.L.Error("reset session failed", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Session reset successfully",
	})
}

// Health reports liveness and whether the external API keys are set.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	configured := h.cfg.LLM.APIKey != "" && h.cfg.Search.APIKey != ""
	JSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"timestamp":           time.Now().Format(time.RFC3339),
		"api_keys_configured": configured,
	})
}

// Stats reports session counts for monitoring.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		logger.L.Error("session stats failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to collect stats")
		return
	}
	JSON(w, http.StatusOK, stats)
}

// Root serves the service banner.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"message": "Scholarship Agent API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health": "/health",
			"chat":   "/chat",
			"stats":  "/sessions/stats",
		},
	})
}

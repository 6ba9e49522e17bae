package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/zara-ai/internal/api/response"
	"github.com/Rrens/zara-ai/internal/chat"
	"github.com/Rrens/zara-ai/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SessionHandler handles saved conversation endpoints
type SessionHandler struct {
	sessions *session.Store
	chat     *chat.Controller
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Store, controller *chat.Controller) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		chat:     controller,
	}
}

type renameRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

// List returns session summaries, most recently updated first
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.sessions.List())
}

// New starts an empty conversation. The session is created on the first exchange.
func (h *SessionHandler) New(w http.ResponseWriter, r *http.Request) {
	h.chat.NewChat()
	response.OK(w, h.chat.Snapshot())
}

// Get loads a session into the visible conversation
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.chat.Load(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, "failed to load session")
		return
	}

	response.OK(w, h.chat.Snapshot())
}

// Rename changes a session title
func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req renameRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.sessions.Rename(id, req.Title); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, "failed to rename session")
		return
	}

	sess, _ := h.sessions.Get(id)
	response.OK(w, sess.Summary())
}

// Delete removes a session, dropping it from view when it is displayed
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.chat.SessionDeleted(id)
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, "failed to delete session")
		return
	}

	if err := h.sessions.PersistError(); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("session deleted in memory but not persisted")
	}
	response.NoContent(w)
}

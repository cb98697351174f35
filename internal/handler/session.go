package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/middleware"
	"github.com/haventalk/voice-ingest-go/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Delete("/", h.DeleteAll)
	r.Get("/{sessionID}", h.Get)
	r.Get("/{sessionID}/turns", h.Transcript)

	return r
}

// GET /v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	page := ParsePagination(r)

	result, err := h.sessionService.List(r.Context(), profile.ID, page.Limit, page.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessionService.Get(r.Context(), profile.ID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GET /v1/sessions/{sessionID}/turns
func (h *SessionHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	transcript, err := h.sessionService.Transcript(r.Context(), profile.ID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transcript)
}

// DELETE /v1/sessions
func (h *SessionHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())

	count, err := h.sessionService.DeleteAll(r.Context(), profile.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete sessions")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

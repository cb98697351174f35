package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/middleware"
	"github.com/haventalk/voice-ingest-go/internal/service"
	"github.com/haventalk/voice-ingest-go/internal/voice"
)

type ConnectionHandler struct {
	manager   *service.ConnectionManager
	signature func(http.Handler) http.Handler
}

func NewConnectionHandler(manager *service.ConnectionManager, signature func(http.Handler) http.Handler) *ConnectionHandler {
	return &ConnectionHandler{manager: manager, signature: signature}
}

func (h *ConnectionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Start)
	r.Delete("/{connectionID}", h.Stop)
	r.With(h.signature).Post("/{connectionID}/events", h.InjectEvents)

	return r
}

// POST /v1/connections
func (h *ConnectionHandler) Start(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())

	connectionID := h.manager.Start(profile.ID)

	writeJSON(w, http.StatusCreated, map[string]string{
		"connectionId": connectionID,
	})
}

// DELETE /v1/connections/{connectionID}
func (h *ConnectionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	connectionID := chi.URLParam(r, "connectionID")

	if err := h.manager.Stop(r.Context(), connectionID, profile.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// POST /v1/connections/{connectionID}/events
//
// Webhook ingress: accepts one provider event, or a JSON array of them, and
// feeds the connection's sink in delivery order. Always answers 202 once the
// events are handed off; pipeline failures never surface here.
func (h *ConnectionHandler) InjectEvents(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	connectionID := chi.URLParam(r, "connectionID")

	sink, err := h.manager.Sink(connectionID, profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
		return
	}

	events, err := splitEvents(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	ctx := r.Context()
	for _, raw := range events {
		if err := voice.Dispatch(ctx, sink, raw); err != nil {
			log.Error().
				Err(err).
				Str("connectionId", connectionID).
				Msg("failed to dispatch webhook event")
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"received": len(events)})
}

// splitEvents accepts either one event object or an array of them.
func splitEvents(body []byte) ([]json.RawMessage, error) {
	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err == nil {
		return batch, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-notify-sync/internal/domain"
	"github.com/go-notify-sync/internal/push"
	"github.com/go-notify-sync/internal/transport/http/middleware"
)

// EventsHandler serves the live-event stream.
type EventsHandler struct {
	hub *push.Hub
}

func NewEventsHandler(hub *push.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream subscribes the caller to a channel as text/event-stream. The channel
// is private: only the exact channel derived from the caller's own claims may
// be joined, so knowing another tenant's channel name gives no access.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	channel := chi.URLParam(r, "channel")
	if channel != domain.ChannelName(claims.TenantID, claims.UserID) {
		writeError(w, http.StatusForbidden, "channel not permitted")
		return
	}
	h.hub.Serve(w, r, channel)
}

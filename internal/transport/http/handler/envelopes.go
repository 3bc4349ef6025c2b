package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-notify-sync/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// PaginatedNotificationsEnvelope wraps paginated notification list responses.
// NextCursor is opaque; empty means the listing is exhausted.
type PaginatedNotificationsEnvelope struct {
	Data       []domain.Notification `json:"data"`
	NextCursor string                `json:"next_cursor,omitempty"`
	ActualPage int                   `json:"actual_page,omitempty"`
	PerPage    int                   `json:"per_page,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// BulkReadEnvelope reports which notifications a mark-all touched.
type BulkReadEnvelope struct {
	NotificationIDs []string `json:"notification_ids"`
	Error           string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

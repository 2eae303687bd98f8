package api

import (
	"errors"
	"net/http"

	"github.com/erazemk/inventar/internal/notify"
)

// NotificationsHandler handles notification endpoints.
type NotificationsHandler struct {
	Notify *notify.Service
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	ns, err := h.Notify.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, ns)
}

// Unread handles GET /api/notifications/unread.
func (h *NotificationsHandler) Unread(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notify.Unread(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"unread": n})
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.Notify.MarkRead(r.Context(), r.PathValue("id"))
	if errors.Is(err, notify.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/notifications/read.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Notify.MarkAllRead(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"taskgate/internal/api/middleware"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/platform/repositories"
)

type NotificationHandler struct {
	responder
	repo *repositories.NotificationRepository
}

func NewNotificationHandler(repo *repositories.NotificationRepository, debug bool) *NotificationHandler {
	return &NotificationHandler{responder: responder{debug: debug}, repo: repo}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	items, err := h.repo.ListByUser(r.Context(), tenant.OrgID, tenant.UserID, unreadOnly)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

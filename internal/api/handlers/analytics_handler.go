package handlers

import (
	"net/http"

	"taskgate/internal/api/middleware"
	"taskgate/internal/engine/analytics"
	"taskgate/internal/pkg/errors"
)

type AnalyticsHandler struct {
	responder
	svc *analytics.Service
}

func NewAnalyticsHandler(svc *analytics.Service, debug bool) *AnalyticsHandler {
	return &AnalyticsHandler{responder: responder{debug: debug}, svc: svc}
}

func (h *AnalyticsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	overview, err := h.svc.GetOverview(r.Context(), tenant.OrgID)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

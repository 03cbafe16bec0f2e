package handlers

import (
	"net/http"

	"taskgate/internal/platform/telemetry"
)

type MetricsHandler struct {
	export http.Handler
}

func NewMetricsHandler(tracker *telemetry.Tracker) *MetricsHandler {
	return &MetricsHandler{export: tracker.Handler()}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.export.ServeHTTP(w, r)
}

package handlers

import (
	"net/http"

	"taskgate/internal/api/middleware"
	"taskgate/internal/engine/automations"
)

type AutomationHandler struct {
	responder
	svc *automations.Service
}

func NewAutomationHandler(svc *automations.Service, debug bool) *AutomationHandler {
	return &AutomationHandler{responder: responder{debug: debug}, svc: svc}
}

func (h *AutomationHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	rules, err := h.svc.List(r.Context(), tenant.OrgID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *AutomationHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	var in automations.RuleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	rule, err := h.svc.Create(r.Context(), tenant.OrgID, tenant.UserID, &in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *AutomationHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	var in automations.RuleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	rule, err := h.svc.Update(r.Context(), tenant.OrgID, param(r, "automation_id"), &in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *AutomationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	rule, err := h.svc.Toggle(r.Context(), tenant.OrgID, param(r, "automation_id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *AutomationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	if err := h.svc.Delete(r.Context(), tenant.OrgID, param(r, "automation_id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

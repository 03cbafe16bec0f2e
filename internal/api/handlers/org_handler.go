package handlers

import (
	"context"
	"net/http"

	"taskgate/internal/api/middleware"
	"taskgate/internal/engine/plans"
	"taskgate/internal/engine/usage"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/platform/models"
	"taskgate/internal/platform/repositories"
)

type OrgInvalidator interface {
	Invalidate(id string)
}

type UsageReader interface {
	GetUsage(ctx context.Context, orgID string) (usage.Snapshot, error)
}

type OrgHandler struct {
	responder
	orgRepo *repositories.OrganizationRepository
	cache   OrgInvalidator
	usage   UsageReader
}

func NewOrgHandler(orgRepo *repositories.OrganizationRepository, cache OrgInvalidator, usage UsageReader, debug bool) *OrgHandler {
	return &OrgHandler{
		responder: responder{debug: debug},
		orgRepo:   orgRepo,
		cache:     cache,
		usage:     usage,
	}
}

type OrgResponse struct {
	Organization *models.Organization `json:"organization"`
	Limits       plans.Limits         `json:"limits"`
}

func (h *OrgHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	org, err := h.orgRepo.GetByID(r.Context(), tenant.OrgID)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	if org == nil {
		h.fail(w, errors.NotFound("Organization not found"))
		return
	}

	writeJSON(w, http.StatusOK, OrgResponse{Organization: org, Limits: plans.Get(org.Plan)})
}

type UpdatePlanRequest struct {
	Plan string `json:"plan"`
}

// UpdatePlan switches the org's tier. The cached org is dropped before the
// response so the next gated request sees the new plan.
func (h *OrgHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	var req UpdatePlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !plans.Valid(req.Plan) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeValidation, "Unknown plan", map[string]interface{}{
			"plans": plans.Names(),
		})
		return
	}

	ctx := r.Context()
	if err := h.orgRepo.UpdatePlan(ctx, tenant.OrgID, req.Plan); err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	h.cache.Invalidate(tenant.OrgID)

	org, err := h.orgRepo.GetByID(ctx, tenant.OrgID)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}

	writeJSON(w, http.StatusOK, OrgResponse{Organization: org, Limits: plans.Get(org.Plan)})
}

type UsageResponse struct {
	Plan   string         `json:"plan"`
	Usage  usage.Snapshot `json:"usage"`
	Limits plans.Limits   `json:"limits"`
}

func (h *OrgHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	snapshot, err := h.usage.GetUsage(r.Context(), tenant.OrgID)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}

	plan := plans.Normalize(tenant.Plan)
	writeJSON(w, http.StatusOK, UsageResponse{Plan: plan, Usage: snapshot, Limits: plans.Get(plan)})
}

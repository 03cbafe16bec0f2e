package handlers

import (
	"net/http"

	"taskgate/internal/api/middleware"
	"taskgate/internal/engine/keys"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/platform/models"
	"taskgate/internal/platform/repositories"
)

const keyUsageLimit = 100

type APIKeyHandler struct {
	responder
	keySvc    *keys.Service
	keyRepo   *repositories.APIKeyRepository
	usageRepo *repositories.APIKeyUsageRepository
}

func NewAPIKeyHandler(keySvc *keys.Service, keyRepo *repositories.APIKeyRepository, usageRepo *repositories.APIKeyUsageRepository, debug bool) *APIKeyHandler {
	return &APIKeyHandler{
		responder: responder{debug: debug},
		keySvc:    keySvc,
		keyRepo:   keyRepo,
		usageRepo: usageRepo,
	}
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	items, err := h.keyRepo.ListByOrg(r.Context(), tenant.OrgID)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type CreateKeyRequest struct {
	Name string `json:"name"`
}

// CreateKeyResponse is the only place the plaintext key is ever returned.
type CreateKeyResponse struct {
	*models.APIKey
	Key string `json:"key"`
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	var req CreateKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	issued, err := h.keySvc.Issue(r.Context(), tenant.UserID, tenant.OrgID, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateKeyResponse{APIKey: issued.Key, Key: issued.Secret})
}

func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	if err := h.keySvc.Revoke(r.Context(), tenant.OrgID, param(r, "key_id")); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

// Usage returns the most recent requests made with one of the org's keys.
func (h *APIKeyHandler) Usage(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)
	ctx := r.Context()

	key, err := h.keyRepo.GetByID(ctx, tenant.OrgID, param(r, "key_id"))
	if err != nil {
		mapped := errors.FromStore(err)
		if e, ok := mapped.(*errors.AppError); ok && e.Code == errors.ErrCodeNotFound {
			mapped = errors.NotFound("API key not found")
		}
		h.fail(w, mapped)
		return
	}

	entries, err := h.usageRepo.ListByKey(ctx, key.ID, keyUsageLimit)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

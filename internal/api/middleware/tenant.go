package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	apiContext "taskgate/internal/api/context"
	"taskgate/internal/engine/keys"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/platform/auth"
	"taskgate/internal/platform/models"
)

// TenantContext is the resolved caller for a request, whether it came in
// with a session token or an API key.
type TenantContext struct {
	OrgID    string
	OrgSlug  string
	Plan     string
	UserID   string
	Role     string
	APIKeyID string
}

type OrgSource interface {
	Load(ctx context.Context, id string) (*models.Organization, error)
}

type TenantMiddleware struct {
	orgs OrgSource
	log  zerolog.Logger
}

func NewTenantMiddleware(orgs OrgSource) *TenantMiddleware {
	return &TenantMiddleware{orgs: orgs, log: logger.Component("tenant")}
}

func (m *TenantMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := &TenantContext{}
		if claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims); ok {
			tenant.OrgID = claims.OrganizationID
			tenant.UserID = claims.UserID
			tenant.Role = claims.Role
		} else if identity, ok := r.Context().Value(apiContext.APIKey).(*keys.Identity); ok {
			tenant.OrgID = identity.OrgID
			tenant.UserID = identity.UserID
			tenant.APIKeyID = identity.KeyID
		} else {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authentication claims found", nil)
			return
		}

		org, err := m.orgs.Load(r.Context(), tenant.OrgID)
		if err != nil {
			m.log.Error().Err(err).Str("org_id", tenant.OrgID).Msg("failed to load organization")
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load organization", nil)
			return
		}
		if org == nil {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Organization not found", nil)
			return
		}

		tenant.OrgSlug = org.Slug
		tenant.Plan = org.Plan

		ctx := context.WithValue(r.Context(), apiContext.Tenant, tenant)
		next(w, r.WithContext(ctx))
	}
}

// TenantFrom returns the tenant set by TenantMiddleware, or nil.
func TenantFrom(r *http.Request) *TenantContext {
	tenant, _ := r.Context().Value(apiContext.Tenant).(*TenantContext)
	return tenant
}

package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"taskgate/internal/engine/plans"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/pkg/logger"
)

type PlanChecker interface {
	Check(ctx context.Context, orgID, plan string, action plans.Action) (plans.Decision, error)
}

type QuotaObserver interface {
	ObserveQuotaDenied(plan, action string)
}

// PlanMiddleware gates a route on the tenant's plan. It must run after
// TenantMiddleware.
type PlanMiddleware struct {
	checker  PlanChecker
	observer QuotaObserver
	debug    bool
	log      zerolog.Logger
}

func NewPlanMiddleware(checker PlanChecker, observer QuotaObserver, debug bool) *PlanMiddleware {
	return &PlanMiddleware{checker: checker, observer: observer, debug: debug, log: logger.Component("plans")}
}

func (m *PlanMiddleware) Require(action plans.Action) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tenant := TenantFrom(r)
			if tenant == nil {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authentication claims found", nil)
				return
			}

			decision, err := m.checker.Check(r.Context(), tenant.OrgID, tenant.Plan, action)
			if err != nil {
				m.log.Error().Err(err).Str("org_id", tenant.OrgID).Str("action", string(action)).Msg("quota check failed")
				errors.Write(w, errors.FromStore(err), m.debug)
				return
			}

			if !decision.Allowed {
				if m.observer != nil {
					m.observer.ObserveQuotaDenied(plans.Normalize(tenant.Plan), string(action))
				}
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, decision.Message, decision)
				return
			}

			next(w, r)
		}
	}
}

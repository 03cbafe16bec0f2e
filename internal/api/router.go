package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "taskgate/internal/api/context"
	"taskgate/internal/api/handlers"
	"taskgate/internal/api/middleware"
	"taskgate/internal/engine/plans"
	"taskgate/internal/engine/ratelimit"
	"taskgate/internal/pkg/validator"
)

type Dependencies struct {
	AuthHandler         *handlers.AuthHandler
	OrgHandler          *handlers.OrgHandler
	MemberHandler       *handlers.MemberHandler
	APIKeyHandler       *handlers.APIKeyHandler
	AutomationHandler   *handlers.AutomationHandler
	TaskHandler         *handlers.TaskHandler
	NotificationHandler *handlers.NotificationHandler
	AnalyticsHandler    *handlers.AnalyticsHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      *handlers.MetricsHandler

	AuthMiddleware      *middleware.AuthMiddleware
	APIKeyMiddleware    *middleware.APIKeyMiddleware
	TenantMiddleware    *middleware.TenantMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	PlanMiddleware      *middleware.PlanMiddleware

	Usage    middleware.UsageRecorder
	Observer middleware.RequestObserver
}

type mw = func(http.HandlerFunc) http.HandlerFunc

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	// route registers handler behind the request observer so every response,
	// including gate rejections, is counted against the route template.
	route := func(method, path string, handler http.HandlerFunc, middlewares ...mw) {
		all := append([]mw{middleware.Observe(deps.Observer, path)}, middlewares...)
		router.Handle(method, path, chain(handler, all...))
	}

	limit := deps.RateLimitMiddleware
	gate := deps.PlanMiddleware

	// Authentication routes
	authLimit := limit.Limit(ratelimit.ClassAuth, middleware.ByIP)
	route(http.MethodPost, "/api/auth/signup", deps.AuthHandler.Signup, authLimit)
	route(http.MethodPost, "/api/auth/login", deps.AuthHandler.Login, authLimit)
	route(http.MethodPost, "/api/auth/refresh", deps.AuthHandler.Refresh, authLimit)

	// Session routes
	session := []mw{
		limit.Limit(ratelimit.ClassAPI, middleware.ByIP),
		deps.AuthMiddleware.Handle,
		deps.TenantMiddleware.Handle,
	}
	with := func(extra ...mw) []mw {
		return append(append([]mw{}, session...), extra...)
	}
	admin := middleware.RequireRole(validator.RoleAdmin, validator.RoleOwner)

	route(http.MethodGet, "/api/organizations/current", deps.OrgHandler.GetCurrent, with()...)
	route(http.MethodPatch, "/api/organizations/current/plan", deps.OrgHandler.UpdatePlan,
		with(middleware.RequireRole(validator.RoleOwner))...)
	route(http.MethodGet, "/api/organizations/current/usage", deps.OrgHandler.GetUsage, with()...)

	route(http.MethodGet, "/api/members", deps.MemberHandler.List, with()...)
	route(http.MethodPost, "/api/members", deps.MemberHandler.Add,
		with(admin, gate.Require(plans.AddUser))...)

	route(http.MethodGet, "/api/keys", deps.APIKeyHandler.List, with()...)
	route(http.MethodPost, "/api/keys", deps.APIKeyHandler.Create,
		with(gate.Require(plans.AccessAPI))...)
	route(http.MethodDelete, "/api/keys/:key_id", deps.APIKeyHandler.Revoke, with()...)
	route(http.MethodGet, "/api/keys/:key_id/usage", deps.APIKeyHandler.Usage, with()...)

	route(http.MethodGet, "/api/automations", deps.AutomationHandler.List, with()...)
	route(http.MethodPost, "/api/automations", deps.AutomationHandler.Create, with(admin)...)
	route(http.MethodPatch, "/api/automations/:automation_id", deps.AutomationHandler.Update, with(admin)...)
	route(http.MethodDelete, "/api/automations/:automation_id", deps.AutomationHandler.Delete, with(admin)...)
	route(http.MethodPost, "/api/automations/:automation_id/toggle", deps.AutomationHandler.Toggle, with(admin)...)

	route(http.MethodGet, "/api/tasks", deps.TaskHandler.List, with()...)
	route(http.MethodPost, "/api/tasks", deps.TaskHandler.Create, with(gate.Require(plans.AddTask))...)
	route(http.MethodGet, "/api/tasks/:task_id", deps.TaskHandler.Get, with()...)
	route(http.MethodPatch, "/api/tasks/:task_id", deps.TaskHandler.Update, with()...)
	route(http.MethodDelete, "/api/tasks/:task_id", deps.TaskHandler.Delete, with()...)
	route(http.MethodGet, "/api/tasks/:task_id/attachments", deps.TaskHandler.ListAttachments, with()...)
	route(http.MethodPost, "/api/tasks/:task_id/attachments", deps.TaskHandler.AddAttachment,
		with(gate.Require(plans.UploadFile))...)

	route(http.MethodGet, "/api/notifications", deps.NotificationHandler.List, with()...)
	route(http.MethodGet, "/api/analytics/overview", deps.AnalyticsHandler.GetOverview,
		with(gate.Require(plans.AccessAnalytics))...)

	// Public API. Usage is logged for every request that presents a valid
	// key, so the logger sits directly behind key validation.
	public := func(extra ...mw) []mw {
		return append([]mw{
			deps.APIKeyMiddleware.Handle,
			middleware.UsageLog(deps.Usage),
			limit.Limit(ratelimit.ClassPublicAPI, middleware.ByAPIKey),
			deps.TenantMiddleware.Handle,
			gate.Require(plans.AccessAPI),
		}, extra...)
	}

	route(http.MethodGet, "/api/v1/tasks", deps.TaskHandler.List, public()...)
	route(http.MethodPost, "/api/v1/tasks", deps.TaskHandler.Create, public(gate.Require(plans.AddTask))...)
	route(http.MethodGet, "/api/v1/tasks/:task_id", deps.TaskHandler.Get, public()...)
	route(http.MethodPatch, "/api/v1/tasks/:task_id", deps.TaskHandler.Update, public()...)
	route(http.MethodDelete, "/api/v1/tasks/:task_id", deps.TaskHandler.Delete, public()...)
	route(http.MethodGet, "/api/v1/usage", deps.OrgHandler.GetUsage, public()...)

	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

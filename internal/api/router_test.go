package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"taskgate/internal/api/handlers"
	"taskgate/internal/api/middleware"
	"taskgate/internal/engine/analytics"
	"taskgate/internal/engine/automations"
	"taskgate/internal/engine/jobs"
	"taskgate/internal/engine/keys"
	"taskgate/internal/engine/plans"
	"taskgate/internal/engine/ratelimit"
	"taskgate/internal/engine/tasks"
	"taskgate/internal/engine/usage"
	"taskgate/internal/platform/audit"
	"taskgate/internal/platform/auth"
	"taskgate/internal/platform/cache"
	"taskgate/internal/platform/config"
	"taskgate/internal/platform/database"
	"taskgate/internal/platform/repositories"
	"taskgate/internal/platform/telemetry"
)

type testServer struct {
	handler     http.Handler
	orgs        *repositories.OrganizationRepository
	orgCache    *cache.OrgCache
	keySvc      *keys.Service
	usageRepo   *repositories.APIKeyUsageRepository
	usageLogger *audit.Logger
	validator   *keys.Validator
	dispatcher  *automations.Dispatcher
}

type nopQueue struct{}

func (nopQueue) Enqueue(jobType string, payload map[string]string) (*jobs.Job, error) {
	return &jobs.Job{Type: jobType}, nil
}

func newTestServer(t *testing.T, publicLimit int) *testServer {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{URL: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	rlCfg := config.RateLimitConfig{
		Auth:      config.LimitClass{Limit: 100, Window: time.Minute},
		API:       config.LimitClass{Limit: 100, Window: time.Minute},
		PublicAPI: config.LimitClass{Limit: publicLimit, Window: time.Hour},
	}
	tracker := telemetry.NewTracker(prometheus.NewRegistry())
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), "rl:", tracker)

	orgRepo := repositories.NewOrganizationRepository(db)
	userRepo := repositories.NewUserRepository(db)
	keyRepo := repositories.NewAPIKeyRepository(db)
	usageRepo := repositories.NewAPIKeyUsageRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	taskRepo := tasks.NewRepository(db)
	ruleRepo := automations.NewRepository(db)

	tokenSvc := auth.NewTokenService(config.JWTConfig{Secret: "router-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	orgCache := cache.NewOrgCache(time.Minute, 100, orgRepo.GetByID)
	keySvc := keys.NewService(keyRepo, "tg_live", bcrypt.MinCost)
	validator := keys.NewValidator(keyRepo, keys.LookupScan)
	agg := usage.NewAggregator(db)
	usageLogger := audit.NewLogger(usageRepo)
	dispatcher := automations.NewDispatcher(automations.NewEngine(ruleRepo, taskRepo, notificationRepo, tracker), time.Second)

	deps := &Dependencies{
		AuthHandler:         handlers.NewAuthHandler(userRepo, orgRepo, tokenSvc, bcrypt.MinCost, false),
		OrgHandler:          handlers.NewOrgHandler(orgRepo, orgCache, agg, false),
		MemberHandler:       handlers.NewMemberHandler(userRepo, nopQueue{}, bcrypt.MinCost, false),
		APIKeyHandler:       handlers.NewAPIKeyHandler(keySvc, keyRepo, usageRepo, false),
		AutomationHandler:   handlers.NewAutomationHandler(automations.NewService(ruleRepo, userRepo), false),
		TaskHandler:         handlers.NewTaskHandler(tasks.NewService(taskRepo, userRepo, notificationRepo, dispatcher), repositories.NewAttachmentRepository(db), false),
		NotificationHandler: handlers.NewNotificationHandler(notificationRepo, false),
		AnalyticsHandler:    handlers.NewAnalyticsHandler(analytics.NewService(analytics.NewRepository(db)), false),
		HealthHandler:       handlers.NewHealthHandler(db, nil),
		MetricsHandler:      handlers.NewMetricsHandler(tracker),

		AuthMiddleware:      middleware.NewAuthMiddleware(tokenSvc),
		APIKeyMiddleware:    middleware.NewAPIKeyMiddleware(validator),
		TenantMiddleware:    middleware.NewTenantMiddleware(orgCache),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(limiter, ratelimit.ClassesFromConfig(rlCfg)),
		PlanMiddleware:      middleware.NewPlanMiddleware(plans.NewEnforcer(agg), tracker, false),

		Usage:    usageLogger,
		Observer: tracker,
	}

	ts := &testServer{
		handler:     NewRouter(deps),
		orgs:        orgRepo,
		orgCache:    orgCache,
		keySvc:      keySvc,
		usageRepo:   usageRepo,
		usageLogger: usageLogger,
		validator:   validator,
		dispatcher:  dispatcher,
	}
	t.Cleanup(func() {
		dispatcher.Wait()
		validator.Wait()
		usageLogger.Wait()
		db.Close()
	})
	return ts
}

func (s *testServer) do(method, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:4000"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

// signup creates an org through the public route and returns its bearer
// header and org id.
func (s *testServer) signup(t *testing.T, email string) (map[string]string, string) {
	t.Helper()
	rr := s.do("POST", "/api/auth/signup", handlers.SignupRequest{
		Email: email, Password: "password123", OrganizationName: "Org " + email,
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Signup failed: %d %s", rr.Code, rr.Body.String())
	}
	var session handlers.SessionResponse
	json.NewDecoder(rr.Body).Decode(&session)
	return map[string]string{"Authorization": "Bearer " + session.AccessToken}, session.User.OrganizationID
}

func (s *testServer) upgrade(t *testing.T, orgID, plan string) {
	t.Helper()
	if err := s.orgs.UpdatePlan(context.Background(), orgID, plan); err != nil {
		t.Fatalf("UpdatePlan failed: %v", err)
	}
	s.orgCache.Invalidate(orgID)
}

func errorMessage(rr *httptest.ResponseRecorder) string {
	var body map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&body)
	msg, _ := body["error"].(string)
	return msg
}

func TestRouter_SessionRoutes(t *testing.T) {
	s := newTestServer(t, 100)

	if rr := s.do("GET", "/api/organizations/current", nil, nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rr.Code)
	}

	bearer, _ := s.signup(t, "owner@acme.test")

	rr := s.do("GET", "/api/organizations/current", nil, bearer)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "100" {
		t.Errorf("Expected api class headers, got %q", rr.Header().Get("X-RateLimit-Limit"))
	}

	// Free plan: analytics is gated and key creation needs API access.
	rr = s.do("GET", "/api/analytics/overview", nil, bearer)
	if rr.Code != http.StatusForbidden || errorMessage(rr) != "Analytics requires the Professional plan" {
		t.Errorf("Expected analytics gate, got %d", rr.Code)
	}
	rr = s.do("POST", "/api/keys", map[string]string{"name": "ci"}, bearer)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 creating a key on free, got %d", rr.Code)
	}

	// Free plan allows three users; the owner is the first.
	for i, email := range []string{"a@acme.test", "b@acme.test"} {
		rr = s.do("POST", "/api/members", map[string]string{"email": email}, bearer)
		if rr.Code != http.StatusCreated {
			t.Fatalf("Member %d: expected 201, got %d: %s", i, rr.Code, rr.Body.String())
		}
	}
	rr = s.do("POST", "/api/members", map[string]string{"email": "c@acme.test"}, bearer)
	if rr.Code != http.StatusForbidden || errorMessage(rr) != "Free plan limited to 3 users" {
		t.Errorf("Expected user quota denial, got %d", rr.Code)
	}

	rr = s.do("PATCH", "/api/organizations/current/plan", map[string]string{"plan": plans.Professional}, bearer)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected plan change, got %d", rr.Code)
	}
	if rr = s.do("GET", "/api/analytics/overview", nil, bearer); rr.Code != http.StatusOK {
		t.Errorf("Expected analytics after upgrade, got %d", rr.Code)
	}
}

func TestRouter_PublicAPI(t *testing.T) {
	s := newTestServer(t, 2)
	bearer, orgID := s.signup(t, "owner@beta.test")

	if rr := s.do("GET", "/api/v1/tasks", nil, nil); errorMessage(rr) != "API key required. Provide it in the x-api-key header" {
		t.Errorf("Unexpected missing-key response")
	}
	if rr := s.do("GET", "/api/v1/tasks", nil, map[string]string{"x-api-key": "tg_live_unknown"}); rr.Code != http.StatusUnauthorized || errorMessage(rr) != "Invalid API key" {
		t.Errorf("Expected invalid key 401, got %d", rr.Code)
	}

	s.upgrade(t, orgID, plans.Professional)
	rr := s.do("POST", "/api/keys", map[string]string{"name": "ci"}, bearer)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected key creation, got %d: %s", rr.Code, rr.Body.String())
	}
	var created map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&created)
	keyHeader := map[string]string{"x-api-key": created["key"].(string)}
	keyID := created["id"].(string)

	rr = s.do("POST", "/api/v1/tasks", map[string]string{"title": "From the API"}, keyHeader)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Errorf("Expected 1 remaining, got %q", rr.Header().Get("X-RateLimit-Remaining"))
	}

	// Downgrade: the key still validates but the plan gate rejects it.
	s.upgrade(t, orgID, plans.Starter)
	rr = s.do("GET", "/api/v1/tasks", nil, keyHeader)
	if rr.Code != http.StatusForbidden || errorMessage(rr) != "API access requires the Professional plan" {
		t.Errorf("Expected plan gate 403, got %d", rr.Code)
	}

	rr = s.do("GET", "/api/v1/usage", nil, keyHeader)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 on third keyed request, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Missing rate limit headers on 429: %v", rr.Header())
	}

	s.usageLogger.Wait()
	entries, err := s.usageRepo.ListByKey(context.Background(), keyID, 100)
	if err != nil {
		t.Fatalf("ListByKey failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 logged requests, got %d", len(entries))
	}
	statuses := map[int]bool{}
	for _, e := range entries {
		statuses[e.StatusCode] = true
	}
	for _, want := range []int{http.StatusCreated, http.StatusForbidden, http.StatusTooManyRequests} {
		if !statuses[want] {
			t.Errorf("Expected a logged %d, got %v", want, statuses)
		}
	}
}

func TestRouter_RoleGate(t *testing.T) {
	s := newTestServer(t, 100)
	bearer, orgID := s.signup(t, "owner@gamma.test")
	s.upgrade(t, orgID, plans.Starter)

	rule := map[string]interface{}{
		"name":           "Escalate review",
		"trigger_type":   "status_changed",
		"trigger_config": map[string]string{"status": "review"},
		"action_type":    "change_priority",
		"action_config":  map[string]string{"priority": "urgent"},
	}
	rr := s.do("POST", "/api/automations", rule, bearer)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Owner should create automations, got %d: %s", rr.Code, rr.Body.String())
	}

	if rr = s.do("POST", "/api/members", map[string]string{"email": "m@gamma.test", "role": "member"}, bearer); rr.Code != http.StatusCreated {
		t.Fatalf("Expected member created, got %d", rr.Code)
	}
	memberTokens := auth.NewTokenService(config.JWTConfig{Secret: "router-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	token, _ := memberTokens.GenerateAccessToken("usr_member", orgID, "member", "m@gamma.test")
	member := map[string]string{"Authorization": "Bearer " + token}

	if rr = s.do("POST", "/api/automations", rule, member); rr.Code != http.StatusForbidden {
		t.Errorf("Member must not create automations, got %d", rr.Code)
	}
	if rr = s.do("PATCH", "/api/organizations/current/plan", map[string]string{"plan": "enterprise"}, member); rr.Code != http.StatusForbidden {
		t.Errorf("Member must not change plan, got %d", rr.Code)
	}
	if rr = s.do("GET", "/api/automations", nil, member); rr.Code != http.StatusOK {
		t.Errorf("Member should list automations, got %d", rr.Code)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 100)

	if rr := s.do("GET", "/health", nil, nil); rr.Code != http.StatusOK {
		t.Errorf("Expected healthy, got %d", rr.Code)
	}

	s.do("GET", "/api/organizations/current", nil, nil)

	rr := s.do("GET", "/metrics", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from metrics, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `taskgate_http_requests_total{method="GET",path="/api/organizations/current",status="401"} 1`) {
		t.Errorf("Expected request counter for the route template, got:\n%s", body)
	}
}

func TestRouter_AssigneeMustBelongToOrg(t *testing.T) {
	s := newTestServer(t, 100)
	bearerA, _ := s.signup(t, "owner@alpha.test")
	bearerB, _ := s.signup(t, "owner@bravo.test")

	rr := s.do("GET", "/api/members", nil, bearerB)
	var membersB []map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&membersB)
	if len(membersB) != 1 {
		t.Fatalf("Expected one member in org B, got %d", len(membersB))
	}
	outsider := membersB[0]["id"].(string)

	rr = s.do("POST", "/api/tasks", map[string]string{"title": "Private roadmap", "assignee_id": outsider}, bearerA)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 assigning another org's user, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = s.do("POST", "/api/tasks", map[string]string{"title": "Private roadmap"}, bearerA)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rr.Code)
	}
	var task map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&task)
	taskPath := "/api/tasks/" + task["id"].(string)

	if rr = s.do("PATCH", taskPath, map[string]string{"assignee_id": outsider}, bearerA); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 reassigning to another org's user, got %d", rr.Code)
	}

	s.dispatcher.Wait()
	rr = s.do("GET", "/api/notifications", nil, bearerB)
	var feed []map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&feed)
	if len(feed) != 0 {
		t.Errorf("Org B must see no notifications from org A, got %v", feed)
	}
}

func TestRouter_DeletingTaskReleasesStorage(t *testing.T) {
	s := newTestServer(t, 100)
	bearer, _ := s.signup(t, "owner@delta.test")

	rr := s.do("POST", "/api/tasks", map[string]string{"title": "Big upload"}, bearer)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rr.Code)
	}
	var task map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&task)
	taskPath := "/api/tasks/" + task["id"].(string)

	rr = s.do("POST", taskPath+"/attachments", map[string]interface{}{"file_name": "dump.tar", "size_bytes": 120 * 1024 * 1024}, bearer)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for first upload, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = s.do("POST", "/api/tasks", map[string]string{"title": "Notes"}, bearer)
	json.NewDecoder(rr.Body).Decode(&task)
	notesPath := "/api/tasks/" + task["id"].(string)

	rr = s.do("POST", notesPath+"/attachments", map[string]interface{}{"file_name": "a.txt", "size_bytes": 10}, bearer)
	if rr.Code != http.StatusForbidden || errorMessage(rr) != "Free plan limited to 100MB storage" {
		t.Fatalf("Expected storage quota denial, got %d", rr.Code)
	}

	if rr = s.do("DELETE", taskPath, nil, bearer); rr.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rr.Code)
	}

	rr = s.do("GET", "/api/organizations/current/usage", nil, bearer)
	var report struct {
		Usage struct {
			Tasks     int `json:"tasks"`
			StorageMB int `json:"storage_mb"`
		} `json:"usage"`
	}
	json.NewDecoder(rr.Body).Decode(&report)
	if report.Usage.Tasks != 1 || report.Usage.StorageMB != 0 {
		t.Errorf("Expected storage released after delete, got %+v", report.Usage)
	}

	if rr = s.do("POST", notesPath+"/attachments", map[string]interface{}{"file_name": "a.txt", "size_bytes": 10}, bearer); rr.Code != http.StatusCreated {
		t.Errorf("Expected upload after delete, got %d", rr.Code)
	}
}

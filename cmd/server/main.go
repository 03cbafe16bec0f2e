package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"taskgate/internal/api"
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
	"taskgate/internal/pkg/logger"
	"taskgate/internal/platform/audit"
	"taskgate/internal/platform/auth"
	"taskgate/internal/platform/cache"
	"taskgate/internal/platform/config"
	"taskgate/internal/platform/database"
	"taskgate/internal/platform/repositories"
	"taskgate/internal/platform/telemetry"
	"taskgate/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tracker := telemetry.NewTracker(registry)

	// Rate limit backend
	var (
		limitStore  ratelimit.Store
		redisHealth redis.UniversalClient
	)
	switch cfg.RateLimit.Backend {
	case "redis":
		client := database.NewRedisClient(cfg.Redis)
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := database.PingRedis(ctx, client); err != nil {
			// Requests fail open while redis is unreachable.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not reachable at startup")
		}
		cancel()

		limitStore = ratelimit.NewRedisStore(client)
		redisHealth = client
	default:
		limitStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.NewLimiter(limitStore, cfg.RateLimit.KeyPrefix, tracker)

	// Repositories
	orgRepo := repositories.NewOrganizationRepository(db)
	userRepo := repositories.NewUserRepository(db)
	keyRepo := repositories.NewAPIKeyRepository(db)
	usageRepo := repositories.NewAPIKeyUsageRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	attachmentRepo := repositories.NewAttachmentRepository(db)
	taskRepo := tasks.NewRepository(db)
	ruleRepo := automations.NewRepository(db)

	// Background jobs
	queue := jobs.NewQueue(cfg.Jobs, tracker)
	queue.Register(jobs.TypeSendInviteEmail, jobs.InviteEmail())
	queue.Register(jobs.TypePruneUsageLogs, jobs.PruneUsageLogs(usageRepo, cfg.Jobs.UsageRetention))
	queue.Register(jobs.TypeSweepRateLimits, jobs.SweepRateLimits(limiter))
	queue.Start()

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	orgCache := cache.NewOrgCache(cfg.Cache.OrgTTL, cfg.Cache.MaxEntries, orgRepo.GetByID)
	keySvc := keys.NewService(keyRepo, cfg.APIKeys.Prefix, cfg.APIKeys.BcryptCost)
	keyValidator := keys.NewValidator(keyRepo, keys.Lookup(cfg.APIKeys.Lookup))
	usageAgg := usage.NewAggregator(db)
	enforcer := plans.NewEnforcer(usageAgg)
	usageLogger := audit.NewLogger(usageRepo)

	engine := automations.NewEngine(ruleRepo, taskRepo, notificationRepo, tracker)
	dispatcher := automations.NewDispatcher(engine, 30*time.Second)
	taskSvc := tasks.NewService(taskRepo, userRepo, notificationRepo, dispatcher)
	ruleSvc := automations.NewService(ruleRepo, userRepo)
	analyticsSvc := analytics.NewService(analytics.NewRepository(db))

	debug := cfg.IsDevelopment()
	deps := &api.Dependencies{
		AuthHandler:         handlers.NewAuthHandler(userRepo, orgRepo, tokenSvc, cfg.APIKeys.BcryptCost, debug),
		OrgHandler:          handlers.NewOrgHandler(orgRepo, orgCache, usageAgg, debug),
		MemberHandler:       handlers.NewMemberHandler(userRepo, queue, cfg.APIKeys.BcryptCost, debug),
		APIKeyHandler:       handlers.NewAPIKeyHandler(keySvc, keyRepo, usageRepo, debug),
		AutomationHandler:   handlers.NewAutomationHandler(ruleSvc, debug),
		TaskHandler:         handlers.NewTaskHandler(taskSvc, attachmentRepo, debug),
		NotificationHandler: handlers.NewNotificationHandler(notificationRepo, debug),
		AnalyticsHandler:    handlers.NewAnalyticsHandler(analyticsSvc, debug),
		HealthHandler:       handlers.NewHealthHandler(db, redisHealth),
		MetricsHandler:      handlers.NewMetricsHandler(tracker),

		AuthMiddleware:      middleware.NewAuthMiddleware(tokenSvc),
		APIKeyMiddleware:    middleware.NewAPIKeyMiddleware(keyValidator),
		TenantMiddleware:    middleware.NewTenantMiddleware(orgCache),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(limiter, ratelimit.ClassesFromConfig(cfg.RateLimit)),
		PlanMiddleware:      middleware.NewPlanMiddleware(enforcer, tracker, debug),

		Usage:    usageLogger,
		Observer: tracker,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.NewMaintenance(queue, cfg.Jobs.SweepInterval).Run(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Str("rate_limit_backend", cfg.RateLimit.Backend).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	dispatcher.Wait()
	keyValidator.Wait()
	usageLogger.Wait()
	queue.Stop()
}

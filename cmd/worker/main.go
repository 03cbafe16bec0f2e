package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"taskgate/internal/engine/jobs"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/platform/config"
	"taskgate/internal/platform/database"
	"taskgate/internal/platform/repositories"
	"taskgate/internal/platform/telemetry"
	"taskgate/internal/workers"
)

// drainJob is queued behind a round so -once can wait for it to finish.
const drainJob = "drain"

// The worker runs database housekeeping out of process. Rate limit sweeps
// stay with the server because memory windows live there.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Run a single round and exit")
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

	tracker := telemetry.NewTracker(prometheus.NewRegistry())
	queue := jobs.NewQueue(cfg.Jobs, tracker)
	queue.Register(jobs.TypePruneUsageLogs, jobs.PruneUsageLogs(repositories.NewAPIKeyUsageRepository(db), cfg.Jobs.UsageRetention))
	queue.Start()

	maintenance := workers.NewMaintenance(queue, cfg.Jobs.SweepInterval, jobs.TypePruneUsageLogs)
	if *once {
		done := make(chan struct{})
		queue.Register(drainJob, jobs.HandlerFunc(func(ctx context.Context, job *jobs.Job) error {
			close(done)
			return nil
		}))
		maintenance.RunOnce()
		if _, err := queue.Enqueue(drainJob, nil); err == nil {
			<-done
		}
		queue.Stop()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Dur("interval", cfg.Jobs.SweepInterval).Msg("worker started")
	maintenance.Run(ctx)

	queue.Stop()
	log.Info().Msg("worker stopped")
}

package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"taskgate/internal/engine/jobs"
	"taskgate/internal/pkg/logger"
)

type Enqueuer interface {
	Enqueue(jobType string, payload map[string]string) (*jobs.Job, error)
}

// Maintenance periodically enqueues housekeeping jobs: pruning old API key
// usage rows and sweeping expired rate limit windows.
type Maintenance struct {
	queue    Enqueuer
	interval time.Duration
	jobTypes []string
	log      zerolog.Logger
}

// NewMaintenance schedules jobTypes, or both housekeeping jobs when none are
// given.
func NewMaintenance(queue Enqueuer, interval time.Duration, jobTypes ...string) *Maintenance {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if len(jobTypes) == 0 {
		jobTypes = []string{jobs.TypePruneUsageLogs, jobs.TypeSweepRateLimits}
	}
	return &Maintenance{queue: queue, interval: interval, jobTypes: jobTypes, log: logger.Component("workers")}
}

// RunOnce enqueues one round of housekeeping.
func (m *Maintenance) RunOnce() {
	for _, jobType := range m.jobTypes {
		if _, err := m.queue.Enqueue(jobType, nil); err != nil {
			m.log.Warn().Err(err).Str("type", jobType).Msg("failed to enqueue maintenance job")
		}
	}
}

// Run enqueues a round immediately and then on every tick until ctx ends.
func (m *Maintenance) Run(ctx context.Context) {
	m.RunOnce()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce()
		}
	}
}

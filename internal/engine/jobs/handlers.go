package jobs

import (
	"context"
	"errors"
	"time"

	"taskgate/internal/pkg/logger"
)

const (
	TypeSendInviteEmail = "send_invite_email"
	TypePruneUsageLogs  = "prune_usage_logs"
	TypeSweepRateLimits = "sweep_rate_limits"
)

// InviteEmail stands in for a mail provider. It only logs the message.
func InviteEmail() Handler {
	log := logger.Component("jobs")
	return HandlerFunc(func(ctx context.Context, job *Job) error {
		email := job.Payload["email"]
		if email == "" {
			return errors.New("send_invite_email: email is required")
		}
		log.Info().
			Str("email", email).
			Str("org_id", job.Payload["org_id"]).
			Str("invited_by", job.Payload["invited_by"]).
			Msg("invite email sent (simulated)")
		return nil
	})
}

type UsagePruner interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// PruneUsageLogs deletes api_key_usage rows older than retention.
func PruneUsageLogs(repo UsagePruner, retention time.Duration) Handler {
	log := logger.Component("jobs")
	return HandlerFunc(func(ctx context.Context, job *Job) error {
		cutoff := time.Now().Add(-retention).Unix()
		n, err := repo.DeleteBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		log.Info().Int64("deleted", n).Int64("cutoff", cutoff).Msg("pruned api key usage logs")
		return nil
	})
}

type Sweeper interface {
	Sweep() int
}

// SweepRateLimits drops expired in-memory rate limit windows.
func SweepRateLimits(s Sweeper) Handler {
	log := logger.Component("jobs")
	return HandlerFunc(func(ctx context.Context, job *Job) error {
		removed := s.Sweep()
		log.Debug().Int("removed", removed).Msg("swept rate limit windows")
		return nil
	})
}

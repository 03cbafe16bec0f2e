// Package usage computes an organization's live resource consumption.
package usage

import (
	"context"
	"fmt"
	"math"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"taskgate/internal/engine/plans"
)

const bytesPerMB = 1024 * 1024

type Snapshot struct {
	OrgID     string `json:"org_id"`
	Users     int    `json:"users"`
	Tasks     int    `json:"tasks"`
	StorageMB int    `json:"storage_mb"`
}

// Aggregator counts rows on every call. Results are never cached because a
// stale count would let quota checks admit one resource too many.
type Aggregator struct {
	db *sqlx.DB
}

func NewAggregator(db *sqlx.DB) *Aggregator {
	return &Aggregator{db: db}
}

func (a *Aggregator) count(ctx context.Context, table, orgColumn, orgID string) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From(table).Where(sb.Equal(orgColumn, orgID))

	query, args := sb.Build()
	var n int
	if err := a.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (a *Aggregator) storageBytes(ctx context.Context, orgID string) (int64, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COALESCE(SUM(size_bytes), 0)").From("attachments").Where(sb.Equal("org_id", orgID))

	query, args := sb.Build()
	var total int64
	if err := a.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("sum attachments: %w", err)
	}
	return total, nil
}

func BytesToMB(b int64) int {
	return int(math.Round(float64(b) / bytesPerMB))
}

func (a *Aggregator) GetUsage(ctx context.Context, orgID string) (Snapshot, error) {
	users, err := a.count(ctx, "users", "organization_id", orgID)
	if err != nil {
		return Snapshot{}, err
	}

	tasks, err := a.count(ctx, "tasks", "org_id", orgID)
	if err != nil {
		return Snapshot{}, err
	}

	storage, err := a.storageBytes(ctx, orgID)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		OrgID:     orgID,
		Users:     users,
		Tasks:     tasks,
		StorageMB: BytesToMB(storage),
	}, nil
}

// CurrentUsage adapts GetUsage for the plan enforcer.
func (a *Aggregator) CurrentUsage(ctx context.Context, orgID string) (plans.Usage, error) {
	s, err := a.GetUsage(ctx, orgID)
	if err != nil {
		return plans.Usage{}, err
	}
	return plans.Usage{Users: s.Users, Tasks: s.Tasks, StorageMB: s.StorageMB}, nil
}

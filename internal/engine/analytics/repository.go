package analytics

import (
	"context"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type bucket struct {
	Key   string `db:"bucket"`
	Count int    `db:"n"`
}

// CountTasksBy groups an org's tasks by a single column.
func (r *Repository) CountTasksBy(ctx context.Context, orgID, column string) (map[string]int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(sb.As(column, "bucket"), sb.As("COUNT(*)", "n")).
		From("tasks").
		Where(sb.Equal("org_id", orgID)).
		GroupBy(column)

	query, args := sb.Build()
	var rows []bucket
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make(map[string]int, len(rows))
	for _, b := range rows {
		out[b.Key] = b.Count
	}
	return out, nil
}

func (r *Repository) CountOverdue(ctx context.Context, orgID string, now int64) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("tasks").Where(
		sb.Equal("org_id", orgID),
		sb.IsNotNull("due_at"),
		sb.LessThan("due_at", now),
		sb.NotEqual("status", "done"),
	)
	return r.count(ctx, sb)
}

func (r *Repository) CountActiveAutomations(ctx context.Context, orgID string) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("automations").Where(sb.Equal("org_id", orgID), sb.Equal("is_active", true))
	return r.count(ctx, sb)
}

func (r *Repository) CountActiveKeys(ctx context.Context, orgID string) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("api_keys").Where(sb.Equal("org_id", orgID), sb.Equal("revoked", false))
	return r.count(ctx, sb)
}

// CountAPIRequestsSince counts usage rows for the org's keys at or after since.
func (r *Repository) CountAPIRequestsSince(ctx context.Context, orgID string, since int64) (int, error) {
	keys := sqlbuilder.SQLite.NewSelectBuilder()
	keys.Select("id").From("api_keys").Where(keys.Equal("org_id", orgID))

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("api_key_usage").Where(
		sb.In("api_key_id", keys),
		sb.GreaterEqualThan("created_at", since),
	)
	return r.count(ctx, sb)
}

func (r *Repository) count(ctx context.Context, sb *sqlbuilder.SelectBuilder) (int, error) {
	query, args := sb.Build()
	var n int
	err := r.db.GetContext(ctx, &n, query, args...)
	return n, err
}

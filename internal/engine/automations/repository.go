package automations

import (
	"context"
	"database/sql"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
)

var columns = []string{"id", "org_id", "name", "trigger_type", "trigger_config", "action_type", "action_config", "is_active", "created_by", "created_at"}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rule *Rule) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("automations").Cols(columns...).Values(
		rule.ID, rule.OrgID, rule.Name, rule.TriggerType, rule.TriggerConfig,
		rule.ActionType, rule.ActionConfig, rule.IsActive, rule.CreatedBy, rule.CreatedAt,
	)

	query, args := ib.Build()
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetByID(ctx context.Context, orgID, id string) (*Rule, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...).From("automations").Where(sb.Equal("id", id), sb.Equal("org_id", orgID))

	query, args := sb.Build()
	var rule Rule
	if err := r.db.GetContext(ctx, &rule, query, args...); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID string) ([]*Rule, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...).From("automations").Where(sb.Equal("org_id", orgID)).OrderBy("created_at").Desc()

	query, args := sb.Build()
	rules := []*Rule{}
	err := r.db.SelectContext(ctx, &rules, query, args...)
	return rules, err
}

// ListActive returns the org's enabled rules for one trigger in creation
// order, which is the order the engine runs them in.
func (r *Repository) ListActive(ctx context.Context, orgID, triggerType string) ([]*Rule, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...).From("automations").Where(
		sb.Equal("org_id", orgID),
		sb.Equal("trigger_type", triggerType),
		sb.Equal("is_active", true),
	).OrderBy("created_at", "id").Asc()

	query, args := sb.Build()
	rules := []*Rule{}
	err := r.db.SelectContext(ctx, &rules, query, args...)
	return rules, err
}

func (r *Repository) Update(ctx context.Context, rule *Rule) error {
	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("automations").Set(
		ub.Assign("name", rule.Name),
		ub.Assign("trigger_type", rule.TriggerType),
		ub.Assign("trigger_config", rule.TriggerConfig),
		ub.Assign("action_type", rule.ActionType),
		ub.Assign("action_config", rule.ActionConfig),
		ub.Assign("is_active", rule.IsActive),
	).Where(ub.Equal("id", rule.ID), ub.Equal("org_id", rule.OrgID))

	query, args := ub.Build()
	return r.exec(ctx, query, args)
}

func (r *Repository) SetActive(ctx context.Context, orgID, id string, active bool) error {
	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("automations").Set(ub.Assign("is_active", active)).Where(ub.Equal("id", id), ub.Equal("org_id", orgID))

	query, args := ub.Build()
	return r.exec(ctx, query, args)
}

func (r *Repository) Delete(ctx context.Context, orgID, id string) error {
	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom("automations").Where(del.Equal("id", id), del.Equal("org_id", orgID))

	query, args := del.Build()
	return r.exec(ctx, query, args)
}

func (r *Repository) exec(ctx context.Context, query string, args []interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

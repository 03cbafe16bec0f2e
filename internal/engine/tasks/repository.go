package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
)

var columns = []string{"id", "org_id", "title", "description", "status", "priority", "assignee_id", "created_by", "due_at", "created_at", "updated_at"}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, task *Task) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("tasks").Cols(columns...).Values(
		task.ID, task.OrgID, task.Title, task.Description, task.Status, task.Priority,
		task.AssigneeID, task.CreatedBy, task.DueAt, task.CreatedAt, task.UpdatedAt,
	)

	query, args := ib.Build()
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns sql.ErrNoRows when the task is missing from the org.
func (r *Repository) GetByID(ctx context.Context, orgID, id string) (*Task, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...).From("tasks").Where(sb.Equal("id", id), sb.Equal("org_id", orgID))

	query, args := sb.Build()
	var task Task
	if err := r.db.GetContext(ctx, &task, query, args...); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *Repository) List(ctx context.Context, orgID string, f Filter) ([]*Task, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...).From("tasks").Where(sb.Equal("org_id", orgID))

	if f.Status != "" {
		sb.Where(sb.Equal("status", f.Status))
	}
	if f.Priority != "" {
		sb.Where(sb.Equal("priority", f.Priority))
	}
	if f.AssigneeID != "" {
		sb.Where(sb.Equal("assignee_id", f.AssigneeID))
	}

	limit := f.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}
	sb.OrderBy("created_at").Desc().Limit(limit).Offset(f.Offset)

	query, args := sb.Build()
	items := []*Task{}
	err := r.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

func (r *Repository) Update(ctx context.Context, task *Task) error {
	task.UpdatedAt = time.Now().Unix()

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("tasks").Set(
		ub.Assign("title", task.Title),
		ub.Assign("description", task.Description),
		ub.Assign("status", task.Status),
		ub.Assign("priority", task.Priority),
		ub.Assign("assignee_id", task.AssigneeID),
		ub.Assign("due_at", task.DueAt),
		ub.Assign("updated_at", task.UpdatedAt),
	).Where(ub.Equal("id", task.ID), ub.Equal("org_id", task.OrgID))

	query, args := ub.Build()
	return execOne(ctx, r.db, query, args)
}

// Delete removes the task and its attachment rows in one transaction so the
// org's storage usage drops with it.
func (r *Repository) Delete(ctx context.Context, orgID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom("tasks").Where(del.Equal("id", id), del.Equal("org_id", orgID))
	query, args := del.Build()
	if err := execOne(ctx, tx, query, args); err != nil {
		return err
	}

	att := sqlbuilder.SQLite.NewDeleteBuilder()
	att.DeleteFrom("attachments").Where(att.Equal("task_id", id), att.Equal("org_id", orgID))
	query, args = att.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return tx.Commit()
}

// setColumn is a single-column write keyed by task id. Automation actions
// use it so they do not re-enter the trigger path.
func (r *Repository) setColumn(ctx context.Context, id, column string, value interface{}) error {
	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("tasks").Set(
		ub.Assign(column, value),
		ub.Assign("updated_at", time.Now().Unix()),
	).Where(ub.Equal("id", id))

	query, args := ub.Build()
	return execOne(ctx, r.db, query, args)
}

func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	return r.setColumn(ctx, id, "status", status)
}

func (r *Repository) SetPriority(ctx context.Context, id, priority string) error {
	return r.setColumn(ctx, id, "priority", priority)
}

func (r *Repository) SetAssignee(ctx context.Context, id, userID string) error {
	return r.setColumn(ctx, id, "assignee_id", userID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func execOne(ctx context.Context, db execer, query string, args []interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
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

package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"taskgate/internal/platform/models"
)

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new row on every call; duplicates are not collapsed.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = "ntf_" + uuid.New().String()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, org_id, user_id, type, title, message, task_id, read, created_at)
		VALUES (:id, :org_id, :user_id, :type, :title, :message, :task_id, :read, :created_at)
	`, n)
	return err
}

func (r *NotificationRepository) ListByUser(ctx context.Context, orgID, userID string, unreadOnly bool) ([]*models.Notification, error) {
	query := `SELECT id, org_id, user_id, type, title, message, task_id, read, created_at FROM notifications WHERE org_id = ? AND user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC`

	items := []*models.Notification{}
	err := r.db.SelectContext(ctx, &items, query, orgID, userID)
	return items, err
}

func (r *NotificationRepository) CountByTask(ctx context.Context, taskID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE task_id = ?`, taskID)
	return n, err
}

type AttachmentRepository struct {
	db *sqlx.DB
}

func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	if a.ID == "" {
		a.ID = "att_" + uuid.New().String()
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO attachments (id, org_id, task_id, file_name, size_bytes, uploaded_by, created_at)
		VALUES (:id, :org_id, :task_id, :file_name, :size_bytes, :uploaded_by, :created_at)
	`, a)
	return err
}

func (r *AttachmentRepository) ListByTask(ctx context.Context, orgID, taskID string) ([]*models.Attachment, error) {
	items := []*models.Attachment{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, org_id, task_id, file_name, size_bytes, uploaded_by, created_at
		FROM attachments WHERE org_id = ? AND task_id = ? ORDER BY created_at
	`, orgID, taskID)
	return items, err
}

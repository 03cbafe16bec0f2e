package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"taskgate/internal/platform/models"
)

type OrganizationRepository struct {
	db *sqlx.DB
}

func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

func (r *OrganizationRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, org *models.Organization) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO organizations (id, slug, name, plan, created_at, updated_at)
		VALUES (:id, :slug, :name, :plan, :created_at, :updated_at)
	`, org)
	return err
}

// GetByID returns nil, nil when the organization does not exist.
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	org := &models.Organization{}
	err := r.db.GetContext(ctx, org, `
		SELECT id, slug, name, plan, created_at, updated_at
		FROM organizations WHERE id = ?
	`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	org := &models.Organization{}
	err := r.db.GetContext(ctx, org, `
		SELECT id, slug, name, plan, created_at, updated_at
		FROM organizations WHERE slug = ?
	`, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

func (r *OrganizationRepository) UpdatePlan(ctx context.Context, id, plan string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE organizations SET plan = ?, updated_at = ? WHERE id = ?`, plan, time.Now().Unix(), id)
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

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, organization_id, email, password_hash, full_name, role, last_login_at, created_at, updated_at`

func (r *UserRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO users (id, organization_id, email, password_hash, full_name, role, created_at, updated_at)
		VALUES (:id, :organization_id, :email, :password_hash, :full_name, :role, :created_at, :updated_at)
	`, user)
	return err
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, organization_id, email, password_hash, full_name, role, created_at, updated_at)
		VALUES (:id, :organization_id, :email, :password_hash, :full_name, :role, :created_at, :updated_at)
	`, user)
	return err
}

// GetByID returns nil, nil when the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetByIDInOrg returns nil, nil when the user does not exist or belongs to
// another organization.
func (r *UserRepository) GetByIDInOrg(ctx context.Context, orgID, id string) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = ? AND organization_id = ?`, id, orgID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) ListByOrg(ctx context.Context, orgID string) ([]*models.User, error) {
	users := []*models.User{}
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE organization_id = ? ORDER BY created_at`, orgID)
	return users, err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, timestamp, userID)
	return err
}

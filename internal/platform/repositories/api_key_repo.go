package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"taskgate/internal/platform/models"
)

var apiKeyColumns = []string{"id", "user_id", "org_id", "key_hash", "key_prefix", "name", "last_used_at", "revoked", "created_at"}

type APIKeyRepository struct {
	db *sqlx.DB
}

func NewAPIKeyRepository(db *sqlx.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	if key.ID == "" {
		key.ID = "key_" + uuid.New().String()
	}
	key.CreatedAt = time.Now().Unix()

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("api_keys").
		Cols("id", "user_id", "org_id", "key_hash", "key_prefix", "name", "revoked", "created_at").
		Values(key.ID, key.UserID, key.OrgID, key.KeyHash, key.KeyPrefix, key.Name, false, key.CreatedAt)

	query, args := ib.Build()
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByID scopes the lookup to an organization and returns sql.ErrNoRows
// when the key is missing or belongs to another org.
func (r *APIKeyRepository) GetByID(ctx context.Context, orgID, id string) (*models.APIKey, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(apiKeyColumns...).From("api_keys").Where(sb.Equal("id", id), sb.Equal("org_id", orgID))

	query, args := sb.Build()
	var key models.APIKey
	if err := r.db.GetContext(ctx, &key, query, args...); err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) ListByOrg(ctx context.Context, orgID string) ([]*models.APIKey, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(apiKeyColumns...).From("api_keys").Where(sb.Equal("org_id", orgID)).OrderBy("created_at").Desc()

	query, args := sb.Build()
	keys := []*models.APIKey{}
	err := r.db.SelectContext(ctx, &keys, query, args...)
	return keys, err
}

// ListActive returns every non-revoked key across all organizations.
func (r *APIKeyRepository) ListActive(ctx context.Context) ([]*models.APIKey, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(apiKeyColumns...).From("api_keys").Where(sb.Equal("revoked", false))

	query, args := sb.Build()
	keys := []*models.APIKey{}
	err := r.db.SelectContext(ctx, &keys, query, args...)
	return keys, err
}

// ListActiveByPrefix narrows candidates through the indexed key_prefix column.
func (r *APIKeyRepository) ListActiveByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(apiKeyColumns...).From("api_keys").Where(sb.Equal("key_prefix", prefix), sb.Equal("revoked", false))

	query, args := sb.Build()
	keys := []*models.APIKey{}
	err := r.db.SelectContext(ctx, &keys, query, args...)
	return keys, err
}

// Revoke is a soft delete. Revoking an already revoked key is a no-op; an
// unknown key yields sql.ErrNoRows.
func (r *APIKeyRepository) Revoke(ctx context.Context, orgID, id string) error {
	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("api_keys").Set(ub.Assign("revoked", true)).Where(ub.Equal("id", id), ub.Equal("org_id", orgID))

	query, args := ub.Build()
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

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id string, at int64) error {
	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("api_keys").Set(ub.Assign("last_used_at", at)).Where(ub.Equal("id", id))

	query, args := ub.Build()
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

type APIKeyUsageRepository struct {
	db *sqlx.DB
}

func NewAPIKeyUsageRepository(db *sqlx.DB) *APIKeyUsageRepository {
	return &APIKeyUsageRepository{db: db}
}

func (r *APIKeyUsageRepository) Insert(ctx context.Context, u *models.APIKeyUsage) error {
	if u.ID == "" {
		u.ID = "use_" + uuid.New().String()
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("api_key_usage").
		Cols("id", "api_key_id", "endpoint", "method", "status_code", "ip_address", "user_agent", "response_time_ms", "created_at").
		Values(u.ID, u.APIKeyID, u.Endpoint, u.Method, u.StatusCode, u.IPAddress, u.UserAgent, u.ResponseTimeMs, u.CreatedAt)

	query, args := ib.Build()
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *APIKeyUsageRepository) ListByKey(ctx context.Context, keyID string, limit int) ([]*models.APIKeyUsage, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "api_key_id", "endpoint", "method", "status_code", "ip_address", "user_agent", "response_time_ms", "created_at").
		From("api_key_usage").
		Where(sb.Equal("api_key_id", keyID)).
		OrderBy("created_at").Desc().
		Limit(limit)

	query, args := sb.Build()
	rows := []*models.APIKeyUsage{}
	err := r.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

// DeleteBefore prunes usage rows older than the cutoff and reports how many
// were removed.
func (r *APIKeyUsageRepository) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom("api_key_usage").Where(del.LessThan("created_at", cutoff))

	query, args := del.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package models

// APIKey never stores the plaintext secret. KeyPrefix is the first 12
// characters of the secret and is safe to display and index.
type APIKey struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	OrgID      string `json:"org_id" db:"org_id"`
	KeyHash    string `json:"-" db:"key_hash"`
	KeyPrefix  string `json:"key_prefix" db:"key_prefix"`
	Name       string `json:"name" db:"name"`
	LastUsedAt *int64 `json:"last_used_at,omitempty" db:"last_used_at"`
	Revoked    bool   `json:"revoked" db:"revoked"`
	CreatedAt  int64  `json:"created_at" db:"created_at"`
}

type APIKeyUsage struct {
	ID             string `json:"id" db:"id"`
	APIKeyID       string `json:"api_key_id" db:"api_key_id"`
	Endpoint       string `json:"endpoint" db:"endpoint"`
	Method         string `json:"method" db:"method"`
	StatusCode     int    `json:"status_code" db:"status_code"`
	IPAddress      string `json:"ip_address" db:"ip_address"`
	UserAgent      string `json:"user_agent" db:"user_agent"`
	ResponseTimeMs int64  `json:"response_time_ms" db:"response_time_ms"`
	CreatedAt      int64  `json:"created_at" db:"created_at"`
}

package models

type Organization struct {
	ID        string `json:"id" db:"id"`
	Slug      string `json:"slug" db:"slug"`
	Name      string `json:"name" db:"name"`
	Plan      string `json:"plan" db:"plan"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

type User struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	Email          string `json:"email" db:"email"`
	PasswordHash   string `json:"-" db:"password_hash"`
	FullName       string `json:"full_name" db:"full_name"`
	Role           string `json:"role" db:"role"`
	LastLoginAt    *int64 `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt      int64  `json:"created_at" db:"created_at"`
	UpdatedAt      int64  `json:"updated_at" db:"updated_at"`

	Organization *Organization `json:"organization,omitempty" db:"-"`
}

// Attachment only records metadata; file bytes live in external storage.
type Attachment struct {
	ID         string `json:"id" db:"id"`
	OrgID      string `json:"org_id" db:"org_id"`
	TaskID     string `json:"task_id" db:"task_id"`
	FileName   string `json:"file_name" db:"file_name"`
	SizeBytes  int64  `json:"size_bytes" db:"size_bytes"`
	UploadedBy string `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt  int64  `json:"created_at" db:"created_at"`
}

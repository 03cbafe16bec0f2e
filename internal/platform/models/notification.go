package models

const (
	NotificationTaskAssigned = "task_assigned"
	NotificationAutomation   = "automation"
)

type Notification struct {
	ID        string  `json:"id" db:"id"`
	OrgID     string  `json:"org_id" db:"org_id"`
	UserID    string  `json:"user_id" db:"user_id"`
	Type      string  `json:"type" db:"type"`
	Title     string  `json:"title" db:"title"`
	Message   string  `json:"message" db:"message"`
	TaskID    *string `json:"task_id,omitempty" db:"task_id"`
	Read      bool    `json:"read" db:"read"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

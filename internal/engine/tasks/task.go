package tasks

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var statuses = map[string]bool{StatusTodo: true, StatusInProgress: true, StatusReview: true, StatusDone: true}

var priorities = map[string]bool{PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityUrgent: true}

func ValidStatus(s string) bool   { return statuses[s] }
func ValidPriority(p string) bool { return priorities[p] }

// Event names a task mutation that automation rules can react to.
type Event string

const (
	EventCreated         Event = "task_created"
	EventUpdated         Event = "task_updated"
	EventStatusChanged   Event = "status_changed"
	EventPriorityChanged Event = "priority_changed"
	EventAssigned        Event = "task_assigned"
)

var events = map[Event]bool{EventCreated: true, EventUpdated: true, EventStatusChanged: true, EventPriorityChanged: true, EventAssigned: true}

func ValidEvent(e string) bool { return events[Event(e)] }

type Task struct {
	ID          string  `json:"id" db:"id"`
	OrgID       string  `json:"org_id" db:"org_id"`
	Title       string  `json:"title" db:"title"`
	Description string  `json:"description" db:"description"`
	Status      string  `json:"status" db:"status"`
	Priority    string  `json:"priority" db:"priority"`
	AssigneeID  *string `json:"assignee_id,omitempty" db:"assignee_id"`
	CreatedBy   string  `json:"created_by" db:"created_by"`
	DueAt       *int64  `json:"due_at,omitempty" db:"due_at"`
	CreatedAt   int64   `json:"created_at" db:"created_at"`
	UpdatedAt   int64   `json:"updated_at" db:"updated_at"`
}

// Clone returns a copy that shares no pointers with t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.AssigneeID != nil {
		a := *t.AssigneeID
		c.AssigneeID = &a
	}
	if t.DueAt != nil {
		d := *t.DueAt
		c.DueAt = &d
	}
	return &c
}

func (t *Task) Assignee() string {
	if t == nil || t.AssigneeID == nil {
		return ""
	}
	return *t.AssigneeID
}

// Patch is a partial update; nil fields are left untouched. An empty
// AssigneeID clears the assignee.
type Patch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	AssigneeID  *string `json:"assignee_id"`
	DueAt       *int64  `json:"due_at"`
}

type Filter struct {
	Status     string
	Priority   string
	AssigneeID string
	Limit      int
	Offset     int
}

// Package plans maps subscription tiers to numeric limits and feature flags
// and decides whether an organization may perform a gated action.
package plans

import (
	"fmt"
	"strings"
)

// Unlimited marks a numeric limit with no ceiling.
const Unlimited = -1

const (
	Free         = "free"
	Starter      = "starter"
	Professional = "professional"
	Enterprise   = "enterprise"
)

type Action string

const (
	AddUser         Action = "add_user"
	AddTask         Action = "add_task"
	UploadFile      Action = "upload_file"
	AccessAnalytics Action = "access_analytics"
	AccessAPI       Action = "access_api"
)

// Numeric reports whether the action is checked against current usage.
func (a Action) Numeric() bool {
	return a == AddUser || a == AddTask || a == UploadFile
}

type Features struct {
	Realtime     bool `json:"realtime"`
	Comments     bool `json:"comments"`
	Attachments  bool `json:"attachments"`
	Analytics    bool `json:"analytics"`
	API          bool `json:"api"`
	Integrations bool `json:"integrations"`
}

type Limits struct {
	MaxUsers     int      `json:"max_users"`
	MaxTasks     int      `json:"max_tasks"`
	MaxStorageMB int      `json:"max_storage_mb"`
	Features     Features `json:"features"`
}

// order is cheapest first; RequiredPlan walks it to find an upgrade target.
var order = []string{Free, Starter, Professional, Enterprise}

var table = map[string]Limits{
	Free: {
		MaxUsers:     3,
		MaxTasks:     50,
		MaxStorageMB: 100,
		Features:     Features{Comments: true, Attachments: true},
	},
	Starter: {
		MaxUsers:     10,
		MaxTasks:     500,
		MaxStorageMB: 1024,
		Features:     Features{Realtime: true, Comments: true, Attachments: true},
	},
	Professional: {
		MaxUsers:     50,
		MaxTasks:     Unlimited,
		MaxStorageMB: 10240,
		Features:     Features{Realtime: true, Comments: true, Attachments: true, Analytics: true, API: true, Integrations: true},
	},
	Enterprise: {
		MaxUsers:     Unlimited,
		MaxTasks:     Unlimited,
		MaxStorageMB: Unlimited,
		Features:     Features{Realtime: true, Comments: true, Attachments: true, Analytics: true, API: true, Integrations: true},
	},
}

// Normalize maps unknown or empty plan names to the free tier.
func Normalize(plan string) string {
	plan = strings.ToLower(strings.TrimSpace(plan))
	if _, ok := table[plan]; ok {
		return plan
	}
	return Free
}

func Valid(plan string) bool {
	_, ok := table[plan]
	return ok
}

func Names() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

func Get(plan string) Limits {
	return table[Normalize(plan)]
}

// Usage is the slice of an org's consumption the resolver needs.
type Usage struct {
	Users     int `json:"users"`
	Tasks     int `json:"tasks"`
	StorageMB int `json:"storage_mb"`
}

type Decision struct {
	Allowed      bool   `json:"allowed"`
	Limit        *int   `json:"limit,omitempty"`
	Current      *int   `json:"current,omitempty"`
	Message      string `json:"message,omitempty"`
	RequiredPlan string `json:"required_plan,omitempty"`
}

func title(plan string) string {
	if plan == "" {
		return plan
	}
	return strings.ToUpper(plan[:1]) + plan[1:]
}

func limitFor(l Limits, action Action) int {
	switch action {
	case AddUser:
		return l.MaxUsers
	case AddTask:
		return l.MaxTasks
	case UploadFile:
		return l.MaxStorageMB
	}
	return 0
}

func currentFor(u Usage, action Action) int {
	switch action {
	case AddUser:
		return u.Users
	case AddTask:
		return u.Tasks
	case UploadFile:
		return u.StorageMB
	}
	return 0
}

func featureFor(l Limits, action Action) (bool, bool) {
	switch action {
	case AccessAnalytics:
		return l.Features.Analytics, true
	case AccessAPI:
		return l.Features.API, true
	}
	return false, false
}

// RequiredPlan returns the cheapest tier at or above plan that would allow
// the action for the given usage, or "" when none would.
func RequiredPlan(plan string, action Action, usage Usage) string {
	plan = Normalize(plan)
	started := false
	for _, name := range order {
		if name == plan {
			started = true
			continue
		}
		if !started {
			continue
		}
		if check(name, action, usage).Allowed {
			return name
		}
	}
	return ""
}

func check(plan string, action Action, usage Usage) Decision {
	l := table[plan]

	if action.Numeric() {
		limit := limitFor(l, action)
		current := currentFor(usage, action)
		if limit == Unlimited || current < limit {
			return Decision{Allowed: true, Limit: &limit, Current: &current}
		}
		return Decision{Allowed: false, Limit: &limit, Current: &current}
	}

	if enabled, known := featureFor(l, action); known {
		return Decision{Allowed: enabled}
	}

	return Decision{Allowed: false}
}

// CanPerform is pure: it only consults the static plan table.
func CanPerform(plan string, action Action, usage Usage) Decision {
	plan = Normalize(plan)
	d := check(plan, action, usage)
	if d.Allowed {
		return d
	}

	if !action.Numeric() {
		if _, known := featureFor(table[plan], action); !known {
			d.Message = fmt.Sprintf("Unknown action %q", string(action))
			return d
		}
	}

	d.RequiredPlan = RequiredPlan(plan, action, usage)
	limit := 0
	if d.Limit != nil {
		limit = *d.Limit
	}
	d.Message = denialMessage(plan, action, limit)
	return d
}

func denialMessage(plan string, action Action, limit int) string {
	switch action {
	case AddUser:
		return fmt.Sprintf("%s plan limited to %d users", title(plan), limit)
	case AddTask:
		return fmt.Sprintf("%s plan limited to %d tasks", title(plan), limit)
	case UploadFile:
		return fmt.Sprintf("%s plan limited to %dMB storage", title(plan), limit)
	case AccessAnalytics:
		return "Analytics requires the Professional plan"
	case AccessAPI:
		return "API access requires the Professional plan"
	}
	return "Action not permitted on this plan"
}

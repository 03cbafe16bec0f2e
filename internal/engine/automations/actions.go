package automations

import (
	"errors"
	"fmt"

	"taskgate/internal/engine/tasks"
)

const (
	ActionChangeStatus     = "change_status"
	ActionChangePriority   = "change_priority"
	ActionAssignUser       = "assign_user"
	ActionSendNotification = "send_notification"
)

// ErrUnknownAction marks an action type this build does not implement.
// Rules carrying one are skipped rather than failed.
var ErrUnknownAction = errors.New("unknown action type")

// Action is the closed set of things a rule can do. Only types in this
// package implement it.
type Action interface {
	Type() string
	action()
}

type ChangeStatus struct {
	Status string
}

type ChangePriority struct {
	Priority string
}

type AssignUser struct {
	UserID string
}

// SendNotification notifies UserID, or the task assignee when UserID is empty.
type SendNotification struct {
	UserID  string
	Title   string
	Message string
}

func (ChangeStatus) Type() string     { return ActionChangeStatus }
func (ChangePriority) Type() string   { return ActionChangePriority }
func (AssignUser) Type() string       { return ActionAssignUser }
func (SendNotification) Type() string { return ActionSendNotification }

func (ChangeStatus) action()     {}
func (ChangePriority) action()   {}
func (AssignUser) action()       {}
func (SendNotification) action() {}

func KnownAction(actionType string) bool {
	switch actionType {
	case ActionChangeStatus, ActionChangePriority, ActionAssignUser, ActionSendNotification:
		return true
	}
	return false
}

// DecodeAction builds the typed action for a stored rule. It returns
// ErrUnknownAction for types outside the closed set.
func DecodeAction(actionType string, cfg Config) (Action, error) {
	switch actionType {
	case ActionChangeStatus:
		status := cfg["status"]
		if !tasks.ValidStatus(status) {
			return nil, fmt.Errorf("change_status: invalid status %q", status)
		}
		return ChangeStatus{Status: status}, nil
	case ActionChangePriority:
		priority := cfg["priority"]
		if !tasks.ValidPriority(priority) {
			return nil, fmt.Errorf("change_priority: invalid priority %q", priority)
		}
		return ChangePriority{Priority: priority}, nil
	case ActionAssignUser:
		if cfg["user_id"] == "" {
			return nil, errors.New("assign_user: user_id is required")
		}
		return AssignUser{UserID: cfg["user_id"]}, nil
	case ActionSendNotification:
		return SendNotification{
			UserID:  cfg["user_id"],
			Title:   cfg["title"],
			Message: cfg["message"],
		}, nil
	default:
		return nil, ErrUnknownAction
	}
}

package automations

import "taskgate/internal/engine/tasks"

// Matches reports whether every recognised condition in cfg holds for the
// transition old -> new. Keys it does not know are ignored, so an empty
// config always matches.
func Matches(cfg Config, old, new *tasks.Task) bool {
	for key, want := range cfg {
		switch key {
		case "status":
			if new == nil || new.Status != want {
				return false
			}
		case "from_status":
			if old == nil || old.Status != want {
				return false
			}
		case "priority":
			if new == nil || new.Priority != want {
				return false
			}
		case "assignee_id":
			if new.Assignee() != want {
				return false
			}
		}
	}
	return true
}

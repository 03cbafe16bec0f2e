package plans

import (
	"context"
	"fmt"
)

// UsageSource supplies fresh consumption counts for an organization.
type UsageSource interface {
	CurrentUsage(ctx context.Context, orgID string) (Usage, error)
}

type Enforcer struct {
	usage UsageSource
}

func NewEnforcer(usage UsageSource) *Enforcer {
	return &Enforcer{usage: usage}
}

// Check resolves a decision for the org. Usage is only loaded for numeric
// actions; feature gates never touch the store.
func (e *Enforcer) Check(ctx context.Context, orgID, plan string, action Action) (Decision, error) {
	var u Usage
	if action.Numeric() {
		var err error
		u, err = e.usage.CurrentUsage(ctx, orgID)
		if err != nil {
			return Decision{}, fmt.Errorf("load usage for %s: %w", orgID, err)
		}
	}
	return CanPerform(plan, action, u), nil
}

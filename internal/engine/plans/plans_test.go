package plans

import (
	"context"
	"errors"
	"testing"
)

func TestCanPerform_QuotaBoundary(t *testing.T) {
	tests := []struct {
		name    string
		plan    string
		usage   Usage
		allowed bool
	}{
		{"below limit", Free, Usage{Tasks: 49}, true},
		{"at limit", Free, Usage{Tasks: 50}, false},
		{"over limit", Free, Usage{Tasks: 75}, false},
		{"unlimited", Professional, Usage{Tasks: 1000000}, true},
		{"enterprise unlimited", Enterprise, Usage{Tasks: 1 << 30}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanPerform(tt.plan, AddTask, tt.usage)
			if d.Allowed != tt.allowed {
				t.Errorf("Expected allowed=%v, got %+v", tt.allowed, d)
			}
		})
	}
}

func TestCanPerform_FeatureGating(t *testing.T) {
	anyUsage := Usage{Users: 999, Tasks: 999, StorageMB: 999}

	if CanPerform(Free, AccessAPI, anyUsage).Allowed {
		t.Error("Free plan must not have API access")
	}
	if !CanPerform(Professional, AccessAPI, anyUsage).Allowed {
		t.Error("Professional plan must have API access")
	}
	if CanPerform(Starter, AccessAnalytics, Usage{}).Allowed {
		t.Error("Starter plan must not have analytics")
	}

	d := CanPerform(Free, AccessAPI, Usage{})
	if d.Message != "API access requires the Professional plan" {
		t.Errorf("Unexpected message: %q", d.Message)
	}
	if d.RequiredPlan != Professional {
		t.Errorf("Expected professional upgrade target, got %q", d.RequiredPlan)
	}
}

func TestCanPerform_EndToEndUpgrade(t *testing.T) {
	usage := Usage{Users: 3}

	d := CanPerform(Free, AddUser, usage)
	if d.Allowed {
		t.Fatal("Expected add_user to be denied on free plan at 3 users")
	}
	if d.Limit == nil || *d.Limit != 3 || d.Current == nil || *d.Current != 3 {
		t.Errorf("Expected limit=3 current=3, got %+v", d)
	}
	if d.Message != "Free plan limited to 3 users" {
		t.Errorf("Unexpected message: %q", d.Message)
	}
	if d.RequiredPlan != Starter {
		t.Errorf("Expected starter upgrade target, got %q", d.RequiredPlan)
	}

	if !CanPerform(Starter, AddUser, usage).Allowed {
		t.Error("Expected add_user to be allowed after upgrading to starter")
	}
}

func TestCanPerform_Messages(t *testing.T) {
	if msg := CanPerform(Free, AddTask, Usage{Tasks: 50}).Message; msg != "Free plan limited to 50 tasks" {
		t.Errorf("Unexpected task message: %q", msg)
	}
	if msg := CanPerform(Free, UploadFile, Usage{StorageMB: 100}).Message; msg != "Free plan limited to 100MB storage" {
		t.Errorf("Unexpected storage message: %q", msg)
	}
	if msg := CanPerform(Starter, AddUser, Usage{Users: 10}).Message; msg != "Starter plan limited to 10 users" {
		t.Errorf("Unexpected starter message: %q", msg)
	}
}

func TestCanPerform_UnknownInputs(t *testing.T) {
	if CanPerform("platinum", AccessAPI, Usage{}).Allowed {
		t.Error("Unknown plan should fall back to free")
	}
	if !CanPerform("", AddTask, Usage{Tasks: 10}).Allowed {
		t.Error("Empty plan should behave like free")
	}
	if CanPerform(Enterprise, Action("delete_org"), Usage{}).Allowed {
		t.Error("Unknown actions must be denied")
	}
}

func TestRequiredPlan_NoneWhenMaxed(t *testing.T) {
	if got := RequiredPlan(Professional, AddUser, Usage{Users: 50}); got != Enterprise {
		t.Errorf("Expected enterprise, got %q", got)
	}
	if got := RequiredPlan(Enterprise, AddUser, Usage{Users: 50}); got != "" {
		t.Errorf("Expected no upgrade above enterprise, got %q", got)
	}
}

type stubUsage struct {
	usage Usage
	err   error
	calls int
}

func (s *stubUsage) CurrentUsage(ctx context.Context, orgID string) (Usage, error) {
	s.calls++
	return s.usage, s.err
}

func TestEnforcer_LoadsUsageLazily(t *testing.T) {
	src := &stubUsage{usage: Usage{Tasks: 50}}
	e := NewEnforcer(src)

	d, err := e.Check(context.Background(), "org_1", Free, AccessAPI)
	if err != nil || d.Allowed {
		t.Errorf("Unexpected decision %+v (%v)", d, err)
	}
	if src.calls != 0 {
		t.Errorf("Feature checks must not load usage, got %d calls", src.calls)
	}

	d, err = e.Check(context.Background(), "org_1", Free, AddTask)
	if err != nil || d.Allowed {
		t.Errorf("Unexpected decision %+v (%v)", d, err)
	}
	if src.calls != 1 {
		t.Errorf("Expected 1 usage load, got %d", src.calls)
	}
}

func TestEnforcer_PropagatesUsageError(t *testing.T) {
	e := NewEnforcer(&stubUsage{err: errors.New("db down")})
	if _, err := e.Check(context.Background(), "org_1", Free, AddUser); err == nil {
		t.Error("Expected usage error to propagate")
	}
}
